package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/config"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashcache"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/history"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/uptodate"
)

var version = "dev"

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

var (
	cfgFile     string
	logLevel    string
	metricsFile string

	taskName string
	dryRun   bool

	strategyName    string
	algorithmName   string
	caseInsensitive bool
	collisionPolicy string
)

var errOutOfDate = errors.New("tasks are out of date")

func main() {
	loadDotenv(".env")
	setupLogger(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errOutOfDate) {
			log.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snapcheck",
	Short: "Decide whether tasks are up to date from file fingerprints",
	Long: `snapcheck snapshots the files a task reads and writes, normalizes them into
fingerprints and compares them with the fingerprints stored after the previous
execution. Tasks whose fingerprints did not change can be skipped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		setLevel(level)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether configured tasks are up to date",
	Long: `Check fingerprints every property of the configured tasks and compares them with
history. It exits with status 1 if any task is out of date. Unless --dry-run is
given, the new fingerprints are stored as history afterwards.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <root>...",
	Short: "Print the fingerprint of files and directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFingerprint,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "snapcheck %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the config")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write hash cache metrics in text format to this file")

	checkCmd.Flags().StringVar(&taskName, "task", "", "check only this task")
	checkCmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not store new history")

	fingerprintCmd.Flags().StringVar(&strategyName, "strategy", fingerprint.Absolute.String(), "normalization strategy (absolute, output, relative, name_only, ignored)")
	fingerprintCmd.Flags().StringVar(&algorithmName, "hash", hashing.SHA256.Name(), "content hash algorithm (sha256, xxhash)")
	fingerprintCmd.Flags().BoolVar(&caseInsensitive, "case-insensitive", false, "compare paths case-insensitively")
	fingerprintCmd.Flags().StringVar(&collisionPolicy, "collisions", fingerprint.LastWins.String(), "collision policy (last-wins, fail, merge)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(versionCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel == "" {
		setLevel(cfg.Level())
	}
	log.Debug().Str("config", cfgFile).Str("history", cfg.HistoryDir).Int("tasks", len(cfg.Tasks)).Msg("Loaded configuration")

	tasks := cfg.AllTasks()
	if taskName != "" {
		task, ok := cfg.Task(taskName)
		if !ok {
			return fmt.Errorf("unknown task %s", taskName)
		}
		tasks = []uptodate.Task{task}
	}

	registry := prometheus.NewRegistry()
	cache, err := hashcache.New(cfg.CacheSize, registry, &log)
	if err != nil {
		return err
	}

	checker := &uptodate.Checker{
		Snapshotter: snapshot.New(snapshot.Options{
			Algorithm:    cfg.Algorithm(),
			Cache:        cache,
			SkipSymlinks: cfg.SkipSymlinks(),
			Workers:      cfg.Workers,
			Logger:       &log,
		}),
		Store:       history.NewFileStore(cfg.HistoryDir, &log),
		Options: fingerprint.Options{
			CaseInsensitive: cfg.CaseInsensitive,
			Collisions:      cfg.Collisions(),
			Logger:          &log,
		},
		MaxMessages: cfg.MaxMessages,
		Logger:      &log,
	}

	out := cmd.OutOrStdout()
	outOfDate := 0
	for _, task := range tasks {
		outcome, err := checker.Check(task)
		if err != nil {
			return err
		}
		printOutcome(out, task, outcome)

		if outcome.UpToDate {
			continue
		}
		outOfDate++
		if dryRun {
			continue
		}
		if err := checker.Commit(task, outcome); err != nil {
			return err
		}
	}

	if err := writeMetrics(registry); err != nil {
		return err
	}
	if outOfDate > 0 {
		return errOutOfDate
	}
	return nil
}

func printOutcome(w io.Writer, task uptodate.Task, outcome uptodate.Outcome) {
	if outcome.UpToDate {
		fmt.Fprintf(w, "%s %s\n", color.GreenString("UP-TO-DATE"), task.Name)
	} else {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("OUT-OF-DATE"), task.Name)
	}
	for _, reason := range outcome.Reasons {
		fmt.Fprintf(w, "  %s\n", reason)
	}
	for _, warning := range outcome.Warnings {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("warning:"), warning)
	}
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	strategy, err := fingerprint.ParseStrategy(strategyName)
	if err != nil {
		return err
	}
	alg, err := hashing.ParseAlgorithm(algorithmName)
	if err != nil {
		return err
	}
	policy, err := fingerprint.ParseCollisionPolicy(collisionPolicy)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	cache, err := hashcache.New(0, registry, &log)
	if err != nil {
		return err
	}
	nodes, warnings := snapshot.New(snapshot.Options{Algorithm: alg, Cache: cache, Logger: &log}).WalkAll(args)
	roots := make([]fingerprint.Root, len(nodes))
	for i, n := range nodes {
		roots[i] = fingerprint.Root{Label: args[i], Node: n}
	}

	fp, err := fingerprint.Build(roots, strategy, fingerprint.Options{
		CaseInsensitive: caseInsensitive,
		Collisions:      policy,
		Logger:          &log,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for e := range fp.Entries() {
		fmt.Fprintf(out, "%s  %-9s %s\n", e.Hash, e.Type, e.Path)
	}
	fmt.Fprintf(out, "%s %s (%s, %d entries)\n", color.CyanString("aggregate"), fp.AggregateHash(), fp.Strategy(), fp.Len())
	for _, warning := range warnings {
		fmt.Fprintf(out, "%s %s\n", color.RedString("warning:"), warning)
	}

	return writeMetrics(registry)
}

func writeMetrics(registry *prometheus.Registry) error {
	if metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func setupLogger(w *os.File) {
	var out io.Writer = w
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	log = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	publishLogger()
}

func setLevel(level zerolog.Level) {
	log = log.Level(level)
	publishLogger()
}

func publishLogger() {
	zerolog.DefaultContextLogger = &log
	zlog.Logger = log
}

func loadDotenv(path string) {
	dotenv, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := strings.SplitSeq(string(dotenv), "\n")
	for line := range lines {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			os.Setenv(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
}
