// Package config loads the snapcheck YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashcache"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/hashing"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/snapshot"
	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/uptodate"
)

const DefaultPath = "snapcheck.yaml"

const (
	envHistoryDir = "SNAPCHECK_HISTORY_DIR"
	envLogLevel   = "SNAPCHECK_LOG_LEVEL"
)

type Config struct {
	HistoryDir      string `yaml:"history_dir"`
	HashAlgorithm   string `yaml:"hash_algorithm"`
	CacheSize       int    `yaml:"cache_size"`
	Workers         int    `yaml:"workers"`
	FollowSymlinks  *bool  `yaml:"follow_symlinks"`
	CaseInsensitive bool   `yaml:"case_insensitive"`
	CollisionPolicy string `yaml:"collision_policy"`
	MaxMessages     int    `yaml:"max_messages"`
	LogLevel        string `yaml:"log_level"`
	Tasks           []Task `yaml:"tasks"`
}

type Task struct {
	Name       string     `yaml:"name"`
	Properties []Property `yaml:"properties"`
}

type Property struct {
	Name     string               `yaml:"name"`
	Strategy fingerprint.Strategy `yaml:"strategy"`
	Roots    []string             `yaml:"roots"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	follow := true
	return Config{
		HistoryDir:     ".snapcheck/history",
		HashAlgorithm:  hashing.SHA256.Name(),
		CacheSize:      hashcache.DefaultSize,
		Workers:        snapshot.DefaultWorkers,
		FollowSymlinks: &follow,
		MaxMessages:    uptodate.DefaultMaxMessages,
		LogLevel:       zerolog.InfoLevel.String(),
	}
}

// Load reads the file at path, with environment variables expanded in the
// path, applies defaults and environment overrides and validates the result.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	path = os.ExpandEnv(path)

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HistoryDir = getenvDefault(envHistoryDir, c.HistoryDir)
	c.LogLevel = getenvDefault(envLogLevel, c.LogLevel)
}

func getenvDefault(name, def string) string {
	val := os.Getenv(name)
	if val == "" {
		return def
	}

	return val
}

func (c Config) Validate() error {
	var errs error
	if c.HistoryDir == "" {
		errs = multierr.Append(errs, errors.New("history_dir must not be empty"))
	}
	if _, err := hashing.ParseAlgorithm(c.HashAlgorithm); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := fingerprint.ParseCollisionPolicy(c.CollisionPolicy); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.CacheSize < 0 {
		errs = multierr.Append(errs, errors.New("cache_size must not be negative"))
	}
	if c.Workers < 0 {
		errs = multierr.Append(errs, errors.New("workers must not be negative"))
	}
	if c.MaxMessages < 0 {
		errs = multierr.Append(errs, errors.New("max_messages must not be negative"))
	}

	tasks := make(map[string]bool, len(c.Tasks))
	for i, t := range c.Tasks {
		if t.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("tasks[%d]: name must not be empty", i))
			continue
		}
		if tasks[t.Name] {
			errs = multierr.Append(errs, fmt.Errorf("tasks[%d]: duplicate task %s", i, t.Name))
		}
		tasks[t.Name] = true

		props := make(map[string]bool, len(t.Properties))
		for j, p := range t.Properties {
			switch {
			case p.Name == "":
				errs = multierr.Append(errs, fmt.Errorf("task %s: properties[%d]: name must not be empty", t.Name, j))
			case props[p.Name]:
				errs = multierr.Append(errs, fmt.Errorf("task %s: duplicate property %s", t.Name, p.Name))
			case len(p.Roots) == 0:
				errs = multierr.Append(errs, fmt.Errorf("task %s: property %s has no roots", t.Name, p.Name))
			}
			props[p.Name] = true
		}
	}

	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

func (c Config) Algorithm() hashing.Algorithm {
	alg, err := hashing.ParseAlgorithm(c.HashAlgorithm)
	if err != nil {
		return hashing.SHA256
	}
	return alg
}

func (c Config) Collisions() fingerprint.CollisionPolicy {
	p, _ := fingerprint.ParseCollisionPolicy(c.CollisionPolicy)
	return p
}

func (c Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

func (c Config) SkipSymlinks() bool {
	return c.FollowSymlinks != nil && !*c.FollowSymlinks
}

// Task returns the named task converted for the up-to-date checker.
func (c Config) Task(name string) (uptodate.Task, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t.toTask(), true
		}
	}
	return uptodate.Task{}, false
}

func (c Config) AllTasks() []uptodate.Task {
	tasks := make([]uptodate.Task, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		tasks = append(tasks, t.toTask())
	}
	return tasks
}

func (t Task) toTask() uptodate.Task {
	props := make([]uptodate.Property, 0, len(t.Properties))
	for _, p := range t.Properties {
		roots := make([]string, len(p.Roots))
		for i, r := range p.Roots {
			roots[i] = os.ExpandEnv(r)
		}
		props = append(props, uptodate.Property{Name: p.Name, Strategy: p.Strategy, Roots: roots})
	}
	return uptodate.Task{Name: t.Name, Properties: props}
}
