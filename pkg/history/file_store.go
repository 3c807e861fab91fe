package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Schidstorm/edge_config/apps/snapcheck/pkg/fingerprint"
)

const formatVersion = 1

// FileStore writes one JSON record per task and property below Dir.
//
// Layout: <Dir>/<key[:2]>/<key>.json with key = sha256(task NUL property).
// Writes go to a temporary file in the same directory and are renamed into
// place, so readers never see a partial record.
type FileStore struct {
	Dir string
	log *zerolog.Logger
}

func NewFileStore(dir string, logger *zerolog.Logger) *FileStore {
	if logger == nil {
		logger = &log.Logger
	}
	return &FileStore{Dir: dir, log: logger}
}

type record struct {
	FormatVersion int             `json:"formatVersion"`
	Task          string          `json:"task"`
	Property      string          `json:"property"`
	Stored        time.Time       `json:"stored"`
	Fingerprint   json.RawMessage `json:"fingerprint"`
}

func recordKey(task, property string) string {
	sum := sha256.Sum256([]byte(task + "\x00" + property))
	return hex.EncodeToString(sum[:])
}

func (s *FileStore) path(task, property string) string {
	key := recordKey(task, property)
	return filepath.Join(s.Dir, key[:2], key+".json")
}

func (s *FileStore) Load(task, property string) (*fingerprint.Fingerprint, error) {
	p := s.path(task, property)
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history %s/%s: %w", task, property, err)
	}

	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("load history %s/%s: %w", task, property, err)
	}
	if r.FormatVersion != formatVersion {
		s.log.Info().Str("task", task).Str("property", property).Int("version", r.FormatVersion).Msg("Ignoring history with unknown format version")
		return nil, nil
	}
	if r.Task != task || r.Property != property {
		return nil, fmt.Errorf("load history %s/%s: record belongs to %s/%s", task, property, r.Task, r.Property)
	}

	fp, err := fingerprint.Decode(r.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("load history %s/%s: %w", task, property, err)
	}
	return fp, nil
}

func (s *FileStore) Store(task, property string, fp *fingerprint.Fingerprint) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("store history %s/%s: %w", task, property, err)
	}
	b, err := json.MarshalIndent(record{
		FormatVersion: formatVersion,
		Task:          task,
		Property:      property,
		Stored:        time.Now().UTC(),
		Fingerprint:   data,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("store history %s/%s: %w", task, property, err)
	}

	p := s.path(task, property)
	if err := writeAtomic(p, b); err != nil {
		return fmt.Errorf("store history %s/%s: %w", task, property, err)
	}
	s.log.Debug().Str("task", task).Str("property", property).Str("path", p).Msg("Stored fingerprint")
	return nil
}

func writeAtomic(p string, b []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(p)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()

	_, err = f.Write(b)
	if err == nil {
		err = f.Sync()
	}
	errClose := f.Close()
	if err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("write file: %w", err)
	}
	if errClose != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close file: %w", errClose)
	}
	if err := os.Rename(name, p); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// Clear removes every stored record.
func (s *FileStore) Clear() error {
	if s.Dir == "" {
		return nil
	}
	return os.RemoveAll(s.Dir)
}
