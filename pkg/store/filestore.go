package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/barnettlynn/boltemu/pkg/ntag424"
)

// cardFile is the on-disk YAML form of CardConfig. Keys and UID are
// uppercase hex so the file can be diffed against NFC tooling output.
type cardFile struct {
	Key0    string `yaml:"key0"`
	Key1    string `yaml:"key1"`
	Key2    string `yaml:"key2"`
	UID     string `yaml:"uid"`
	CardID  string `yaml:"card_id"`
	BaseURL string `yaml:"base_url"`
	Counter uint32 `yaml:"counter"`
	Enabled bool   `yaml:"enabled"`
}

// FileStore persists the card configuration in a single YAML file.
// All mutations are serialized and written atomically (temp file + rename),
// so a counter increment is durable before its value is handed out.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the YAML file at path. The file
// need not exist yet; Load reports (nil, nil) until the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and validates the stored configuration.
func (s *FileStore) Load() (*CardConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (*CardConfig, error) {
	content, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read card file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cf cardFile
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("parse card yaml: %w", err)
	}

	cfg, err := cf.toConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save validates and writes the configuration.
func (s *FileStore) Save(cfg *CardConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cfg)
}

func (s *FileStore) saveLocked(cfg *CardConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := yaml.Marshal(fromConfig(cfg))
	if err != nil {
		return fmt.Errorf("marshal card yaml: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".card-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp card file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write card file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync card file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close card file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod card file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit card file: %w", err)
	}
	return nil
}

// IncrementCounter advances the counter mod 2^24 and persists the new value
// before returning it.
func (s *FileStore) IncrementCounter() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.loadLocked()
	if err != nil {
		return 0, err
	}
	if cfg == nil {
		return 0, fmt.Errorf("no card configured")
	}

	cfg.Counter = (cfg.Counter + 1) & counterMax
	if err := s.saveLocked(cfg); err != nil {
		return 0, err
	}
	return cfg.Counter, nil
}

// SetCounter overwrites the stored counter.
func (s *FileStore) SetCounter(n uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > counterMax {
		return fmt.Errorf("counter must be <= 0x%06X, got %d", counterMax, n)
	}
	cfg, err := s.loadLocked()
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no card configured")
	}
	cfg.Counter = n
	return s.saveLocked(cfg)
}

func (cf *cardFile) toConfig() (*CardConfig, error) {
	cfg := &CardConfig{
		CardID:  cf.CardID,
		BaseURL: cf.BaseURL,
		Counter: cf.Counter,
		Enabled: cf.Enabled,
	}
	var err error
	if cfg.Key0, err = ntag424.DecodeHexKey(cf.Key0); err != nil {
		return nil, fmt.Errorf("key0: %w", err)
	}
	if cfg.Key1, err = ntag424.DecodeHexKey(cf.Key1); err != nil {
		return nil, fmt.Errorf("key1: %w", err)
	}
	if cfg.Key2, err = ntag424.DecodeHexKey(cf.Key2); err != nil {
		return nil, fmt.Errorf("key2: %w", err)
	}
	if cfg.UID, err = ntag424.DecodeHexUID(cf.UID); err != nil {
		return nil, fmt.Errorf("uid: %w", err)
	}
	return cfg, nil
}

func fromConfig(cfg *CardConfig) *cardFile {
	return &cardFile{
		Key0:    ntag424.HexUpper(cfg.Key0),
		Key1:    ntag424.HexUpper(cfg.Key1),
		Key2:    ntag424.HexUpper(cfg.Key2),
		UID:     ntag424.HexUpper(cfg.UID),
		CardID:  cfg.CardID,
		BaseURL: cfg.BaseURL,
		Counter: cfg.Counter,
		Enabled: cfg.Enabled,
	}
}
