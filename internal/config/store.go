package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "luxio"
	configFile = "device.yaml"
)

// Store persists the device record.
type Store interface {
	// Load returns the stored record, or Default() when nothing is stored.
	Load() (Config, error)
	// Save replaces the stored record. A failed Save leaves the previous
	// record intact.
	Save(Config) error
	// Erase removes the stored record.
	Erase() error
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/luxio or $HOME/.config/luxio
//   - macOS: $HOME/.config/luxio
//   - Windows: %LOCALAPPDATA%\luxio
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the default location of the device record.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// FileStore keeps the device record in a YAML file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path. An empty path selects
// GetConfigPath().
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}
	return &FileStore{path: path}, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

// Load implements Store.
func (s *FileStore) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults.
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", s.path, err)
	}
	return cfg, nil
}

// Save implements Store. The record is written to a temporary file and
// renamed over the old one.
func (s *FileStore) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Luxio device configuration.\n# Written by the controller; edits are picked up on restart.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// Erase implements Store.
func (s *FileStore) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to erase config file: %w", err)
	}
	return nil
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu     sync.Mutex
	cfg    *Config
	saves  int
	erases int

	// SaveErr, when set, is returned from Save and the record is left as is.
	SaveErr error
}

// NewMemoryStore returns a store holding cfg, or an empty store when cfg is
// nil.
func NewMemoryStore(cfg *Config) *MemoryStore {
	s := &MemoryStore{}
	if cfg != nil {
		c := *cfg
		s.cfg = &c
	}
	return s
}

// Load implements Store.
func (s *MemoryStore) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return Default(), nil
	}
	return *s.cfg, nil
}

// Save implements Store.
func (s *MemoryStore) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.cfg = &cfg
	s.saves++
	return nil
}

// Erase implements Store.
func (s *MemoryStore) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = nil
	s.erases++
	return nil
}

// Saves returns the number of successful Save calls.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Erases returns the number of Erase calls.
func (s *MemoryStore) Erases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.erases
}

// Stored reports whether a record is present.
func (s *MemoryStore) Stored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg != nil
}
