// Package settings persists the lock-screen passphrase and lockout settings.
//
// The passphrase is a novelty gate for a private keepsake site. It is stored
// in plain text and anyone who can reach the API can change it; nothing in
// this package is an authentication mechanism.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/atomicfile"
	"github.com/heartbook/heartbook/internal/model"
)

const (
	DefaultPassword    = "23"
	DefaultMaxAttempts = 3
	// DefaultLockoutTime is in milliseconds.
	DefaultLockoutTime = 30000
)

// Lockout controls how the lock screen reacts to wrong guesses.
type Lockout struct {
	MaxAttempts int   `json:"maxAttempts"`
	LockoutTime int64 `json:"lockoutTime"`
}

// Config is the document stored in config.json.
type Config struct {
	Password string  `json:"password"`
	Settings Lockout `json:"settings"`
}

// Default returns the configuration used when none has been saved.
func Default() Config {
	return Config{
		Password: DefaultPassword,
		Settings: Lockout{MaxAttempts: DefaultMaxAttempts, LockoutTime: DefaultLockoutTime},
	}
}

// WithDefaults fills zero fields from Default.
func (c Config) WithDefaults() Config {
	d := Default()
	if c.Password == "" {
		c.Password = d.Password
	}
	if c.Settings.MaxAttempts <= 0 {
		c.Settings.MaxAttempts = d.Settings.MaxAttempts
	}
	if c.Settings.LockoutTime <= 0 {
		c.Settings.LockoutTime = d.Settings.LockoutTime
	}
	return c
}

// Store reads and writes the configuration document.
type Store struct {
	path string
	log  zerolog.Logger

	writeMu sync.Mutex

	mu        sync.RWMutex
	cached    Config
	callbacks []func(Config)
}

// New returns a Store for dataDir/config.json. Nothing is read until the
// first call to Read or Load.
func New(dataDir string, log zerolog.Logger) *Store {
	return &Store{
		path:   filepath.Join(dataDir, model.ConfigFilename),
		log:    log.With().Str("component", "settings_store").Logger(),
		cached: Default(),
	}
}

// Path returns the location of the configuration document.
func (s *Store) Path() string { return s.path }

// Read returns the stored configuration. A missing file is not an error: the
// default configuration is returned instead. An unreadable or malformed file
// is reported.
func (s *Store) Read(ctx context.Context) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.setCached(Default())
		return Default(), nil
	}
	if err != nil {
		return Config{}, model.NewIOError("read", s.path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %v: %w", model.ConfigFilename, err, model.ErrCorruptData)
	}
	cfg = cfg.WithDefaults()
	s.setCached(cfg)
	return cfg, nil
}

// Load is Read that never fails: any error is logged and the default
// configuration is returned.
func (s *Store) Load(ctx context.Context) Config {
	cfg, err := s.Read(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("config unreadable, using defaults")
		return Default()
	}
	return cfg
}

// Cached returns the last configuration successfully read or written.
func (s *Store) Cached() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

// OnChange registers fn to run whenever the cached configuration changes.
func (s *Store) OnChange(fn func(Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

func (s *Store) setCached(cfg Config) {
	s.mu.Lock()
	changed := s.cached != cfg
	s.cached = cfg
	callbacks := append([]func(Config){}, s.callbacks...)
	s.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range callbacks {
		fn(cfg)
	}
}

// UpdatePassword replaces only the passphrase, keeping the lockout settings,
// and rewrites the document atomically. An unreadable current document is
// replaced by the defaults plus the new passphrase.
func (s *Store) UpdatePassword(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return model.NewValidationError("password", "is required")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cfg, err := s.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Msg("current config unreadable, rewriting from defaults")
		cfg = Default()
	}
	cfg.Password = password

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(s.path, data, 0o644); err != nil {
		return model.NewIOError("write", s.path, err)
	}
	s.setCached(cfg)
	s.log.Info().Msg("passphrase updated")
	return nil
}
