package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartbook/heartbook/internal/model"
)

func TestReadMissingReturnsDefault(t *testing.T) {
	s := New(t.TempDir(), zerolog.Nop())
	cfg, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "23", cfg.Password)
	assert.Equal(t, 3, cfg.Settings.MaxAttempts)
	assert.Equal(t, int64(30000), cfg.Settings.LockoutTime)
}

func TestReadFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"password":"moon"}`), 0o644))
	cfg, err := New(dir, zerolog.Nop()).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "moon", cfg.Password)
	assert.Equal(t, DefaultMaxAttempts, cfg.Settings.MaxAttempts)
	assert.Equal(t, int64(DefaultLockoutTime), cfg.Settings.LockoutTime)
}

func TestReadCorruptIsErrorButLoadFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"password":`), 0o644))
	s := New(dir, zerolog.Nop())

	_, err := s.Read(context.Background())
	require.ErrorIs(t, err, model.ErrCorruptData)
	assert.Equal(t, Default(), s.Load(context.Background()))
}

func TestUpdatePassword(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"password":"old","settings":{"maxAttempts":5,"lockoutTime":60000}}`), 0o644))
	s := New(dir, zerolog.Nop())

	require.NoError(t, s.UpdatePassword(context.Background(), "forever"))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var stored Config
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "forever", stored.Password)
	assert.Equal(t, 5, stored.Settings.MaxAttempts)
	assert.Equal(t, int64(60000), stored.Settings.LockoutTime)
	assert.Equal(t, stored, s.Cached())
}

func TestUpdatePasswordCreatesFileAndRejectsEmpty(t *testing.T) {
	s := New(t.TempDir(), zerolog.Nop())
	require.ErrorIs(t, s.UpdatePassword(context.Background(), "  "), model.ErrValidation)
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.UpdatePassword(context.Background(), "1234"))
	cfg, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1234", cfg.Password)
	assert.Equal(t, Default().Settings, cfg.Settings)
}

func TestUpdatePasswordOverCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("garbage"), 0o644))
	s := New(dir, zerolog.Nop())
	require.NoError(t, s.UpdatePassword(context.Background(), "fresh"))
	cfg, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", cfg.Password)
}

func TestUpdatePasswordMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "gone"), zerolog.Nop())
	err := s.UpdatePassword(context.Background(), "x")
	require.ErrorIs(t, err, model.ErrIO)
}

func TestWatchPicksUpExternalEdits(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Config, 4)
	s.OnChange(func(c Config) { changed <- c })
	require.NoError(t, s.Watch(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"password":"edited"}`), 0o644))

	select {
	case c := <-changed:
		assert.Equal(t, "edited", c.Password)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload config")
	}
	assert.Equal(t, "edited", s.Cached().Password)
}
