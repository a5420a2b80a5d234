package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.HTTPPort)
	assert.Equal(t, "public/data", cfg.DataDir)
	assert.Equal(t, filepath.Join("public", "photos"), cfg.PhotosDir)
	assert.Equal(t, "/photos", cfg.PublicPhotosPath)
	assert.Equal(t, 10*time.Second, cfg.TranscodeTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, ":3001", cfg.GetHTTPAddr())
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("HEARTBOOK_HTTP_PORT", "9000")
	t.Setenv("HEARTBOOK_DATA_DIR", "/srv/heartbook/data")
	t.Setenv("HEARTBOOK_PUBLIC_PHOTOS_PATH", "media/")
	t.Setenv("HEARTBOOK_TRANSCODE_TIMEOUT", "3s")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "/srv/heartbook/photos", cfg.PhotosDir)
	assert.Equal(t, "/media", cfg.PublicPhotosPath)
	assert.Equal(t, 3*time.Second, cfg.TranscodeTimeout)
}

func TestResolveDefaults_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"environment": func(c *Config) { c.Environment = "staging" },
		"data dir":    func(c *Config) { c.DataDir = " " },
		"api path":    func(c *Config) { c.PublicPhotosPath = "/api/photos" },
		"root path":   func(c *Config) { c.PublicPhotosPath = "/" },
		"upload size": func(c *Config) { c.MaxUploadMB = 0 },
		"port":        func(c *Config) { c.HTTPPort = 70000 },
	}
	for name, mutate := range cases {
		name, mutate := name, mutate
		t.Run(name, func(t *testing.T) {
			cfg := NewForTesting(t.TempDir())
			mutate(cfg)
			assert.Error(t, cfg.ResolveDefaults())
		})
	}
}

func TestNewForTesting(t *testing.T) {
	dir := t.TempDir()
	cfg := NewForTesting(dir)
	require.NoError(t, cfg.ResolveDefaults())
	assert.True(t, cfg.IsTesting())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, filepath.Join(dir, "photos"), cfg.PhotosDir)
	assert.False(t, cfg.WatchConfig)
}
