package heartbookservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartbook/heartbook/internal/config"
	"github.com/heartbook/heartbook/internal/model"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestCalculateStartupHealthTimeout(t *testing.T) {
	assert.Equal(t, 10, calculateStartupHealthTimeout(1))
	assert.Equal(t, 60, calculateStartupHealthTimeout(30))
}

func TestInitDependencies_SeedsCollections(t *testing.T) {
	cfg := config.NewForTesting(t.TempDir())
	deps, err := initDependencies(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	for _, k := range model.Kinds {
		data, err := os.ReadFile(filepath.Join(cfg.DataDir, k.Filename()))
		require.NoError(t, err, k)
		assert.Equal(t, "[]", string(data))
	}
	_, err = os.Stat(cfg.PhotosDir)
	require.NoError(t, err)
	assert.Equal(t, "23", deps.settings.Cached().Password)
}

func TestInitDependencies_FailsOnUnusableDataDir(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	cfg := config.NewForTesting(root)
	cfg.DataDir = filepath.Join(blocker, "data")
	_, err := initDependencies(context.Background(), cfg, zerolog.Nop())
	require.ErrorIs(t, err, model.ErrIO)
}

func TestServe_StartsAndShutsDown(t *testing.T) {
	cfg := config.NewForTesting(t.TempDir())
	cfg.HTTPPort = freePort(t)
	cfg.HealthIntervalSeconds = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, zerolog.Nop()) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/health", cfg.HTTPPort)
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(url)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 5*time.Second, 50*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
