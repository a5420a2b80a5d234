package health

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	name    string
	healthy atomic.Int32
}

func (f *fakeChecker) Name() string                               { return f.name }
func (f *fakeChecker) IsHealthy() bool                            { return f.healthy.Load() == 1 }
func (f *fakeChecker) Start(ctx context.Context, _ time.Duration) { /* no-op */ }

func TestServiceHealthChecker_Transitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &fakeChecker{name: "data"}
	b := &fakeChecker{name: "photos"}
	a.healthy.Store(1)
	b.healthy.Store(1)

	svc := NewServiceHealthChecker(zerolog.Nop(), a, b)
	go svc.Start(ctx, 10*time.Millisecond)

	waitTrue(t, func() bool { return svc.IsHealthy() })

	b.healthy.Store(0)
	waitTrue(t, func() bool { return !svc.IsHealthy() })

	b.healthy.Store(1)
	waitTrue(t, func() bool { return svc.IsHealthy() })
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	c := NewDirChecker("data", dir, zerolog.Nop())
	assert.False(t, c.IsHealthy(), "unhealthy until first probe")

	require.NoError(t, c.Probe())
	assert.True(t, c.IsHealthy())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")

	c = NewDirChecker("gone", filepath.Join(dir, "missing"), zerolog.Nop())
	require.Error(t, c.Probe())
	assert.False(t, c.IsHealthy())

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	c = NewDirChecker("file", file, zerolog.Nop())
	require.Error(t, c.Probe())
}

func TestDirChecker_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewDirChecker("data", t.TempDir(), zerolog.Nop())
	go c.Start(ctx, 10*time.Millisecond)
	waitTrue(t, c.IsHealthy)
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}
