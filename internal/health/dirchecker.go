package health

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DirChecker reports healthy while a directory accepts new files. Each probe
// creates and removes a small temporary file.
type DirChecker struct {
	name    string
	dir     string
	healthy atomic.Bool
	log     zerolog.Logger
}

func NewDirChecker(name, dir string, log zerolog.Logger) *DirChecker {
	return &DirChecker{name: name, dir: dir, log: log.With().Str("checker", name).Logger()}
}

func (c *DirChecker) Name() string    { return c.name }
func (c *DirChecker) IsHealthy() bool { return c.healthy.Load() }

// Probe runs one writability check and records the result.
func (c *DirChecker) Probe() error {
	err := probeDir(c.dir)
	was := c.healthy.Swap(err == nil)
	if err != nil && was {
		c.log.Warn().Err(err).Str("dir", c.dir).Msg("directory probe failed")
	}
	return err
}

// Start probes immediately and then on every tick until ctx is done.
func (c *DirChecker) Start(ctx context.Context, interval time.Duration) {
	_ = c.Probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Probe()
		}
	}
}

func probeDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_, werr := f.Write([]byte("ok"))
	cerr := f.Close()
	rerr := os.Remove(name)
	switch {
	case werr != nil:
		return werr
	case cerr != nil:
		return cerr
	default:
		return rerr
	}
}
