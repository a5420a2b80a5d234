package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 250 * time.Millisecond

// Watch keeps Cached in step with edits made to config.json outside this
// process. The parent directory is watched because writes replace the file
// by rename. Watching stops when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.log.Info().Str("path", s.path).Msg("config watcher started")
	go s.watchLoop(ctx, fw)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	name := filepath.Base(s.path)

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() { s.reload(ctx) })

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			s.log.Error().Err(err).Msg("config watcher error")

		case <-ctx.Done():
			s.log.Info().Msg("stopping config watcher")
			return
		}
	}
}

func (s *Store) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := s.Read(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("config changed on disk but could not be read, keeping previous")
		return
	}
	s.log.Debug().Int("max_attempts", cfg.Settings.MaxAttempts).Msg("config reloaded")
}
