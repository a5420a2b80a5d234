// Package heartbookservice wires the stores, the image pipeline and the HTTP
// API into a runnable server.
package heartbookservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/api"
	"github.com/heartbook/heartbook/internal/collection"
	"github.com/heartbook/heartbook/internal/config"
	"github.com/heartbook/heartbook/internal/health"
	"github.com/heartbook/heartbook/internal/imaging"
	"github.com/heartbook/heartbook/internal/logger"
	"github.com/heartbook/heartbook/internal/services"
	"github.com/heartbook/heartbook/internal/settings"
)

const shutdownTimeout = 10 * time.Second

// Run loads configuration from the environment, starts the HTTP server and
// blocks until SIGINT/SIGTERM or a server error.
func Run() error {
	log := logger.New("heartbook-server")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warn().Err(err).Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
	}

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	return Serve(ctx, cfg, log)
}

// Serve runs the server with an explicit configuration until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("http_port", cfg.HTTPPort).
		Str("data_dir", cfg.DataDir).
		Str("photos_dir", cfg.PhotosDir).
		Msg("Heartbook server starting")

	deps, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	svcHealth := startHealthCheckers(ctx, cfg, log, deps)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	router := buildRouter(cfg, deps, svcHealth.IsHealthy, log)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

type dependencies struct {
	store    *collection.Store
	images   *imaging.Service
	settings *settings.Store
	records  *services.RecordService
}

// initDependencies opens the stores and fails fast when a directory cannot be
// created.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	st, err := collection.Open(cfg.DataDir, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Collection store unavailable")
		return nil, err
	}

	images, err := imaging.New(imaging.Config{
		Dir:              cfg.PhotosDir,
		PublicPath:       cfg.PublicPhotosPath,
		MaxDimension:     cfg.MaxImageDimension,
		Quality:          cfg.JPEGQuality,
		TranscodeTimeout: cfg.TranscodeTimeout,
	}, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Image directory unavailable")
		return nil, err
	}

	records := services.NewRecordService(st, images, log)
	if cfg.SeedEmptyCollections {
		if err := records.Seed(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("Failed to seed collections")
			return nil, err
		}
	}

	cfgStore := settings.New(cfg.DataDir, log)
	cfgStore.Load(ctx)
	if cfg.WatchConfig {
		if err := cfgStore.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("config watcher disabled")
		}
	}

	return &dependencies{store: st, images: images, settings: cfgStore, records: records}, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(cfg *config.Config, deps *dependencies, healthy func() bool, log zerolog.Logger) *mux.Router {
	return api.NewRouter(api.Deps{
		Records:        deps.records,
		Images:         deps.images,
		Settings:       deps.settings,
		Healthy:        healthy,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		StaticDir:      cfg.StaticDir,
		Log:            log,
	})
}

// startHealthCheckers probes both directories once, then keeps probing them
// in the background and aggregates the result into the service flag.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.ServiceHealthChecker {
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	dirs := []*health.DirChecker{
		health.NewDirChecker("data_dir", deps.store.Dir(), log),
		health.NewDirChecker("photos_dir", deps.images.Dir(), log),
	}
	checkers := make([]health.HealthChecker, 0, len(dirs))
	for _, c := range dirs {
		if err := c.Probe(); err != nil {
			log.Warn().Err(err).Str("checker", c.Name()).Msg("initial probe failed")
		}
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 10 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 10 {
		return 10
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: storage not writable within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
