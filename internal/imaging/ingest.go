// Package imaging turns uploaded image bytes into a stored, web-sized file and
// hands back the public path it is served under.
package imaging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/atomicfile"
	"github.com/heartbook/heartbook/internal/metrics"
	"github.com/heartbook/heartbook/internal/model"
)

const (
	DefaultMaxDimension     = 800
	DefaultTranscodeTimeout = 10 * time.Second
	DefaultPublicPath       = "/photos"

	defaultQuality  = 80
	publishAttempts = 16
	filePerm        = 0o644
)

// Config controls where images land and how they are re-encoded.
type Config struct {
	// Dir is the directory files are written to.
	Dir string
	// PublicPath is the URL prefix Dir is served under.
	PublicPath string
	// MaxDimension bounds both sides of a transcoded image.
	MaxDimension int
	// Quality is the JPEG quality used when re-encoding.
	Quality int
	// TranscodeTimeout caps decode+resize+encode; past it the original bytes
	// are stored instead.
	TranscodeTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.PublicPath == "" {
		c.PublicPath = DefaultPublicPath
	}
	c.PublicPath = "/" + strings.Trim(c.PublicPath, "/")
	if c.MaxDimension <= 0 {
		c.MaxDimension = DefaultMaxDimension
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = defaultQuality
	}
	if c.TranscodeTimeout <= 0 {
		c.TranscodeTimeout = DefaultTranscodeTimeout
	}
}

// Upload is one file received from a client.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Result describes a stored image.
type Result struct {
	// URL is the public path, e.g. /photos/photo_1718000000000000000.jpg.
	URL string `json:"url"`
	// Filename is the stored base name.
	Filename string `json:"filename"`
	// Transcoded is false when the original bytes were stored unchanged.
	Transcoded bool `json:"transcoded"`
}

// Service ingests uploads into a single content directory.
type Service struct {
	cfg   Config
	log   zerolog.Logger
	stamp *stamper
}

// New prepares the content directory and returns a Service writing into it.
func New(cfg Config, log zerolog.Logger) (*Service, error) {
	if cfg.Dir == "" {
		return nil, model.NewValidationError("dir", "image directory is required")
	}
	cfg.applyDefaults()
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, model.NewIOError("mkdir", cfg.Dir, err)
	}
	return &Service{
		cfg:   cfg,
		log:   log.With().Str("component", "image_ingest").Logger(),
		stamp: &stamper{now: time.Now},
	}, nil
}

// Dir returns the content directory.
func (s *Service) Dir() string { return s.cfg.Dir }

// PublicPath returns the URL prefix files are served under.
func (s *Service) PublicPath() string { return s.cfg.PublicPath }

// Ingest validates the upload, shrinks and re-encodes it when possible, and
// writes it under a fresh name. Non-image uploads fail with
// ErrUnsupportedMediaType before anything touches the disk. A decode or encode
// failure is not an error: the original bytes are stored instead.
func (s *Service) Ingest(ctx context.Context, up Upload) (Result, error) {
	start := time.Now()
	defer func() { metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	ct := strings.ToLower(strings.TrimSpace(up.ContentType))
	if !strings.HasPrefix(ct, "image/") {
		metrics.IngestOutcomes.WithLabelValues("rejected").Inc()
		return Result{}, fmt.Errorf("content type %q: %w", up.ContentType, model.ErrUnsupportedMediaType)
	}
	if len(up.Data) == 0 {
		metrics.IngestOutcomes.WithLabelValues("rejected").Inc()
		return Result{}, model.NewValidationError("file", "upload is empty")
	}

	ext := extensionFor(up.Filename)
	data, err := s.transcodeWithTimeout(ctx, up.Data)
	transcoded := err == nil
	if transcoded {
		ext = defaultExt
	} else {
		s.log.Warn().Err(err).
			Str("filename", up.Filename).
			Str("content_type", ct).
			Msg("transcode failed, storing original")
		data = up.Data
	}

	name, err := s.persist(data, ext)
	if err != nil {
		metrics.IngestOutcomes.WithLabelValues("failed").Inc()
		return Result{}, err
	}
	outcome := "original"
	if transcoded {
		outcome = "transcoded"
	}
	metrics.IngestOutcomes.WithLabelValues(outcome).Inc()
	s.log.Info().
		Str("stored_as", name).
		Bool("transcoded", transcoded).
		Int("bytes_in", len(up.Data)).
		Int("bytes_out", len(data)).
		Msg("image stored")

	return Result{URL: path.Join(s.cfg.PublicPath, name), Filename: name, Transcoded: transcoded}, nil
}

type transcodeResult struct {
	data []byte
	err  error
}

func (s *Service) transcodeWithTimeout(ctx context.Context, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TranscodeTimeout)
	defer cancel()

	done := make(chan transcodeResult, 1)
	go func() {
		out, err := transcode(data, s.cfg.MaxDimension, s.cfg.Quality)
		done <- transcodeResult{data: out, err: err}
	}()
	select {
	case r := <-done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("transcode: %w", ctx.Err())
	}
}

// persist publishes data under photo_<ns>.<ext>, bumping the timestamp when a
// file of that name already exists.
func (s *Service) persist(data []byte, ext string) (string, error) {
	var lastErr error
	for i := 0; i < publishAttempts; i++ {
		name := photoName(s.stamp.next(), ext)
		p := filepath.Join(s.cfg.Dir, name)
		err := atomicfile.Publish(p, data, filePerm)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", model.NewIOError("publish", p, err)
		}
		lastErr = err
	}
	return "", model.NewIOError("publish", s.cfg.Dir, fmt.Errorf("no free name after %d attempts: %w", publishAttempts, lastErr))
}

// Owns reports whether publicPath names a file this service would have
// written: a plain base name directly under the public prefix.
func (s *Service) Owns(publicPath string) bool {
	_, ok := s.localPath(publicPath)
	return ok
}

func (s *Service) localPath(publicPath string) (string, bool) {
	prefix := s.cfg.PublicPath + "/"
	if !strings.HasPrefix(publicPath, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(publicPath, prefix)
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(s.cfg.Dir, name), true
}

// Remove unlinks the file behind publicPath. Paths the service does not own
// (the placeholder, external URLs, anything outside the content directory)
// are ignored, as is a file that is already gone. It reports whether a file
// was actually removed.
func (s *Service) Remove(publicPath string) (bool, error) {
	if publicPath == "" || publicPath == model.PlaceholderImage {
		return false, nil
	}
	p, ok := s.localPath(publicPath)
	if !ok {
		s.log.Debug().Str("path", publicPath).Msg("not an owned image, skipping removal")
		return false, nil
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, model.NewIOError("remove", p, err)
	}
	return true, nil
}
