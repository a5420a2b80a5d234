package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/collection"
	"github.com/heartbook/heartbook/internal/metrics"
	"github.com/heartbook/heartbook/internal/model"
)

// CollectionStore is the subset of collection.Store the record service uses.
type CollectionStore interface {
	Read(ctx context.Context, filename string) ([]json.RawMessage, error)
	Write(ctx context.Context, filename string, records []json.RawMessage) error
	DeleteByID(ctx context.Context, filename, id string) (json.RawMessage, error)
	Ensure(ctx context.Context, filename string) error
	Stats(ctx context.Context, filenames []string) []collection.FileStats
}

// ImageRemover releases files referenced by deleted records.
type ImageRemover interface {
	Remove(publicPath string) (bool, error)
}

// RecordService orchestrates collection use cases for the HTTP layer.
type RecordService struct {
	store  CollectionStore
	images ImageRemover
	log    zerolog.Logger
}

func NewRecordService(s CollectionStore, images ImageRemover, log zerolog.Logger) *RecordService {
	return &RecordService{store: s, images: images, log: log.With().Str("component", "record_service").Logger()}
}

// CheckFilename accepts only the six collection files.
func CheckFilename(filename string) error {
	if filename == "" {
		return model.NewValidationError("filename", "is required")
	}
	if _, ok := model.KindForFilename(filename); !ok {
		return model.NewValidationError("filename", fmt.Sprintf("%q is not a known collection", filename))
	}
	return nil
}

func (s *RecordService) Read(ctx context.Context, filename string) ([]json.RawMessage, error) {
	if err := CheckFilename(filename); err != nil {
		return nil, err
	}
	return s.store.Read(ctx, filename)
}

func (s *RecordService) Write(ctx context.Context, filename string, records []json.RawMessage) error {
	if err := CheckFilename(filename); err != nil {
		return err
	}
	return s.store.Write(ctx, filename, records)
}

// Delete removes the record and then, best-effort, the image it owned. A
// failed image removal is logged and never fails the delete.
func (s *RecordService) Delete(ctx context.Context, filename, id string) error {
	if err := CheckFilename(filename); err != nil {
		return err
	}
	removed, err := s.store.DeleteByID(ctx, filename, id)
	if err != nil {
		return err
	}
	ref := collection.ImageRef(removed)
	if ref == "" || s.images == nil {
		return nil
	}
	ok, err := s.images.Remove(ref)
	switch {
	case err != nil:
		metrics.ImageCleanups.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("image", ref).Str("id", id).Msg("image cleanup failed")
	case ok:
		metrics.ImageCleanups.WithLabelValues("removed").Inc()
		s.log.Debug().Str("image", ref).Msg("image removed")
	default:
		metrics.ImageCleanups.WithLabelValues("skipped").Inc()
	}
	return nil
}

// Seed creates every missing collection file as an empty array.
func (s *RecordService) Seed(ctx context.Context) error {
	for _, k := range model.Kinds {
		if err := s.store.Ensure(ctx, k.Filename()); err != nil {
			return fmt.Errorf("seed %s: %w", k.Filename(), err)
		}
	}
	return nil
}

// Stats reports size and record count of every collection file.
func (s *RecordService) Stats(ctx context.Context) []collection.FileStats {
	names := make([]string, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		names = append(names, k.Filename())
	}
	return s.store.Stats(ctx, names)
}
