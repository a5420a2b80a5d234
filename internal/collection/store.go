// Package collection stores named JSON-array documents under one data
// directory. It is agnostic to record shape: records are raw JSON objects and
// only their "id" and image reference fields are ever inspected.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/atomicfile"
	"github.com/heartbook/heartbook/internal/metrics"
	"github.com/heartbook/heartbook/internal/model"
)

const filePerm = 0o644

// Store reads and rewrites collection files. Writes and deletes on the same
// filename are serialized in-process; every write is published atomically so
// concurrent readers (and other processes) see either the old or the new array.
type Store struct {
	dir   string
	locks *atomicfile.Locker
	log   zerolog.Logger
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.NewIOError("mkdir", dir, err)
	}
	return &Store{
		dir:   dir,
		locks: atomicfile.NewLocker(),
		log:   log.With().Str("component", "collection_store").Logger(),
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(filename string) (string, error) {
	if filename == "" {
		return "", model.NewValidationError("filename", "is required")
	}
	if filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) || strings.HasPrefix(filename, ".") {
		return "", model.NewValidationError("filename", fmt.Sprintf("%q must be a plain file name", filename))
	}
	if filepath.Ext(filename) != ".json" {
		return "", model.NewValidationError("filename", fmt.Sprintf("%q must end in .json", filename))
	}
	return filepath.Join(s.dir, filename), nil
}

// Read parses filename as a JSON array. A missing or unreadable file yields
// a NotFoundError; content that is not a JSON array yields ErrCorruptData.
func (s *Store) Read(ctx context.Context, filename string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(filename)
	if err != nil {
		return nil, err
	}
	records, err := readArray(p, filename)
	metrics.StoreOperations.WithLabelValues("read", metrics.Result(err)).Inc()
	return records, err
}

func readArray(p, filename string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", model.NewNotFoundError("collection", fmt.Sprintf("%s: %v", filename, err)))
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("collection %s is not a JSON array: %w", filename, model.ErrCorruptData)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("parse collection %s: %v: %w", filename, err, model.ErrCorruptData)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// Write replaces filename with records, pretty-printed with two-space
// indentation. A nil slice is stored as an empty array.
func (s *Store) Write(ctx context.Context, filename string, records []json.RawMessage) error {
	p, err := s.path(filename)
	if err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, p)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.writeLocked(p, records)
	metrics.StoreOperations.WithLabelValues("write", metrics.Result(err)).Inc()
	if err == nil {
		s.log.Debug().Str("filename", filename).Int("records", len(records)).Msg("collection written")
	}
	return err
}

func (s *Store) writeLocked(p string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return model.NewValidationError("data", fmt.Sprintf("records are not valid JSON: %v", err))
	}
	return model.NewIOError("write", p, atomicfile.WriteFile(p, data, filePerm))
}

// DeleteByID removes the first record whose id equals id and rewrites the
// file. It returns the removed record so the caller can release whatever the
// record referenced (see ImageRef). When no record matches, the file is left
// untouched and a NotFoundError is returned.
func (s *Store) DeleteByID(ctx context.Context, filename, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, model.NewValidationError("id", "is required")
	}
	p, err := s.path(filename)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, p)
	if err != nil {
		return nil, err
	}
	defer unlock()

	removed, err := s.deleteLocked(p, filename, id)
	metrics.StoreOperations.WithLabelValues("delete", metrics.Result(err)).Inc()
	return removed, err
}

func (s *Store) deleteLocked(p, filename, id string) (json.RawMessage, error) {
	records, err := readArray(p, filename)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, raw := range records {
		if RecordID(raw) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, model.NewNotFoundError("record", fmt.Sprintf("%s in %s", id, filename))
	}
	removed := records[idx]
	remaining := append(records[:idx:idx], records[idx+1:]...)
	if err := s.writeLocked(p, remaining); err != nil {
		return nil, err
	}
	s.log.Info().Str("filename", filename).Str("id", id).Msg("record deleted")
	return removed, nil
}

// Ensure creates filename as an empty array when it does not exist yet.
func (s *Store) Ensure(ctx context.Context, filename string) error {
	p, err := s.path(filename)
	if err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, p)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return model.NewIOError("stat", p, err)
	}
	return s.writeLocked(p, nil)
}

// FileStats describes one collection file on disk.
type FileStats struct {
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Records  int    `json:"records"`
	Err      string `json:"error,omitempty"`
}

// Stats reports size and record count for each filename. Problems with a
// single file are reported in its entry rather than failing the call.
func (s *Store) Stats(ctx context.Context, filenames []string) []FileStats {
	out := make([]FileStats, 0, len(filenames))
	for _, name := range filenames {
		st := FileStats{Filename: name}
		if p, err := s.path(name); err != nil {
			st.Err = err.Error()
		} else if fi, err := os.Stat(p); err != nil {
			st.Err = err.Error()
		} else {
			st.Bytes = fi.Size()
			if recs, err := s.Read(ctx, name); err != nil {
				st.Err = err.Error()
			} else {
				st.Records = len(recs)
			}
		}
		out = append(out, st)
	}
	return out
}

type refFields struct {
	ID    json.RawMessage `json:"id"`
	Image *string         `json:"image"`
	Src   *string         `json:"src"`
}

// RecordID returns the record's id rendered as a string, or "".
func RecordID(raw json.RawMessage) string {
	var f refFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return ""
	}
	return model.IDString(f.ID)
}

// ImageRef returns the record's "image" field, falling back to "src".
func ImageRef(raw json.RawMessage) string {
	var f refFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return ""
	}
	if f.Image != nil && *f.Image != "" {
		return *f.Image
	}
	if f.Src != nil {
		return *f.Src
	}
	return ""
}
