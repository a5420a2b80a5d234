package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartbook/heartbook/internal/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func raws(t *testing.T, objs ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(objs))
	for _, o := range objs {
		require.True(t, json.Valid([]byte(o)), o)
		out = append(out, json.RawMessage(o))
	}
	return out
}

func TestReadMissingFile(t *testing.T) {
	s := newStore(t)
	_, err := s.Read(context.Background(), "photos.json")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestReadCorruptFile(t *testing.T) {
	s := newStore(t)
	for _, content := range []string{"", "{not json", `{"id":"1"}`, "null", "[1,"} {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "dreams.json"), []byte(content), 0o644))
		_, err := s.Read(context.Background(), "dreams.json")
		assert.ErrorIs(t, err, model.ErrCorruptData, "content %q", content)
	}
}

func TestWriteThenRead(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	in := raws(t, `{"id":"1","title":"First Date"}`, `{"id":"2","title":"Trip","nested":{"a":[1,2]}}`)
	require.NoError(t, s.Write(ctx, "timeline-events.json", in))

	out, err := s.Read(ctx, "timeline-events.json")
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.JSONEq(t, string(in[i]), string(out[i]))
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "timeline-events.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {", "stored pretty-printed with two-space indent")
}

func TestWriteNilStoresEmptyArray(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Write(context.Background(), "promises.json", nil))
	data, err := os.ReadFile(filepath.Join(s.Dir(), "promises.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	out, err := s.Read(context.Background(), "promises.json")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestWriteRejectsInvalidRecords(t *testing.T) {
	s := newStore(t)
	err := s.Write(context.Background(), "photos.json", []json.RawMessage{json.RawMessage("{bad")})
	require.ErrorIs(t, err, model.ErrValidation)
	_, statErr := os.Stat(filepath.Join(s.Dir(), "photos.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFailedWriteKeepsExistingFile(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "photos.json", raws(t, `{"id":"1","src":"/photos/photo_1.jpg"}`)))
	path := filepath.Join(s.Dir(), "photos.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = s.Write(ctx, "photos.json", []json.RawMessage{json.RawMessage(`{"id":"2"}`), json.RawMessage("{bad")})
	require.ErrorIs(t, err, model.ErrValidation)

	// The final rename fails when a non-empty directory holds the name.
	blocked := filepath.Join(s.Dir(), "dreams.json")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "keep"), nil, 0o644))
	err = s.Write(ctx, "dreams.json", nil)
	require.ErrorIs(t, err, model.ErrIO)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	out, err := s.Read(ctx, "photos.json")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "1", RecordID(out[0]))
}

func TestFilenameValidation(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, name := range []string{"", "../photos.json", "a/b.json", ".hidden.json", "photos.txt"} {
		_, err := s.Read(ctx, name)
		assert.ErrorIs(t, err, model.ErrValidation, "name %q", name)
		assert.ErrorIs(t, s.Write(ctx, name, nil), model.ErrValidation, "name %q", name)
	}
}

func TestDeleteByID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "photos.json", raws(t,
		`{"id":"a","src":"/photos/photo_1.jpg"}`,
		`{"id":1718000000000,"src":"/photos/photo_2.jpg"}`,
		`{"id":"c","src":"/photos/photo_3.jpg"}`,
	)))

	removed, err := s.DeleteByID(ctx, "photos.json", "1718000000000")
	require.NoError(t, err)
	assert.Equal(t, "/photos/photo_2.jpg", ImageRef(removed))

	out, err := s.Read(ctx, "photos.json")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", RecordID(out[0]))
	assert.Equal(t, "c", RecordID(out[1]))
}

func TestDeleteByIDMissingRecordLeavesFile(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "dreams.json", raws(t, `{"id":"a"}`)))
	before, err := os.ReadFile(filepath.Join(s.Dir(), "dreams.json"))
	require.NoError(t, err)

	_, err = s.DeleteByID(ctx, "dreams.json", "zzz")
	require.ErrorIs(t, err, model.ErrNotFound)

	after, err := os.ReadFile(filepath.Join(s.Dir(), "dreams.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = s.DeleteByID(ctx, "dreams.json", "")
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = s.DeleteByID(ctx, "anniversaries.json", "a")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestConcurrentWritesAndDeletesStayWellFormed(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seed := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		seed = append(seed, fmt.Sprintf(`{"id":"%d"}`, i))
	}
	require.NoError(t, s.Write(ctx, "love-notes.json", raws(t, seed...)))

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			_, _ = s.DeleteByID(ctx, "love-notes.json", fmt.Sprint(i))
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = s.Write(ctx, "love-notes.json", raws(t, fmt.Sprintf(`{"id":"w%d"}`, i)))
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.Read(ctx, "love-notes.json")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := s.Read(ctx, "love-notes.json")
	require.NoError(t, err)
}

func TestEnsureAndStats(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "photos.json", raws(t, `{"id":"a"}`, `{"id":"b"}`)))
	require.NoError(t, s.Ensure(ctx, "photos.json"))
	require.NoError(t, s.Ensure(ctx, "dreams.json"))

	stats := s.Stats(ctx, []string{"photos.json", "dreams.json", "promises.json"})
	require.Len(t, stats, 3)
	assert.Equal(t, 2, stats[0].Records)
	assert.Positive(t, stats[0].Bytes)
	assert.Equal(t, 0, stats[1].Records)
	assert.Empty(t, stats[1].Err)
	assert.NotEmpty(t, stats[2].Err)
}

func TestImageRef(t *testing.T) {
	assert.Equal(t, "/photos/a.jpg", ImageRef(json.RawMessage(`{"image":"/photos/a.jpg"}`)))
	assert.Equal(t, "/photos/b.jpg", ImageRef(json.RawMessage(`{"src":"/photos/b.jpg"}`)))
	assert.Equal(t, "", ImageRef(json.RawMessage(`{"title":"x"}`)))
	assert.Equal(t, "", ImageRef(json.RawMessage(`[1]`)))
}
