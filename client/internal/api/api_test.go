package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/heartbook/heartbook/client/internal/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*httptest.Server, func() *resty.Client) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, func() *resty.Client { return NewRestyClient(srv.URL, 2*time.Second) }
}

func TestReadCollection(t *testing.T) {
	t.Parallel()
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/data", r.URL.Path)
		assert.Equal(t, "dreams.json", r.URL.Query().Get("filename"))
		_, _ = io.WriteString(w, `[{"id":"1","title":"Paris"}]`)
	})

	recs, err := ReadCollection(context.Background(), rc(), "dreams.json")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.JSONEq(t, `{"id":"1","title":"Paris"}`, string(recs[0]))
}

func TestReadCollection_NotFoundIsIrrecoverable(t *testing.T) {
	t.Parallel()
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"error":"File not found","code":404}`)
	})

	_, err := ReadCollection(context.Background(), rc(), "dreams.json")
	require.Error(t, err)
	assert.True(t, cerrors.IsIrrecoverable(err))
	assert.Equal(t, http.StatusNotFound, cerrors.StatusCode(err))
	assert.Contains(t, err.Error(), "File not found")
}

func TestWriteCollection_SendsWholeArray(t *testing.T) {
	t.Parallel()
	var got writeRequest
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true,"message":"Data saved successfully"}`)
	})

	err := WriteCollection(context.Background(), rc(), "promises.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "promises.json", got.Filename)
	assert.NotNil(t, got.Data)
	assert.Empty(t, got.Data)
}

func TestWriteCollection_ServerErrorIsRecoverable(t *testing.T) {
	t.Parallel()
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := WriteCollection(context.Background(), rc(), "promises.json", []json.RawMessage{json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.False(t, cerrors.IsIrrecoverable(err))
	assert.Equal(t, http.StatusInternalServerError, cerrors.StatusCode(err))
}

func TestDeleteRecord(t *testing.T) {
	t.Parallel()
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "photos.json", r.URL.Query().Get("filename"))
		assert.Equal(t, "42", r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `{"success":true,"message":"Item deleted successfully"}`)
	})
	require.NoError(t, DeleteRecord(context.Background(), rc(), "photos.json", "42"))
}

func TestNetworkErrorIsRecoverable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := DeleteRecord(context.Background(), NewRestyClient(url, time.Second), "photos.json", "1")
	require.Error(t, err)
	assert.False(t, cerrors.IsIrrecoverable(err))
	assert.Equal(t, 0, cerrors.StatusCode(err))
}

func TestCancelledContextShortCircuits(t *testing.T) {
	t.Parallel()
	calls := 0
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCollection(ctx, rc(), "dreams.json")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestUploadPhoto(t *testing.T) {
	t.Parallel()
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(body))
		assert.Equal(t, "us.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"success":true,"url":"/photos/photo_1.jpg","filename":"photo_1.jpg"}`)
	})

	res, err := UploadPhoto(context.Background(), rc(), "us.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/photos/photo_1.jpg", res.URL)
	assert.Equal(t, "photo_1.jpg", res.Filename)
}

func TestUploadPhoto_Rejected(t *testing.T) {
	t.Parallel()
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"error":"Only image files are allowed","code":400}`)
	})
	_, err := UploadPhoto(context.Background(), rc(), "notes.txt", "text/plain", strings.NewReader("hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only image files are allowed")
}

func TestConfigCalls(t *testing.T) {
	t.Parallel()
	var posted map[string]string
	_, rc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"password":"secret","settings":{"maxAttempts":5}}`)
		case http.MethodPost:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			_, _ = io.WriteString(w, `{"success":true,"message":"Password updated successfully"}`)
		}
	})

	cfg, err := GetConfig(context.Background(), rc())
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 5, cfg.Settings.MaxAttempts)
	assert.Zero(t, cfg.Settings.LockoutTime)

	require.NoError(t, UpdatePassword(context.Background(), rc(), "new-pass"))
	assert.Equal(t, "new-pass", posted["password"])
}
