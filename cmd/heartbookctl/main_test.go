package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartbook/heartbook/client"
	"github.com/heartbook/heartbook/internal/api"
	"github.com/heartbook/heartbook/internal/collection"
	"github.com/heartbook/heartbook/internal/imaging"
	"github.com/heartbook/heartbook/internal/services"
	"github.com/heartbook/heartbook/internal/settings"
)

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	log := zerolog.Nop()
	store, err := collection.Open(filepath.Join(root, "data"), log)
	require.NoError(t, err)
	images, err := imaging.New(imaging.Config{Dir: filepath.Join(root, "photos")}, log)
	require.NoError(t, err)
	records := services.NewRecordService(store, images, log)
	require.NoError(t, records.Seed(context.Background()))
	srv := httptest.NewServer(api.NewRouter(api.Deps{
		Records:        records,
		Images:         images,
		Settings:       settings.New(store.Dir(), log),
		Healthy:        func() bool { return true },
		MaxUploadBytes: 1 << 20,
		Log:            log,
	}))
	t.Cleanup(srv.Close)
	return srv, store.Dir()
}

func newLoadedClient(t *testing.T, url string) *client.Client {
	t.Helper()
	c, err := client.New(url, client.WithRetryPolicy(1, time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Init(context.Background()))
	return c
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddListDelete(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	var out bytes.Buffer

	c := newLoadedClient(t, srv.URL)
	require.NoError(t, runAdd(ctx, c, "timeline", `{"title":"First Date","date":"2023-02-14"}`, "", &out))
	assert.Contains(t, out.String(), "added timeline ")

	c = newLoadedClient(t, srv.URL)
	out.Reset()
	require.NoError(t, runList(c, "timeline", false, &out))
	assert.Contains(t, out.String(), "First Date")
	assert.Contains(t, out.String(), "2023-02-14")

	recs := c.List(client.KindTimeline)
	require.Len(t, recs, 1)
	out.Reset()
	require.NoError(t, runUpdate(ctx, c, "timeline", recs[0].ID, `{"title":"Our First Date"}`, &out))
	require.NoError(t, runDelete(ctx, c, "timeline", recs[0].ID, &out))
	assert.Contains(t, out.String(), "deleted timeline "+recs[0].ID)
	assert.Empty(t, c.List(client.KindTimeline))
}

func TestAdd_RejectsBadInput(t *testing.T) {
	srv, _ := newServer(t)
	c := newLoadedClient(t, srv.URL)
	var out bytes.Buffer

	require.Error(t, runAdd(context.Background(), c, "dreams", `not json`, "", &out))
	require.Error(t, runAdd(context.Background(), c, "spaceships", `{}`, "", &out))
	require.Error(t, runAdd(context.Background(), c, "notes", `{}`, "pic.png", &out), "notes have no image")
}

func TestAdd_WithImage(t *testing.T) {
	srv, _ := newServer(t)
	c := newLoadedClient(t, srv.URL)

	path := filepath.Join(t.TempDir(), "us.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 20, 10))))
	require.NoError(t, f.Close())

	var out bytes.Buffer
	require.NoError(t, runAdd(context.Background(), c, "photos", `{"alt":"us"}`, path, &out))
	photos := c.List(client.KindPhoto)
	require.Len(t, photos, 1)
	assert.True(t, strings.HasPrefix(photos[0].ImageRef(), "/photos/photo_"), photos[0].ImageRef())
}

func TestExportImportStats(t *testing.T) {
	src, _ := newServer(t)
	ctx := context.Background()
	c := newLoadedClient(t, src.URL)
	var out bytes.Buffer
	require.NoError(t, runAdd(ctx, c, "promises", `{"title":"Always"}`, "", &out))

	var backup bytes.Buffer
	require.NoError(t, runExport(c, &backup))
	var doc map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal(backup.Bytes(), &doc))
	assert.Len(t, doc["promises"], 1)
	assert.Contains(t, doc, "timelineEvents")

	dst, dataDir := newServer(t)
	d := newLoadedClient(t, dst.URL)
	out.Reset()
	require.NoError(t, runImport(ctx, d, &backup, &out))
	stored, err := os.ReadFile(filepath.Join(dataDir, "promises.json"))
	require.NoError(t, err)
	assert.Contains(t, string(stored), "Always")

	out.Reset()
	require.NoError(t, runStats(d, &out))
	assert.Contains(t, out.String(), "promises.json")
	assert.Contains(t, out.String(), "total")

	require.Error(t, runImport(ctx, d, strings.NewReader("{"), &out))
	assert.Equal(t, "my-life-data-2024-02-14.json", backupName(time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)))
}

func TestCommands_ConfigAndPassword(t *testing.T) {
	srv, _ := newServer(t)

	out, err := execute(t, "--api", srv.URL, "config")
	require.NoError(t, err)
	assert.Contains(t, out, `"password": "23"`)

	out, err = execute(t, "--api", srv.URL, "password", "forever")
	require.NoError(t, err)
	assert.Contains(t, out, "passphrase updated")

	out, err = execute(t, "--api", srv.URL, "config")
	require.NoError(t, err)
	assert.Contains(t, out, `"password": "forever"`)
}

func TestCommands_ClearNeedsConfirmation(t *testing.T) {
	srv, _ := newServer(t)
	_, err := execute(t, "--api", srv.URL, "clear", "dreams")
	require.Error(t, err)

	out, err := execute(t, "--api", srv.URL, "clear", "dreams", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared dreams.json")
}
