// Package client is the data façade used by the dashboard tooling. It keeps
// every collection in memory, applies changes there first and persists each
// collection as a whole through a per-collection FIFO write queue.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/heartbook/heartbook/client/internal/api"
	"github.com/heartbook/heartbook/client/internal/job"
	"github.com/heartbook/heartbook/client/internal/shardqueue"
	"github.com/heartbook/heartbook/internal/api/validate"
	"github.com/heartbook/heartbook/internal/collection"
	"github.com/heartbook/heartbook/internal/model"
	"github.com/heartbook/heartbook/internal/settings"
)

const defaultHTTPTimeout = 30 * time.Second

// entry is one stored record. raw is what gets written back; rec.Fields is
// nil when raw could not be decoded, in which case the record is kept for
// writes but hidden from List.
type entry struct {
	rec model.Record
	raw json.RawMessage
}

type Client struct {
	baseURL  string
	rc       *resty.Client
	exec     executor
	log      zerolog.Logger
	debug    bool
	queueCfg shardqueue.Config
	now      func() time.Time
	ids      *idGenerator

	mu   sync.RWMutex
	data map[Kind][]entry

	closedOnce uint32 // ensures Close is idempotent
}

// New constructs a Client for the server at baseURL. Queue tuning is read
// from HEARTBOOK_CLIENT_* variables; options take precedence.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL cannot be empty")
	}

	qcfg, envErr := shardqueue.LoadConfig()
	if envErr != nil {
		qcfg = shardqueue.Config{}
	}

	c := &Client{
		baseURL:  baseURL,
		rc:       api.NewRestyClient(baseURL, defaultHTTPTimeout),
		log:      zerolog.Nop(),
		queueCfg: qcfg,
		now:      time.Now,
		data:     make(map[Kind][]entry, len(model.Kinds)),
	}
	c.ids = newIDGenerator(func() time.Time { return c.now() })
	for _, k := range model.Kinds {
		c.data[k] = []entry{}
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if envErr != nil {
		c.log.Warn().Err(envErr).Msg("invalid HEARTBOOK_CLIENT_ settings, using defaults")
	}

	if c.debug {
		base := c.rc.GetClient().Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.rc.SetTransport(&debugTransport{base: base, log: c.log})
	}
	if c.exec == nil {
		c.queueCfg.Logger = c.log
		c.exec = shardqueue.NewShardExecutor(c.queueCfg)
	}
	return c, nil
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Init loads all six collections in parallel. A collection that cannot be
// fetched starts empty; the failure is logged and Init still succeeds.
func (c *Client) Init(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	loaded := make([][]entry, len(model.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range model.Kinds {
		i, k := i, k
		g.Go(func() error {
			loaded[i] = c.fetch(gctx, k)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	for i, k := range model.Kinds {
		c.data[k] = loaded[i]
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) fetch(ctx context.Context, kind Kind) []entry {
	raws, err := api.ReadCollection(ctx, c.rc, kind.Filename())
	if err != nil {
		loadFailuresTotal.WithLabelValues(string(kind)).Inc()
		c.log.Warn().Err(err).Str("collection", kind.Filename()).Msg("collection unavailable, starting empty")
		return []entry{}
	}
	return c.decodeAll(kind, raws)
}

func (c *Client) decodeAll(kind Kind, raws []json.RawMessage) []entry {
	out := make([]entry, 0, len(raws))
	for _, raw := range raws {
		rec, err := model.DecodeRecord(kind, raw)
		if err != nil {
			c.log.Warn().Err(err).Str("collection", kind.Filename()).Msg("keeping undecodable record as-is")
			rec = model.Record{ID: collection.RecordID(raw)}
		}
		out = append(out, entry{rec: rec, raw: append(json.RawMessage(nil), raw...)})
	}
	return out
}

// List returns a copy of the decodable records of kind in stored order.
func (c *Client) List(kind Kind) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Record, 0, len(c.data[kind]))
	for _, e := range c.data[kind] {
		if e.rec.Fields != nil {
			out = append(out, e.rec)
		}
	}
	return out
}

// Get returns the record of kind with id.
func (c *Client) Get(kind Kind, id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.data[kind], id); i >= 0 && c.data[kind][i].rec.Fields != nil {
		return c.data[kind][i].rec, true
	}
	return Record{}, false
}

// Snapshot returns the in-memory state of every collection as a backup document.
func (c *Client) Snapshot() Snapshot {
	var s Snapshot
	for _, k := range model.Kinds {
		*s.slot(k) = c.rawCollection(k)
	}
	return s
}

// Import replaces every collection present in s and waits until the server
// has stored them. Collections absent from s (null or missing) are left alone.
func (c *Client) Import(ctx context.Context, s Snapshot) error {
	if c.isClosed() {
		return ErrClosed
	}
	staged := map[Kind][]entry{}
	for _, k := range model.Kinds {
		raws := *s.slot(k)
		if raws == nil {
			continue
		}
		b, err := json.Marshal(raws)
		if err != nil {
			return model.NewValidationError(string(k), err.Error())
		}
		if _, err := validate.JSONArray(string(k), b); err != nil {
			return model.NewValidationError(string(k), err.Error())
		}
		staged[k] = c.decodeAll(k, raws)
	}

	var acks []*WriteAck
	for _, k := range model.Kinds {
		entries, ok := staged[k]
		if !ok {
			continue
		}
		c.mu.Lock()
		c.data[k] = entries
		c.mu.Unlock()
		ack, err := c.enqueueWrite(ctx, k, "")
		if err != nil {
			return err
		}
		acks = append(acks, ack)
	}
	return waitAll(ctx, acks)
}

// Clear empties one collection and waits for the server to store it.
func (c *Client) Clear(ctx context.Context, kind Kind) error {
	if !kind.Valid() {
		return model.NewValidationError("kind", "unknown collection "+string(kind))
	}
	if c.isClosed() {
		return ErrClosed
	}
	c.mu.Lock()
	c.data[kind] = []entry{}
	c.mu.Unlock()
	ack, err := c.enqueueWrite(ctx, kind, "")
	if err != nil {
		return err
	}
	return ack.Wait(ctx)
}

// Stats reports the record count and serialized size of every collection.
func (c *Client) Stats() []CollectionStats {
	out := make([]CollectionStats, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		raws := c.rawCollection(k)
		b, _ := json.Marshal(raws)
		out = append(out, CollectionStats{Kind: k, Filename: k.Filename(), Records: len(raws), Bytes: len(b)})
	}
	return out
}

// UploadPhoto sends an image to the server and returns its public path.
func (c *Client) UploadPhoto(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	res, err := api.UploadPhoto(ctx, c.rc, name, contentType, r)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return res.URL, nil
}

// LoadConfig returns the lock-screen configuration. Any failure yields the
// defaults, and fields missing on the server are filled from them.
func (c *Client) LoadConfig(ctx context.Context) Config {
	cfg, err := api.GetConfig(ctx, c.rc)
	if err != nil {
		c.log.Warn().Err(err).Msg("config unavailable, using defaults")
		return settings.Default()
	}
	return cfg.WithDefaults()
}

// UpdatePassword replaces the lock-screen passphrase on the server.
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return model.NewValidationError("password", "must not be empty")
	}
	if err := api.UpdatePassword(ctx, c.rc, password); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// AwaitConsistency blocks until every write and delete submitted so far for
// kind has finished.
func (c *Client) AwaitConsistency(ctx context.Context, kind Kind) error {
	if !kind.Valid() {
		return model.NewValidationError("kind", "unknown collection "+string(kind))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.exec.Barrier(ctx, kind.Filename())
}

// Close drains the write queue and stops it. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.exec.Stop()
	return nil
}

func (c *Client) isClosed() bool { return atomic.LoadUint32(&c.closedOnce) == 1 }

// --------------------------------------------------------------------
// write queue plumbing
// --------------------------------------------------------------------

// trackedOp logs and counts a queued operation's final failure before
// releasing its waiters.
type trackedOp struct {
	*job.Tracked
	c    *Client
	kind Kind
	op   string
}

func (t *trackedOp) Complete(err error) {
	if err != nil {
		writesFailedTotal.WithLabelValues(string(t.kind)).Inc()
		t.c.log.Error().Err(err).Str("collection", t.kind.Filename()).Str("op", t.op).Msg("collection update failed")
	}
	t.Tracked.Complete(err)
}

func (c *Client) newOp(kind Kind, op string, fn func(context.Context) error) *trackedOp {
	return &trackedOp{Tracked: job.NewTracked(fn), c: c, kind: kind, op: op}
}

func (c *Client) submit(ctx context.Context, kind Kind, j shardqueue.Job) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.exec.Submit(ctx, kind.Filename(), j); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind.Filename(), err)
	}
	writesEnqueuedTotal.WithLabelValues(string(kind)).Inc()
	return nil
}

// enqueueWrite schedules a write of the whole collection. The payload is
// taken when the job runs, so a later write always carries every earlier
// change. The write outlives ctx cancellation.
func (c *Client) enqueueWrite(ctx context.Context, kind Kind, recordID string) (*WriteAck, error) {
	filename := kind.Filename()
	op := c.newOp(kind, "write", func(jobCtx context.Context) error {
		// Taken at run time so concurrent submitters all land in the last write.
		return api.WriteCollection(jobCtx, c.rc, filename, c.rawCollection(kind))
	})
	if err := c.submit(context.WithoutCancel(ctx), kind, op); err != nil {
		return nil, err
	}
	return &WriteAck{Kind: kind, RecordID: recordID, t: op.Tracked}, nil
}

func (c *Client) rawCollection(kind Kind) []json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]json.RawMessage, len(c.data[kind]))
	for i, e := range c.data[kind] {
		out[i] = e.raw
	}
	return out
}

func (c *Client) removeLocal(kind Kind, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.data[kind]
	if i := indexOf(entries, id); i >= 0 {
		next := make([]entry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		c.data[kind] = append(next, entries[i+1:]...)
	}
}

func indexOf(entries []entry, id string) int {
	for i, e := range entries {
		if e.rec.ID == id {
			return i
		}
	}
	return -1
}

func waitAll(ctx context.Context, acks []*WriteAck) error {
	var errs []error
	for _, a := range acks {
		if err := a.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Kind.Filename(), err))
		}
	}
	return errors.Join(errs...)
}
