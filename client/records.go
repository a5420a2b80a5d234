package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/heartbook/heartbook/client/internal/api"
	cerrors "github.com/heartbook/heartbook/client/internal/errors"
	"github.com/heartbook/heartbook/internal/collection"
	"github.com/heartbook/heartbook/internal/model"
)

// Add fills the blanks in fields, validates them, assigns an id and
// createdAt, appends the record in memory and schedules a write of the whole
// collection. fields belongs to the client afterwards.
//
// The returned WriteAck reports when the server has stored the collection;
// failures are also logged and counted, so callers may ignore it.
func (c *Client) Add(ctx context.Context, fields Fields) (Record, *WriteAck, error) {
	if fields == nil {
		return Record{}, nil, model.NewValidationError("fields", "missing")
	}
	if c.isClosed() {
		return Record{}, nil, ErrClosed
	}
	now := c.now().UTC()
	model.ApplyDefaults(fields, now)
	if err := model.ValidateFields(fields); err != nil {
		return Record{}, nil, err
	}

	kind := fields.Kind()
	rec := Record{ID: c.ids.Next(), CreatedAt: now.Truncate(time.Millisecond), Fields: fields}
	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, nil, fmt.Errorf("encode %s record: %w", kind, err)
	}

	c.mu.Lock()
	c.data[kind] = append(c.data[kind], entry{rec: rec, raw: raw})
	c.mu.Unlock()

	ack, err := c.enqueueWrite(ctx, kind, rec.ID)
	if err != nil {
		c.removeLocal(kind, rec.ID)
		return Record{}, nil, err
	}
	return rec, ack, nil
}

func (c *Client) AddTimelineEvent(ctx context.Context, e TimelineEvent) (Record, *WriteAck, error) {
	return c.Add(ctx, &e)
}

func (c *Client) AddPhoto(ctx context.Context, p Photo) (Record, *WriteAck, error) {
	return c.Add(ctx, &p)
}

func (c *Client) AddLoveNote(ctx context.Context, n LoveNote) (Record, *WriteAck, error) {
	return c.Add(ctx, &n)
}

func (c *Client) AddPromise(ctx context.Context, p Promise) (Record, *WriteAck, error) {
	return c.Add(ctx, &p)
}

func (c *Client) AddAnniversary(ctx context.Context, a Anniversary) (Record, *WriteAck, error) {
	return c.Add(ctx, &a)
}

func (c *Client) AddDream(ctx context.Context, d Dream) (Record, *WriteAck, error) {
	return c.Add(ctx, &d)
}

// Update merges patch into the record's fields and schedules a write of the
// collection. id and createdAt cannot be changed.
func (c *Client) Update(ctx context.Context, kind Kind, id string, patch map[string]any) (Record, *WriteAck, error) {
	if !kind.Valid() {
		return Record{}, nil, model.NewValidationError("kind", "unknown collection "+string(kind))
	}
	if c.isClosed() {
		return Record{}, nil, ErrClosed
	}

	c.mu.Lock()
	i := indexOf(c.data[kind], id)
	if i < 0 || id == "" {
		c.mu.Unlock()
		return Record{}, nil, model.NewNotFoundError("record", fmt.Sprintf("%s %q", kind, id))
	}
	old := c.data[kind][i]
	if old.rec.Fields == nil {
		c.mu.Unlock()
		return Record{}, nil, model.NewValidationError("record", "stored record could not be decoded")
	}
	next, err := model.ApplyPatch(old.rec, patch)
	if err != nil {
		c.mu.Unlock()
		return Record{}, nil, err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		c.mu.Unlock()
		return Record{}, nil, fmt.Errorf("encode %s record: %w", kind, err)
	}
	c.data[kind][i] = entry{rec: next, raw: raw}
	c.mu.Unlock()

	ack, err := c.enqueueWrite(ctx, kind, id)
	if err != nil {
		c.mu.Lock()
		if j := indexOf(c.data[kind], id); j >= 0 {
			c.data[kind][j] = old
		}
		c.mu.Unlock()
		return Record{}, nil, err
	}
	return next, ack, nil
}

// Delete removes a record on the server and, once the server confirms, from
// memory. It runs behind every earlier write of the same collection and
// waits for the outcome. An owned image is removed by the server.
func (c *Client) Delete(ctx context.Context, kind Kind, id string) error {
	if !kind.Valid() {
		return model.NewValidationError("kind", "unknown collection "+string(kind))
	}
	if id == "" {
		return model.NewValidationError("id", "must not be empty")
	}
	filename := kind.Filename()
	// Set once an attempt may have reached the store without a verdict coming back.
	inDoubt := false
	op := c.newOp(kind, "delete", func(jobCtx context.Context) error {
		if err := api.DeleteRecord(jobCtx, c.rc, filename, id); err != nil {
			notFound := cerrors.StatusCode(err) == http.StatusInternalServerError
			if !notFound || !inDoubt {
				inDoubt = inDoubt || !notFound
				return err
			}
			gone, rerr := c.goneFromStore(jobCtx, filename, id)
			if rerr != nil || !gone {
				return err
			}
			c.log.Debug().Str("collection", filename).Str("id", id).Msg("earlier delete attempt was committed")
		}
		// Before the job finishes, so later writes of this collection never resend it.
		c.removeLocal(kind, id)
		return nil
	})
	if err := c.submit(ctx, kind, op); err != nil {
		return err
	}
	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return nil
}

// goneFromStore reports whether the stored collection no longer holds id.
func (c *Client) goneFromStore(ctx context.Context, filename, id string) (bool, error) {
	raws, err := api.ReadCollection(ctx, c.rc, filename)
	if err != nil {
		return false, err
	}
	for _, raw := range raws {
		if collection.RecordID(raw) == id {
			return false, nil
		}
	}
	return true, nil
}

func (c *Client) DeleteTimelineEvent(ctx context.Context, id string) error {
	return c.Delete(ctx, KindTimeline, id)
}

func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	return c.Delete(ctx, KindPhoto, id)
}

func (c *Client) DeleteLoveNote(ctx context.Context, id string) error {
	return c.Delete(ctx, KindNote, id)
}

func (c *Client) DeletePromise(ctx context.Context, id string) error {
	return c.Delete(ctx, KindPromise, id)
}

func (c *Client) DeleteAnniversary(ctx context.Context, id string) error {
	return c.Delete(ctx, KindAnniversary, id)
}

func (c *Client) DeleteDream(ctx context.Context, id string) error {
	return c.Delete(ctx, KindDream, id)
}
