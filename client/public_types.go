package client

import (
	"context"
	"encoding/json"

	"github.com/heartbook/heartbook/client/internal/job"
	"github.com/heartbook/heartbook/internal/model"
	"github.com/heartbook/heartbook/internal/settings"
)

// Public aliases so callers can import only the client package.
type (
	Kind   = model.Kind
	Record = model.Record
	Fields = model.Fields

	TimelineEvent = model.TimelineEvent
	Photo         = model.Photo
	LoveNote      = model.LoveNote
	Promise       = model.Promise
	Anniversary   = model.Anniversary
	Dream         = model.Dream

	Config  = settings.Config
	Lockout = settings.Lockout
)

const (
	KindTimeline    = model.KindTimeline
	KindPhoto       = model.KindPhoto
	KindNote        = model.KindNote
	KindPromise     = model.KindPromise
	KindAnniversary = model.KindAnniversary
	KindDream       = model.KindDream
)

// Kinds lists every collection in dashboard order.
var Kinds = model.Kinds

// ParseKind accepts a kind name, its plural or its filename.
func ParseKind(s string) (Kind, error) { return model.ParseKind(s) }

// WriteAck tracks a background collection write. The in-memory change is
// visible immediately; the ack reports when the server has stored it.
type WriteAck struct {
	Kind     Kind
	RecordID string
	t        *job.Tracked
}

// Done is closed once the write has succeeded or finally failed.
func (a *WriteAck) Done() <-chan struct{} { return a.t.Done() }

// Wait blocks until the write finishes and returns its final error.
func (a *WriteAck) Wait(ctx context.Context) error { return a.t.Wait(ctx) }

// Err returns the final error, or nil while the write is still pending.
func (a *WriteAck) Err() error { return a.t.Err() }

// Snapshot is the export/import backup document.
type Snapshot struct {
	TimelineEvents []json.RawMessage `json:"timelineEvents"`
	Photos         []json.RawMessage `json:"photos"`
	LoveNotes      []json.RawMessage `json:"loveNotes"`
	Promises       []json.RawMessage `json:"promises"`
	Anniversaries  []json.RawMessage `json:"anniversaries"`
	Dreams         []json.RawMessage `json:"dreams"`
}

func (s *Snapshot) slot(k Kind) *[]json.RawMessage {
	switch k {
	case KindTimeline:
		return &s.TimelineEvents
	case KindPhoto:
		return &s.Photos
	case KindNote:
		return &s.LoveNotes
	case KindPromise:
		return &s.Promises
	case KindAnniversary:
		return &s.Anniversaries
	case KindDream:
		return &s.Dreams
	}
	return nil
}

// CollectionStats describes the size of one collection as it would be stored.
type CollectionStats struct {
	Kind     Kind
	Filename string
	Records  int
	Bytes    int
}
