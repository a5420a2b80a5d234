package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout matches the ISO-8601 form browsers produce for createdAt
// (millisecond precision, UTC "Z").
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is the envelope shared by all six collections. On the wire it is a
// single flat JSON object: id and createdAt next to the variant's fields.
type Record struct {
	ID        string
	CreatedAt time.Time
	Fields    Fields
}

// Kind returns the collection the record belongs to.
func (r Record) Kind() Kind {
	if r.Fields == nil {
		return ""
	}
	return r.Fields.Kind()
}

// ImageRef returns the public image path the record points at, if any.
func (r Record) ImageRef() string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields.ImageRef()
}

// MarshalJSON flattens the envelope and the field set into one object.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := map[string]json.RawMessage{}
	if r.Fields != nil {
		b, err := json.Marshal(r.Fields)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil, err
		}
	}
	id, _ := json.Marshal(r.ID)
	obj["id"] = id
	created, _ := json.Marshal(r.CreatedAt.UTC().Format(TimestampLayout))
	obj["createdAt"] = created
	return json.Marshal(obj)
}

type recordHeader struct {
	ID        json.RawMessage `json:"id"`
	CreatedAt string          `json:"createdAt"`
}

// DecodeRecord parses one stored record of the given kind. Records written by
// older clients may carry numeric ids or no createdAt; both are tolerated.
func DecodeRecord(kind Kind, raw []byte) (Record, error) {
	fields, err := NewFields(kind)
	if err != nil {
		return Record{}, err
	}
	var hdr recordHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return Record{}, fmt.Errorf("decode %s record: %w", kind, ErrCorruptData)
	}
	if err := json.Unmarshal(raw, fields); err != nil {
		return Record{}, fmt.Errorf("decode %s record fields: %w", kind, ErrCorruptData)
	}
	rec := Record{ID: IDString(hdr.ID), Fields: fields}
	if hdr.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, hdr.CreatedAt); err == nil {
			rec.CreatedAt = ts
		}
	}
	return rec, nil
}

// IDString renders a raw JSON id as a string: strings are unquoted, numbers
// keep their literal text, anything else yields "".
func IDString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return ""
		}
		return out
	}
	if s[0] == '-' || (s[0] >= '0' && s[0] <= '9') {
		return s
	}
	return ""
}

// ApplyPatch merges patch into the record's fields. id and createdAt are
// immutable and silently ignored when present in the patch.
func ApplyPatch(r Record, patch map[string]any) (Record, error) {
	if r.Fields == nil {
		return Record{}, NewValidationError("fields", "record has no field set")
	}
	cur, err := json.Marshal(r.Fields)
	if err != nil {
		return Record{}, err
	}
	obj := map[string]any{}
	if err := json.Unmarshal(cur, &obj); err != nil {
		return Record{}, err
	}
	for k, v := range patch {
		if k == "id" || k == "createdAt" {
			continue
		}
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return Record{}, err
	}
	next, err := NewFields(r.Kind())
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(merged, next); err != nil {
		return Record{}, NewValidationError("patch", err.Error())
	}
	if err := ValidateFields(next); err != nil {
		return Record{}, err
	}
	return Record{ID: r.ID, CreatedAt: r.CreatedAt, Fields: next}, nil
}
