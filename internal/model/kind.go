package model

import (
	"fmt"
	"strings"
)

// Kind names one of the six content collections.
type Kind string

const (
	KindTimeline    Kind = "timeline"
	KindPhoto       Kind = "photo"
	KindNote        Kind = "note"
	KindPromise     Kind = "promise"
	KindAnniversary Kind = "anniversary"
	KindDream       Kind = "dream"
)

// PlaceholderImage is stored in a record's image field when no file was uploaded.
// It is served by the placeholder endpoint and never owns a file on disk.
const PlaceholderImage = "/api/placeholder/400/300"

// ConfigFilename is the configuration document kept next to the collections.
const ConfigFilename = "config.json"

// Kinds lists every collection in dashboard order.
var Kinds = []Kind{KindTimeline, KindPhoto, KindNote, KindPromise, KindAnniversary, KindDream}

var filenames = map[Kind]string{
	KindTimeline:    "timeline-events.json",
	KindPhoto:       "photos.json",
	KindNote:        "love-notes.json",
	KindPromise:     "promises.json",
	KindAnniversary: "anniversaries.json",
	KindDream:       "dreams.json",
}

// Filename returns the JSON file backing the collection, or "" for an unknown kind.
func (k Kind) Filename() string { return filenames[k] }

// Valid reports whether k is one of the six known collections.
func (k Kind) Valid() bool {
	_, ok := filenames[k]
	return ok
}

// KindForFilename maps a collection filename back to its kind.
func KindForFilename(name string) (Kind, bool) {
	for k, f := range filenames {
		if f == name {
			return k, true
		}
	}
	return "", false
}

// ParseKind accepts a kind name ("dream"), its plural ("dreams") or its filename.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	if k, ok := KindForFilename(s); ok {
		return k, nil
	}
	switch s {
	case "timeline-events", "events":
		return KindTimeline, nil
	case "photos", "gallery":
		return KindPhoto, nil
	case "notes", "love-notes":
		return KindNote, nil
	case "promises":
		return KindPromise, nil
	case "anniversaries":
		return KindAnniversary, nil
	case "dreams":
		return KindDream, nil
	}
	return "", NewValidationError("kind", fmt.Sprintf("unknown collection %q", s))
}
