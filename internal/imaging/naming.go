package imaging

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultExt   = "jpg"
	maxExtLength = 5
)

// extensionFor derives the stored extension from the client's filename.
// Anything that is not a short alphanumeric suffix falls back to jpg.
func extensionFor(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || len(ext) > maxExtLength {
		return defaultExt
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExt
		}
	}
	return ext
}

// stamper hands out strictly increasing nanosecond timestamps so names minted
// by one process never repeat, even within the same clock tick.
type stamper struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (s *stamper) next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixNano()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}

func photoName(ts int64, ext string) string {
	return fmt.Sprintf("photo_%d.%s", ts, ext)
}
