package sink

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/orizon-lang/orizon-fuzz/internal/poolsensor"
)

// record is one NDJSON line written by File: the corpus delta alongside the
// pool's post-delta stats rendering.
type record struct {
	Path    string   `json:"path"`
	Stats   string   `json:"stats"`
	Added   bool     `json:"added"`
	Index   string   `json:"index,omitempty"`
	CaseHex string   `json:"case_hex,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// File writes one NDJSON record per delta to an io.Writer, encoding
// admitted candidates with the supplied Encoder. Safe for concurrent use.
type File[T any, Idx comparable] struct {
	w      io.Writer
	encode Encoder[T]
	mu     sync.Mutex
}

// NewFile creates a File sink writing to w.
func NewFile[T any, Idx comparable](w io.Writer, encode Encoder[T]) *File[T, Idx] {
	return &File[T, Idx]{w: w, encode: encode}
}

// Handle implements poolsensor.EventHandler[T, Idx].
func (s *File[T, Idx]) Handle(delta poolsensor.CorpusDelta[T, Idx], stats poolsensor.Stats) error {
	rec := record{Path: delta.Path, Stats: stats.String()}

	for _, idx := range delta.Remove {
		rec.Removed = append(rec.Removed, fmt.Sprint(idx))
	}

	if delta.Add != nil {
		rec.Added = true
		rec.Index = fmt.Sprint(delta.Add.Index)

		if s.encode != nil {
			b, err := s.encode(*delta.Add.Case)
			if err != nil {
				return err
			}

			rec.CaseHex = hex.EncodeToString(b)
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.w.Write(append(line, '\n'))

	return err
}
