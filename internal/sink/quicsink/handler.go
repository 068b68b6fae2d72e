package quicsink

import (
	"encoding/hex"
	"fmt"

	"github.com/orizon-lang/orizon-fuzz/internal/poolsensor"
)

// Encoder renders a candidate of type T to bytes for transmission, mirroring
// sink.Encoder; kept as its own type to avoid quicsink depending on the
// sink package for a single function type.
type Encoder[T any] func(T) ([]byte, error)

// EventHandler adapts a Server into a poolsensor.EventHandler: every delta
// is translated into a Record and sent to whatever observer is currently
// connected (a no-op if none is).
func EventHandler[T any, Idx comparable](server *Server, encode Encoder[T]) poolsensor.EventHandler[T, Idx] {
	return func(delta poolsensor.CorpusDelta[T, Idx], stats poolsensor.Stats) error {
		rec := Record{Path: delta.Path, Stats: stats.String()}

		for _, idx := range delta.Remove {
			rec.Removed = append(rec.Removed, fmt.Sprint(idx))
		}

		if delta.Add != nil {
			rec.Added = true
			rec.Index = fmt.Sprint(delta.Add.Index)

			if encode != nil {
				b, err := encode(*delta.Add.Case)
				if err != nil {
					return err
				}

				rec.CaseHex = hex.EncodeToString(b)
			}
		}

		return server.Send(rec)
	}
}
