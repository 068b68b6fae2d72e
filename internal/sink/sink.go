// Package sink supplies concrete event sinks for the driver's
// (CorpusDelta, Stats) output (§4.8). It deliberately treats an admitted
// candidate's bytes as opaque: the on-disk corpus serialization format
// itself stays a named-but-unspecified interface, per spec.md §1's
// Non-goals; callers supply an Encoder to produce the bytes a sink writes.
package sink

import "github.com/orizon-lang/orizon-fuzz/internal/poolsensor"

// Encoder renders a candidate of type T to bytes for a sink that needs a
// concrete representation (e.g. sink.File). The driver core never picks
// this encoding itself.
type Encoder[T any] func(T) ([]byte, error)

// Func adapts a plain function into a poolsensor.EventHandler. The driver
// has no default sink of its own: every driver.Bind call is given its
// handler explicitly.
func Func[T any, Idx comparable](f func(poolsensor.CorpusDelta[T, Idx], poolsensor.Stats) error) poolsensor.EventHandler[T, Idx] {
	return f
}

// Discard is an EventHandler that drops every delta, useful in tests that
// only care about a pool's admission decision.
func Discard[T any, Idx comparable]() poolsensor.EventHandler[T, Idx] {
	return func(poolsensor.CorpusDelta[T, Idx], poolsensor.Stats) error { return nil }
}

// Tee fans one delta out to every handler in hs, stopping at the first
// error.
func Tee[T any, Idx comparable](hs ...poolsensor.EventHandler[T, Idx]) poolsensor.EventHandler[T, Idx] {
	return func(delta poolsensor.CorpusDelta[T, Idx], stats poolsensor.Stats) error {
		for _, h := range hs {
			if err := h(delta, stats); err != nil {
				return err
			}
		}

		return nil
	}
}
