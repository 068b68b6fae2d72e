// Package poolerr adapts internal/errors' standardized error format to the
// small closed set of failures a pool can surface from Process/Minify (§7).
package poolerr

import "github.com/orizon-lang/orizon-fuzz/internal/errors"

// Error is the concrete error type returned by Process/Minify.
type Error = errors.StandardError

// IO wraps an underlying I/O failure from event emission.
func IO(op string, err error) *Error {
	return errors.PoolIO(op, err)
}

// NotImplemented reports that op is not implemented by this pool.
func NotImplemented(op string) *Error {
	return errors.NotImplemented(op)
}
