//go:build windows

package coversensor

// SharedRegion falls back to a plain heap allocation on platforms without
// an anonymous-mmap primitive in golang.org/x/sys; it still satisfies the
// "borrowed contiguous byte array" contract, just without cross-process
// sharing.
type SharedRegion struct {
	bytes []byte
}

// NewSharedRegion allocates size bytes.
func NewSharedRegion(size int) (*SharedRegion, error) {
	return &SharedRegion{bytes: make([]byte, size)}, nil
}

// Bytes returns the borrowed counter array backing this region.
func (r *SharedRegion) Bytes() []byte {
	return r.bytes
}

// Close is a no-op on this platform.
func (r *SharedRegion) Close() error {
	return nil
}
