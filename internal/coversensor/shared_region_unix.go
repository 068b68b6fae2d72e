//go:build !windows

package coversensor

import "golang.org/x/sys/unix"

// SharedRegion is an anonymous memory-mapped byte slice suitable for use as
// a Sensor's edge-counter array across a process boundary (e.g. a forked
// worker that shares the region with its parent), mirroring how
// Sanitizer-coverage-instrumented binaries expose their counter region.
// Close unmaps the region.
type SharedRegion struct {
	bytes []byte
}

// NewSharedRegion mmaps size bytes of anonymous, shared memory.
func NewSharedRegion(size int) (*SharedRegion, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return &SharedRegion{bytes: b}, nil
}

// Bytes returns the borrowed counter array backing this region.
func (r *SharedRegion) Bytes() []byte {
	return r.bytes
}

// Close unmaps the region.
func (r *SharedRegion) Close() error {
	return unix.Munmap(r.bytes)
}
