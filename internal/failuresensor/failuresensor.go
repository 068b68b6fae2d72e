// Package failuresensor captures the most recent test failure raised during
// one test execution into a per-run slot.
//
// The test-function failure guard runs at an arbitrary call depth inside
// the test under evaluation, with no handle to a Sensor instance, so it
// writes into a process-wide slot instead; the Sensor drains that slot at
// the well-defined stop_recording boundary (§4.4, §9).
package failuresensor

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// TestFailure identifies one distinct failure: a stable id derived from the
// failure site and rendered message, and a human-readable display string.
// Equality for classification purposes is by ID alone.
type TestFailure struct {
	Display string
	ID      uint64
}

// NewTestFailure derives a stable ID from site and message using blake2b
// (chosen over crypto/sha256 because golang.org/x/crypto is already part of
// this module's dependency graph and blake2b fills the same "fast stable
// content hash" role xxhash plays elsewhere in the ecosystem) and keeps the
// digest's first 8 bytes, read big-endian, as the 64-bit ID.
func NewTestFailure(site, message string) TestFailure {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors for an invalid MAC key, which nil never
		// triggers; a panic here would indicate a broken build.
		panic(fmt.Sprintf("failuresensor: blake2b.New256: %v", err))
	}

	_, _ = h.Write([]byte(site))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(message))

	sum := h.Sum(nil)
	var id uint64

	for i := 0; i < 8; i++ {
		id = id<<8 | uint64(sum[i])
	}

	return TestFailure{ID: id, Display: fmt.Sprintf("%s: %s", site, message)}
}

var processWide struct {
	mu      sync.Mutex
	failure *TestFailure
}

// Record writes a failure into the process-wide slot. Called by the
// test-function failure guard from within the test call, at whatever call
// depth the failure occurred.
func Record(site, message string) {
	f := NewTestFailure(site, message)

	processWide.mu.Lock()
	processWide.failure = &f
	processWide.mu.Unlock()
}

func clearProcessWide() {
	processWide.mu.Lock()
	processWide.failure = nil
	processWide.mu.Unlock()
}

func takeProcessWide() *TestFailure {
	processWide.mu.Lock()
	defer processWide.mu.Unlock()

	f := processWide.failure
	processWide.failure = nil

	return f
}

// Sensor captures the most recent TestFailure observed during one run.
type Sensor struct {
	local *TestFailure
}

// StartRecording clears both the local and process-wide slots.
func (s *Sensor) StartRecording() {
	s.local = nil
	clearProcessWide()
}

// StopRecording moves the process-wide slot into the local slot.
func (s *Sensor) StopRecording() {
	s.local = takeProcessWide()
}

// IterateOverObservations invokes handle once with the captured failure, if
// any, and moves it out of the local slot.
func (s *Sensor) IterateOverObservations(handle func(*TestFailure)) {
	f := s.local
	s.local = nil

	if f != nil {
		handle(f)
	}
}

// Guard runs test, converting a panic into a TestFailure recorded at site,
// matching the instrumentation ABI's requirement (§7) that the test
// function's panics/aborts become a recorded failure rather than
// propagating out of the driver loop.
func Guard(site string, test func()) {
	defer func() {
		if r := recover(); r != nil {
			Record(site, fmt.Sprint(r))
		}
	}()

	test()
}
