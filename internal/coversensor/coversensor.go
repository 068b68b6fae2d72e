// Package coversensor owns the edge-counter array and compare-feature
// bitset shared with Sanitizer-style instrumentation callbacks, and exposes
// an iterator over the features observed during one test execution.
//
// The sensor is a process singleton (see Shared): the instrumentation ABI
// installs its trace hooks at link time with no user argument, so there is
// exactly one counter region and one compare-feature bitset per process.
package coversensor

import (
	"math/bits"

	"github.com/orizon-lang/orizon-fuzz/internal/feature"
	"github.com/orizon-lang/orizon-fuzz/internal/hbitset"
)

// chunkSize is the bulk-skip granularity used by IterateOverCollectedFeatures.
const chunkSize = 32

// Sensor owns a borrowed edge-counter array and a compare-feature bitset.
// It is not safe for concurrent use: the driver loop guarantees
// start/stop/iterate never interleave across runs (§5 of the specification).
type Sensor struct {
	isRecording      bool
	eightBitCounters []byte
	compareFeatures  *hbitset.Set
}

// New wraps an externally-owned edge-counter array. The array is typically
// the instrumented binary's coverage counter region; see NewSharedRegion
// for an mmap-backed counter array. compareFeatureSpace bounds the untagged
// compare-feature key space (pc bits plus the 7-bit Hamming payload).
func New(eightBitCounters []byte, compareFeatureSpace uint64) *Sensor {
	return &Sensor{
		eightBitCounters: eightBitCounters,
		compareFeatures:  hbitset.New(compareFeatureSpace),
	}
}

// DefaultCompareFeatureSpace covers the full untagged key space produced by
// RawInstrKey: 22 pc bits shifted left by feature.KindShift, plus the 7-bit
// Hamming-distance payload.
const DefaultCompareFeatureSpace = uint64(1) << (22 + feature.KindShift)

// StartRecording clears the counter array and the compare-feature bitset,
// then begins accepting instrumentation callbacks.
func (s *Sensor) StartRecording() {
	for i := range s.eightBitCounters {
		s.eightBitCounters[i] = 0
	}

	s.compareFeatures.Drain(func(uint64) {})
	s.isRecording = true
}

// StopRecording stops accepting instrumentation callbacks. The counter
// array and bitset are left untouched for IterateOverCollectedFeatures.
func (s *Sensor) StopRecording() {
	s.isRecording = false
}

// IsRecording reports whether instrumentation hooks currently record.
func (s *Sensor) IsRecording() bool {
	return s.isRecording
}

// IterateOverCollectedFeatures invokes handle once per feature observed
// since the last StartRecording: one feature.Edge per nonzero counter byte,
// then one feature.FromInstr per compare feature, draining the bitset.
//
// The counter array is scanned in fixed-size chunks; a chunk that compares
// equal to zero in bulk is skipped without per-byte inspection.
func (s *Sensor) IterateOverCollectedFeatures(handle func(feature.Feature)) {
	counters := s.eightBitCounters
	chunks := len(counters) / chunkSize

	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		chunk := counters[start : start+chunkSize]

		if isZero(chunk) {
			continue
		}

		for j, x := range chunk {
			if x == 0 {
				continue
			}

			handle(feature.Edge(start+j, x))
		}
	}

	rem := counters[chunks*chunkSize:]
	for j, x := range rem {
		if x == 0 {
			continue
		}

		handle(feature.Edge(chunks*chunkSize+j, x))
	}

	s.compareFeatures.Drain(func(raw uint64) {
		handle(feature.FromInstr(raw))
	})
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}

	return true
}

// HandleTraceCmpU8 records a compare observation between two 8-bit values.
// A no-op when recording is not active. Must never allocate, panic, or
// block, as required by the instrumentation ABI (§6).
func (s *Sensor) HandleTraceCmpU8(pc uint64, a, b uint8) {
	if !s.isRecording {
		return
	}

	s.compareFeatures.Set(feature.RawInstrKey(pc, bits.OnesCount8(a^b)))
}

// HandleTraceCmpU16 records a compare observation between two 16-bit values.
func (s *Sensor) HandleTraceCmpU16(pc uint64, a, b uint16) {
	if !s.isRecording {
		return
	}

	s.compareFeatures.Set(feature.RawInstrKey(pc, bits.OnesCount16(a^b)))
}

// HandleTraceCmpU32 records a compare observation between two 32-bit values.
func (s *Sensor) HandleTraceCmpU32(pc uint64, a, b uint32) {
	if !s.isRecording {
		return
	}

	s.compareFeatures.Set(feature.RawInstrKey(pc, bits.OnesCount32(a^b)))
}

// HandleTraceCmpU64 records a compare observation between two 64-bit values.
func (s *Sensor) HandleTraceCmpU64(pc uint64, a, b uint64) {
	if !s.isRecording {
		return
	}

	s.compareFeatures.Set(feature.RawInstrKey(pc, bits.OnesCount64(a^b)))
}

var shared *Sensor

// Shared returns the process-wide coverage sensor, initializing it on first
// use with a zeroed counter array of the given length. Subsequent calls
// ignore numEdges and return the already-initialized sensor: the ABI
// installs hooks once, at link time, and they must observe a single
// instance for the lifetime of the process (§5, §9).
func Shared(numEdges int) *Sensor {
	if shared == nil {
		shared = New(make([]byte, numEdges), DefaultCompareFeatureSpace)
	}

	return shared
}
