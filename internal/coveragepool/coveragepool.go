// Package coveragepool is a second, minimal pool/sensor pair used to
// exercise the driver's fan-out to multiple compatible pools in one run.
// It is not itself part of the specified core (the core names exactly one
// pool, the artifact pool, in §3/§4.6); it demonstrates that §4.5's
// Pool/Compatible contract generalizes to a pool keyed on coverage features
// rather than failures, the way the driver loop requires (§4.7, §9).
package coveragepool

import (
	"fmt"

	"github.com/orizon-lang/orizon-fuzz/internal/coversensor"
	"github.com/orizon-lang/orizon-fuzz/internal/feature"
	"github.com/orizon-lang/orizon-fuzz/internal/hbitset"
	"github.com/orizon-lang/orizon-fuzz/internal/poolerr"
	"github.com/orizon-lang/orizon-fuzz/internal/poolsensor"
)

// FeatureSensor adapts *coversensor.Sensor's IterateOverCollectedFeatures to
// the poolsensor.Sensor[feature.Feature] shape the pool contract expects.
type FeatureSensor struct {
	*coversensor.Sensor
}

// IterateOverObservations forwards to IterateOverCollectedFeatures.
func (f FeatureSensor) IterateOverObservations(handle func(feature.Feature)) {
	f.Sensor.IterateOverCollectedFeatures(handle)
}

// Index identifies a retained input by its position in the pool's entry
// list.
type Index int

// Stats summarizes the pool's coverage: total distinct features seen and
// the number of inputs retained to reach that coverage.
type Stats struct {
	Features int
	Inputs   int
}

func (s Stats) String() string {
	return fmt.Sprintf("features=%d inputs=%d", s.Features, s.Inputs)
}

// featureKindBit mirrors feature.Feature's documented encoding: the high
// bit of a Feature carries its Kind. Edge and compare keys otherwise occupy
// small, overlapping integer ranges, so a dense "ever seen" set must shift
// one namespace clear of the other before using the raw value as a bitset
// key.
const featureKindBit = uint64(1) << 63

func denseKey(f feature.Feature, edgeSpace uint64) uint64 {
	raw := uint64(f)
	if raw&featureKindBit != 0 {
		return edgeSpace + (raw &^ featureKindBit)
	}

	return raw
}

// Pool retains one input per execution that grows the pool's own set of
// distinct features ever observed, the simplest possible
// coverage-guided admission rule.
type Pool[T any] struct {
	name      string
	seen      *hbitset.Set
	edgeSpace uint64
	entries   []T
	stats     Stats
	nextDraw  int
}

// New creates a coverage pool. numEdges bounds the edge-counter array size
// (pcIndex domain of feature.Edge); compareFeatureSpace bounds the
// untagged compare-feature key space, typically
// coversensor.DefaultCompareFeatureSpace.
func New[T any](name string, numEdges int, compareFeatureSpace uint64) *Pool[T] {
	edgeSpace := uint64(numEdges) << 3 // feature.Edge reserves 3 low bits for its bucket class

	return &Pool[T]{
		name:      name,
		seen:      hbitset.New(edgeSpace + compareFeatureSpace),
		edgeSpace: edgeSpace,
	}
}

// Len returns the number of retained inputs.
func (p *Pool[T]) Len() int {
	return len(p.entries)
}

// GetRandomIndex cycles deterministically through retained inputs; unlike
// the artifact pool, feature replay has no notion of "least complex",
// so round-robin is as good as any other exploration order.
func (p *Pool[T]) GetRandomIndex() (Index, bool) {
	if len(p.entries) == 0 {
		return 0, false
	}

	idx := p.nextDraw % len(p.entries)
	p.nextDraw++

	return Index(idx), true
}

// Get returns the input at idx.
func (p *Pool[T]) Get(idx Index) (*T, bool) {
	if int(idx) < 0 || int(idx) >= len(p.entries) {
		return nil, false
	}

	return &p.entries[idx], true
}

// GetMut returns a mutable reference to the input at idx.
func (p *Pool[T]) GetMut(idx Index) (*T, bool) {
	return p.Get(idx)
}

// RetrieveAfterProcessing re-fetches idx; the generation is accepted but
// unchecked. MarkTestCaseAsDeadEnd shifts every later entry down by one, so
// an index taken before such a removal can name a different input after it.
func (p *Pool[T]) RetrieveAfterProcessing(idx Index, _ uint64) (*T, bool) {
	return p.Get(idx)
}

// MarkTestCaseAsDeadEnd removes the entry at idx.
func (p *Pool[T]) MarkTestCaseAsDeadEnd(idx Index) {
	if int(idx) < 0 || int(idx) >= len(p.entries) {
		return
	}

	p.entries = append(p.entries[:idx], p.entries[idx+1:]...)
	p.stats.Inputs = len(p.entries)
}

// Stats returns the pool's cached summary.
func (p *Pool[T]) Stats() poolsensor.Stats {
	return p.stats
}

// Process admits candidate if the run observed at least one feature key
// not already in the pool's seen set.
func (p *Pool[T]) Process(
	sensor poolsensor.Sensor[feature.Feature],
	ref poolsensor.InputRef[T, Index],
	clone func(T) T,
	_ float64,
	onDelta poolsensor.EventHandler[T, Index],
) error {
	newFeatures := 0

	sensor.IterateOverObservations(func(f feature.Feature) {
		key := denseKey(f, p.edgeSpace)
		if !p.seen.IsSet(key) {
			p.seen.Set(key)
			newFeatures++
		}
	})

	if newFeatures == 0 {
		return nil
	}

	var data T

	switch {
	case ref.HasIndex:
		cur, ok := p.Get(ref.Index)
		if !ok {
			return nil
		}

		data = clone(*cur)
	default:
		data = clone(*ref.External)
	}

	p.entries = append(p.entries, data)
	idx := Index(len(p.entries) - 1)

	p.stats = Stats{Features: p.seen.Len(), Inputs: len(p.entries)}

	delta := poolsensor.CorpusDelta[T, Index]{
		Path: fmt.Sprintf("%s/%d", p.name, idx),
		Add:  &poolsensor.Added[T, Index]{Case: &p.entries[idx], Index: idx},
	}

	if err := onDelta(delta, p.stats); err != nil {
		return poolerr.IO("coveragepool.Process", err)
	}

	return nil
}

// Minify is not implemented: dropping entries while preserving the
// distinct-feature set covered would require recomputing which entries are
// individually responsible for which features, an algorithm this
// demonstration pool does not need.
func (p *Pool[T]) Minify(
	_ poolsensor.Sensor[feature.Feature],
	_ int,
	_ poolsensor.EventHandler[T, Index],
) error {
	return poolerr.NotImplemented("coveragepool.Minify")
}

var (
	_ poolsensor.Pool[int, Index]                        = (*Pool[int])(nil)
	_ poolsensor.Compatible[int, Index, feature.Feature] = (*Pool[int])(nil)
)
