// Package artifactpool implements the two-dimensional, complexity-indexed
// container that classifies failures by identity, retains only
// minimal-complexity reproducers per failure, and caps the population per
// (failure, complexity) bucket (§3, §4.6 of the specification).
package artifactpool

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/orizon-lang/orizon-fuzz/internal/failuresensor"
	"github.com/orizon-lang/orizon-fuzz/internal/poolerr"
	"github.com/orizon-lang/orizon-fuzz/internal/poolsensor"
)

// K is the maximum number of inputs retained per (error, complexity)
// bucket.
const K = 8

// Index identifies one input by (error group, complexity bucket, input)
// position.
type Index struct {
	Error, Bucket, Input int
}

func (i Index) String() string {
	return fmt.Sprintf("%d/%d/%d", i.Error, i.Bucket, i.Input)
}

type entry[T any] struct {
	data       T
	generation uint64
}

type bucket[T any] struct {
	inputs     []*entry[T]
	complexity float64
}

type errorGroup[T any] struct {
	failure failuresensor.TestFailure
	buckets []*bucket[T]
}

// Stats summarizes the pool's shape as of the last admission. It is cached
// at admission time and is not recomputed by MarkTestCaseAsDeadEnd, which
// (per the Open Question in §9) removes inputs without rebalancing buckets
// or groups and without updating statistics.
type Stats struct {
	Groups          int
	Buckets         int
	Inputs          int
	MinComplexities []float64
}

func (s Stats) String() string {
	return fmt.Sprintf("groups=%d buckets=%d inputs=%d", s.Groups, s.Buckets, s.Inputs)
}

// Pool is the artifact pool: Level 1 is an ordered sequence of error
// groups, Level 2 inside each group is an ordered sequence of complexity
// buckets (last = least complex), Level 3 inside each bucket is a bounded
// sequence of inputs.
type Pool[T any] struct {
	name    string
	groups  []*errorGroup[T]
	stats   Stats
	rng     *rand.Rand
	sizeCap int
}

// New creates an artifact pool. size is preserved verbatim per the Open
// Question in §9: this implementation treats it as a soft cap on the total
// number of inputs across all groups, checked only when admission would
// open a brand-new bucket (NewError or ExistingErrorNewCplx); refining an
// existing minimum (ExistingErrorAndCplx) is never blocked by the cap, so a
// full pool can still shrink its known failures. size <= 0 means
// unbounded.
func New[T any](name string, size int) *Pool[T] {
	return &Pool[T]{
		name:    name,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sizeCap: size,
	}
}

// NewSeeded is New with a deterministic PRNG seed, for tests.
func NewSeeded[T any](name string, size int, seed int64) *Pool[T] {
	p := New[T](name, size)
	p.rng = rand.New(rand.NewSource(seed))

	return p
}

// Len returns the number of distinct error groups, matching the source
// behavior where len() is the group count, not the total input count.
func (p *Pool[T]) Len() int {
	return len(p.groups)
}

// GetRandomIndex samples uniformly over error groups, then always selects
// the least-complex (last) bucket within that group, then samples
// uniformly within that bucket — prioritizing shrinking known failures
// (§4.6, I7).
func (p *Pool[T]) GetRandomIndex() (Index, bool) {
	if len(p.groups) == 0 {
		return Index{}, false
	}

	gi := p.rng.Intn(len(p.groups))
	g := p.groups[gi]

	if len(g.buckets) == 0 {
		return Index{}, false
	}

	bi := len(g.buckets) - 1
	b := g.buckets[bi]

	if len(b.inputs) == 0 {
		return Index{}, false
	}

	ii := p.rng.Intn(len(b.inputs))

	return Index{Error: gi, Bucket: bi, Input: ii}, true
}

func (p *Pool[T]) lookup(idx Index) (*entry[T], bool) {
	if idx.Error < 0 || idx.Error >= len(p.groups) {
		return nil, false
	}

	g := p.groups[idx.Error]

	if idx.Bucket < 0 || idx.Bucket >= len(g.buckets) {
		return nil, false
	}

	b := g.buckets[idx.Bucket]

	if idx.Input < 0 || idx.Input >= len(b.inputs) {
		return nil, false
	}

	return b.inputs[idx.Input], true
}

// Get returns the input at idx.
func (p *Pool[T]) Get(idx Index) (*T, bool) {
	e, ok := p.lookup(idx)
	if !ok {
		return nil, false
	}

	return &e.data, true
}

// GetMut returns a mutable reference to the input at idx.
func (p *Pool[T]) GetMut(idx Index) (*T, bool) {
	return p.Get(idx)
}

// RetrieveAfterProcessing returns a live reference to the input at idx only
// if it still exists and its generation matches; a mismatch or absence is
// signaled by a false ok, not an error (§7).
func (p *Pool[T]) RetrieveAfterProcessing(idx Index, generation uint64) (*T, bool) {
	e, ok := p.lookup(idx)
	if !ok || e.generation != generation {
		return nil, false
	}

	return &e.data, true
}

// MarkTestCaseAsDeadEnd removes the input at idx without rebalancing
// buckets or groups and without updating Stats (§4.6, §9).
func (p *Pool[T]) MarkTestCaseAsDeadEnd(idx Index) {
	if idx.Error < 0 || idx.Error >= len(p.groups) {
		return
	}

	g := p.groups[idx.Error]

	if idx.Bucket < 0 || idx.Bucket >= len(g.buckets) {
		return
	}

	b := g.buckets[idx.Bucket]

	if idx.Input < 0 || idx.Input >= len(b.inputs) {
		return
	}

	b.inputs = append(b.inputs[:idx.Input], b.inputs[idx.Input+1:]...)
}

// Stats returns the pool's cached summary.
func (p *Pool[T]) Stats() poolsensor.Stats {
	return p.stats
}

func (p *Pool[T]) totalInputs() int {
	n := 0
	for _, g := range p.groups {
		for _, b := range g.buckets {
			n += len(b.inputs)
		}
	}

	return n
}

func (p *Pool[T]) displayAlreadyUsed(display string) bool {
	for _, g := range p.groups {
		if g.failure.Display == display {
			return true
		}
	}

	return false
}

type classification int

const (
	reject classification = iota
	newError
	existingErrorNewCplx
	existingErrorAndCplx
)

// Process consults the failure sensor's observation for this run and
// decides whether to admit ref into the pool, following the admission
// algorithm of §4.6 verbatim.
func (p *Pool[T]) Process(
	sensor poolsensor.Sensor[*failuresensor.TestFailure],
	ref poolsensor.InputRef[T, Index],
	clone func(T) T,
	complexity float64,
	onDelta poolsensor.EventHandler[T, Index],
) error {
	var observed *failuresensor.TestFailure

	sensor.IterateOverObservations(func(f *failuresensor.TestFailure) {
		observed = f
	})

	if observed == nil {
		return nil
	}

	failure := *observed

	groupIdx := -1

	for i, g := range p.groups {
		if g.failure.ID == failure.ID {
			groupIdx = i

			break
		}
	}

	class := reject

	switch {
	case groupIdx == -1:
		class = newError
	default:
		g := p.groups[groupIdx]
		if len(g.buckets) == 0 {
			class = existingErrorNewCplx
		} else {
			last := g.buckets[len(g.buckets)-1]

			switch {
			case last.complexity > complexity:
				class = existingErrorNewCplx
			case last.complexity == complexity:
				if len(last.inputs) < K && !p.displayAlreadyUsed(failure.Display) {
					class = existingErrorAndCplx
				}
			}
		}
	}

	if class == reject {
		return nil
	}

	if (class == newError || class == existingErrorNewCplx) && p.sizeCap > 0 && p.totalInputs() >= p.sizeCap {
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

	newEntry := &entry[T]{generation: 0, data: data}

	var idx Index

	switch class {
	case newError:
		p.groups = append(p.groups, &errorGroup[T]{
			failure: failure,
			buckets: []*bucket[T]{{complexity: complexity, inputs: []*entry[T]{newEntry}}},
		})
		idx = Index{Error: len(p.groups) - 1, Bucket: 0, Input: 0}
	case existingErrorNewCplx:
		g := p.groups[groupIdx]
		g.buckets = append(g.buckets, &bucket[T]{complexity: complexity, inputs: []*entry[T]{newEntry}})
		idx = Index{Error: groupIdx, Bucket: len(g.buckets) - 1, Input: 0}
	case existingErrorAndCplx:
		g := p.groups[groupIdx]
		b := g.buckets[len(g.buckets)-1]
		b.inputs = append(b.inputs, newEntry)
		idx = Index{Error: groupIdx, Bucket: len(g.buckets) - 1, Input: len(b.inputs) - 1}
	}

	p.recomputeStats()

	path := fmt.Sprintf("%s/%d/%.4f", p.name, failure.ID, complexity)

	got, _ := p.Get(idx)
	delta := poolsensor.CorpusDelta[T, Index]{
		Path: path,
		Add:  &poolsensor.Added[T, Index]{Case: got, Index: idx},
	}

	if err := onDelta(delta, p.stats); err != nil {
		return poolerr.IO("artifactpool.Process", err)
	}

	return nil
}

// Minify is not implemented for the artifact pool. This is a known
// limitation, not a latent bug: shrinking the population while preserving
// per-error minimality requires picking which non-minimal bucket to drop,
// an algorithm the upstream source never supplied (§4.5, §7).
func (p *Pool[T]) Minify(
	_ poolsensor.Sensor[*failuresensor.TestFailure],
	_ int,
	_ poolsensor.EventHandler[T, Index],
) error {
	return poolerr.NotImplemented("artifactpool.Minify")
}

func (p *Pool[T]) recomputeStats() {
	st := Stats{Groups: len(p.groups)}

	for _, g := range p.groups {
		st.Buckets += len(g.buckets)

		min := 0.0
		for bi, b := range g.buckets {
			st.Inputs += len(b.inputs)

			if bi == len(g.buckets)-1 {
				min = b.complexity
			}
		}

		st.MinComplexities = append(st.MinComplexities, min)
	}

	p.stats = st
}

var (
	_ poolsensor.Pool[int, Index]                                   = (*Pool[int])(nil)
	_ poolsensor.Compatible[int, Index, *failuresensor.TestFailure] = (*Pool[int])(nil)
)
