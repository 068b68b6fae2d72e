// Package poolsensor defines the generic contract between a pool and a
// sensor capable of feeding it: the capability set every pool exposes
// (§4.5), and the compatibility witness a concrete (pool, sensor) pair
// implements to admit candidates and emit corpus deltas.
//
// Concrete admission policies (e.g. internal/artifactpool) implement this
// contract directly rather than sharing a unified algorithm: the
// specification is explicit that the coverage pool and the artifact pool
// must not be forced into one admission strategy (§9).
package poolsensor

// Stats is a pool's Display-able summary value.
type Stats interface {
	String() string
}

// Sensor abstracts a sensor's run boundary and observation iteration for
// one observation type Obs (e.g. *failuresensor.TestFailure, or a feature
// iterator for a coverage pool).
type Sensor[Obs any] interface {
	StartRecording()
	StopRecording()
	IterateOverObservations(handle func(Obs))
}

// InputRef names the candidate a Process call should consider: either an
// external value being offered for the first time, or a reference to an
// existing pool entry being re-entered (e.g. during resampling).
type InputRef[T any, Idx comparable] struct {
	Index    Idx
	External *T
	HasIndex bool
}

// FromExternal builds an InputRef around a freshly produced candidate.
func FromExternal[T any, Idx comparable](v *T) InputRef[T, Idx] {
	return InputRef[T, Idx]{External: v}
}

// FromIndex builds an InputRef around an existing pool entry.
func FromIndex[T any, Idx comparable](idx Idx) InputRef[T, Idx] {
	return InputRef[T, Idx]{Index: idx, HasIndex: true}
}

// Added describes the single admission a CorpusDelta may carry.
type Added[T any, Idx comparable] struct {
	Case  *T
	Index Idx
}

// CorpusDelta describes a pool's state change during one Process call: one
// optional addition, zero or more removals, and the on-disk path the
// addition (if any) should be serialized under by the caller.
type CorpusDelta[T any, Idx comparable] struct {
	Add    *Added[T, Idx]
	Path   string
	Remove []Idx
}

// EventHandler receives a delta alongside the pool's post-delta stats.
type EventHandler[T any, Idx comparable] func(delta CorpusDelta[T, Idx], stats Stats) error

// Pool is the capability set every pool exposes, independent of any
// particular sensor.
type Pool[T any, Idx comparable] interface {
	Len() int
	GetRandomIndex() (Idx, bool)
	Get(idx Idx) (*T, bool)
	GetMut(idx Idx) (*T, bool)
	RetrieveAfterProcessing(idx Idx, generation uint64) (*T, bool)
	MarkTestCaseAsDeadEnd(idx Idx)
	Stats() Stats
}

// Compatible is the witness that a pool knows how to consult a particular
// sensor's observations to decide admission (Process) and, eventually,
// reduce its population while preserving classification coverage
// (Minify).
type Compatible[T any, Idx comparable, Obs any] interface {
	Pool[T, Idx]

	Process(sensor Sensor[Obs], ref InputRef[T, Idx], clone func(T) T, complexity float64, onDelta EventHandler[T, Idx]) error
	Minify(sensor Sensor[Obs], targetLen int, onDelta EventHandler[T, Idx]) error
}
