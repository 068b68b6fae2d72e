// Package driver implements the single-threaded cooperative fuzzing loop:
// ask the mutator for a candidate, reset sensors, run the test under the
// failure guard, stop sensors, fan every sensor's observations out to each
// compatible pool, and emit the resulting corpus deltas to an event sink
// (§2, §4.7).
package driver

import (
	"context"
	"log"
	"time"

	"github.com/orizon-lang/orizon-fuzz/internal/coversensor"
	"github.com/orizon-lang/orizon-fuzz/internal/failuresensor"
	"github.com/orizon-lang/orizon-fuzz/internal/poolsensor"
)

// Input is a candidate value of type T alongside the complexity the
// generator assigns it. Complexity drives artifact-pool bucketing (§3).
type Input[T any] struct {
	Value      T
	Complexity float64
}

// Mutator produces a new candidate Input from a parent, or a fresh seed
// when parent is nil. Named but left to the embedder per spec.md §1
// Non-goals (no generic mutation library is in scope).
type Mutator[T any] func(parent *Input[T]) Input[T]

// Test runs the program under test against one candidate. A returned error
// or a panic (captured by the failure guard around the call) both count as
// a failure observation; a nil return with no panic is a pass.
type Test[T any] func(value T) error

// Logger is the minimal structured-logging surface the driver accepts,
// satisfied directly by the standard library's *log.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

// Config aggregates the driver's tunables, following the teacher's
// Options-struct convention (see testrunner/prop.Options).
type Config struct {
	Logger Logger
	// MaxIterations bounds the number of mutate/run cycles. 0 means
	// unbounded (governed by ctx cancellation only).
	MaxIterations int
	// TestSite names the call site reported in TestFailure when Test
	// panics, mirroring the site identifier threaded through
	// failuresensor.Guard.
	TestSite string
}

// Binding closes over one (pool, sensor) pair behind a non-generic
// interface so a Driver can fan out to pools with differing Idx/Obs type
// parameters while staying generic only in the shared candidate type T
// (§4.7): every pool in one fuzzing run observes the same Input[T] domain,
// but each pool may index and observe differently.
type Binding[T any] struct {
	name    string
	process func(candidate T, complexity float64) error
}

// Name identifies the binding for logging purposes.
func (b Binding[T]) Name() string { return b.name }

// Bind adapts a concrete Compatible pool and its sensor into a Binding.
// clone is the pool's value-copy function for admitted candidates (the
// generic contract never assumes T is safely shareable by reference across
// pool and driver).
//
// A sensor whose IterateOverObservations consumes what it captured (as
// failuresensor.Sensor does) delivers each run's observation only to the
// first binding that drains it; bindings that share such a sensor after
// that one see nothing for the run.
func Bind[T any, Idx comparable, Obs any](
	name string,
	pool poolsensor.Compatible[T, Idx, Obs],
	sensor poolsensor.Sensor[Obs],
	clone func(T) T,
	onDelta poolsensor.EventHandler[T, Idx],
) Binding[T] {
	return Binding[T]{
		name: name,
		process: func(candidate T, complexity float64) error {
			ref := poolsensor.FromExternal[T, Idx](&candidate)

			return pool.Process(sensor, ref, clone, complexity, onDelta)
		},
	}
}

// Driver runs the cooperative fuzzing loop over one shared candidate type
// T. Cov and Fail are the two process-wide sensors every run resets and
// drains; Bindings is every pool wired to observe this run.
type Driver[T any] struct {
	Cov      *coversensor.Sensor
	Fail     *failuresensor.Sensor
	Bindings []Binding[T]
	Config   Config
}

// New constructs a Driver with the given sensors and config.
func New[T any](cov *coversensor.Sensor, fail *failuresensor.Sensor, cfg Config) *Driver[T] {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "", log.LstdFlags)
	}

	if cfg.TestSite == "" {
		cfg.TestSite = "driver.Run"
	}

	return &Driver[T]{Cov: cov, Fail: fail, Config: cfg}
}

// Bind appends a binding to the driver's fan-out list.
func (d *Driver[T]) Bind(b Binding[T]) {
	d.Bindings = append(d.Bindings, b)
}

// Run executes the cooperative loop until ctx is done or Config.MaxIterations
// candidates have been processed, whichever comes first. mutator supplies
// each candidate; test is invoked under the failure guard.
func (d *Driver[T]) Run(ctx context.Context, mutator Mutator[T], test Test[T]) error {
	var parent *Input[T]

	iterations := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.Config.MaxIterations > 0 && iterations >= d.Config.MaxIterations {
			return nil
		}

		candidate := mutator(parent)

		d.Cov.StartRecording()
		d.Fail.StartRecording()

		failuresensor.Guard(d.Config.TestSite, func() {
			if err := test(candidate.Value); err != nil {
				failuresensor.Record(d.Config.TestSite, err.Error())
			}
		})

		d.Cov.StopRecording()
		d.Fail.StopRecording()

		for _, b := range d.Bindings {
			if err := b.process(candidate.Value, candidate.Complexity); err != nil {
				d.Config.Logger.Printf("driver: binding %s: %v", b.name, err)
			}
		}

		parent = &candidate
		iterations++
	}
}

// RunFor is Run bounded by a wall-clock duration rather than a context the
// caller manages directly. Reaching the deadline is a normal end of the run
// and returns nil.
func (d *Driver[T]) RunFor(duration time.Duration, mutator Mutator[T], test Test[T]) error {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	err := d.Run(ctx, mutator, test)
	if err == context.DeadlineExceeded {
		return nil
	}

	return err
}
