package coveragepool

import (
	"testing"

	"github.com/orizon-lang/orizon-fuzz/internal/coversensor"
	"github.com/orizon-lang/orizon-fuzz/internal/poolsensor"
)

func cloneInt(v int) int { return v }

func TestFirstInputAlwaysAdmitted(t *testing.T) {
	p := New[int]("coverage", 64, coversensor.DefaultCompareFeatureSpace)
	sensor := coversensor.New(make([]byte, 64), coversensor.DefaultCompareFeatureSpace)

	sensor.StartRecording()
	sensor.HandleTraceCmpU8(1, 0, 1)
	sensor.StopRecording()

	added := false

	err := p.Process(FeatureSensor{sensor}, poolsensor.FromExternal[int, Index](ptr(1)), cloneInt, 0, func(d poolsensor.CorpusDelta[int, Index], _ poolsensor.Stats) error {
		added = d.Add != nil

		return nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !added {
		t.Fatalf("expected first observation to be admitted")
	}

	if p.Len() != 1 {
		t.Fatalf("expected 1 retained input, got %d", p.Len())
	}
}

func TestRepeatedFeaturesNotReadmitted(t *testing.T) {
	p := New[int]("coverage", 64, coversensor.DefaultCompareFeatureSpace)
	sensor := coversensor.New(make([]byte, 64), coversensor.DefaultCompareFeatureSpace)

	run := func(v int) bool {
		sensor.StartRecording()
		sensor.HandleTraceCmpU8(1, 0, 1)
		sensor.StopRecording()

		added := false

		err := p.Process(FeatureSensor{sensor}, poolsensor.FromExternal[int, Index](ptr(v)), cloneInt, 0, func(d poolsensor.CorpusDelta[int, Index], _ poolsensor.Stats) error {
			added = d.Add != nil

			return nil
		})
		if err != nil {
			t.Fatalf("Process: %v", err)
		}

		return added
	}

	if !run(1) {
		t.Fatalf("expected first run to admit")
	}

	if run(2) {
		t.Fatalf("expected identical feature set to be rejected on replay")
	}

	if p.Len() != 1 {
		t.Fatalf("expected exactly 1 retained input, got %d", p.Len())
	}
}

func TestNewFeatureAdmitsAgain(t *testing.T) {
	p := New[int]("coverage", 64, coversensor.DefaultCompareFeatureSpace)
	sensor := coversensor.New(make([]byte, 64), coversensor.DefaultCompareFeatureSpace)

	sensor.StartRecording()
	sensor.HandleTraceCmpU8(1, 0, 1)
	sensor.StopRecording()
	_ = p.Process(FeatureSensor{sensor}, poolsensor.FromExternal[int, Index](ptr(1)), cloneInt, 0, func(poolsensor.CorpusDelta[int, Index], poolsensor.Stats) error { return nil })

	sensor.StartRecording()
	sensor.HandleTraceCmpU8(2, 0, 1)
	sensor.StopRecording()

	added := false

	_ = p.Process(FeatureSensor{sensor}, poolsensor.FromExternal[int, Index](ptr(2)), cloneInt, 0, func(d poolsensor.CorpusDelta[int, Index], _ poolsensor.Stats) error {
		added = d.Add != nil

		return nil
	})

	if !added {
		t.Fatalf("expected a run introducing a new feature to be admitted")
	}

	if p.Len() != 2 {
		t.Fatalf("expected 2 retained inputs, got %d", p.Len())
	}
}

func TestMarkTestCaseAsDeadEndRemoves(t *testing.T) {
	p := New[int]("coverage", 64, coversensor.DefaultCompareFeatureSpace)
	sensor := coversensor.New(make([]byte, 64), coversensor.DefaultCompareFeatureSpace)

	sensor.StartRecording()
	sensor.HandleTraceCmpU8(1, 0, 1)
	sensor.StopRecording()

	var idx Index

	_ = p.Process(FeatureSensor{sensor}, poolsensor.FromExternal[int, Index](ptr(1)), cloneInt, 0, func(d poolsensor.CorpusDelta[int, Index], _ poolsensor.Stats) error {
		idx = d.Add.Index

		return nil
	})

	p.MarkTestCaseAsDeadEnd(idx)

	if p.Len() != 0 {
		t.Fatalf("expected input removed, pool has %d", p.Len())
	}
}

func TestMinifyReturnsNotImplemented(t *testing.T) {
	p := New[int]("coverage", 64, coversensor.DefaultCompareFeatureSpace)
	sensor := coversensor.New(make([]byte, 64), coversensor.DefaultCompareFeatureSpace)

	err := p.Minify(FeatureSensor{sensor}, 0, func(poolsensor.CorpusDelta[int, Index], poolsensor.Stats) error { return nil })
	if err == nil {
		t.Fatalf("expected not-implemented error")
	}
}

func ptr(v int) *int { return &v }
