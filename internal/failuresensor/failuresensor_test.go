package failuresensor

import "testing"

func TestStartStopRecordingNoFailure(t *testing.T) {
	var s Sensor

	s.StartRecording()
	s.StopRecording()

	called := false
	s.IterateOverObservations(func(*TestFailure) { called = true })

	if called {
		t.Fatalf("expected no observation when nothing failed")
	}
}

func TestGuardCapturesPanicIntoProcessWideSlot(t *testing.T) {
	var s Sensor

	s.StartRecording()
	Guard("pkg.TestSomething", func() {
		panic("boom")
	})
	s.StopRecording()

	var got *TestFailure

	s.IterateOverObservations(func(f *TestFailure) { got = f })

	if got == nil {
		t.Fatalf("expected a captured failure")
	}

	if got.ID == 0 {
		t.Fatalf("expected nonzero stable id")
	}
}

func TestIterateConsumesLocalSlot(t *testing.T) {
	var s Sensor

	s.StartRecording()
	Guard("pkg.Test", func() { panic("x") })
	s.StopRecording()

	var first, second *TestFailure

	s.IterateOverObservations(func(f *TestFailure) { first = f })
	s.IterateOverObservations(func(f *TestFailure) { second = f })

	if first == nil {
		t.Fatalf("expected first observation")
	}

	if second != nil {
		t.Fatalf("expected slot consumed after first iterate, got %v", second)
	}
}

func TestSameSiteAndMessageYieldSameID(t *testing.T) {
	a := NewTestFailure("site", "message")
	b := NewTestFailure("site", "message")

	if a.ID != b.ID {
		t.Fatalf("expected stable id across calls: %d != %d", a.ID, b.ID)
	}
}

func TestDistinctMessageYieldsDistinctID(t *testing.T) {
	a := NewTestFailure("site", "one")
	b := NewTestFailure("site", "two")

	if a.ID == b.ID {
		t.Fatalf("expected distinct ids for distinct messages")
	}
}
