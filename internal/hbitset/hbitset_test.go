package hbitset

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/orizon-lang/orizon-fuzz/internal/testrunner/prop"
)

func TestSetDrainRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	s := New(1 << 20)

	want := map[uint64]struct{}{}
	for i := 0; i < 500; i++ {
		k := uint64(r.Intn(1 << 20))
		s.Set(k)
		want[k] = struct{}{}
	}

	got := map[uint64]struct{}{}
	s.Drain(func(k uint64) {
		got[k] = struct{}{}
	})

	if len(got) != len(want) {
		t.Fatalf("collected %d keys, want %d", len(got), len(want))
	}

	for k := range want {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing key %d after drain", k)
		}
	}

	if !s.IsEmpty() {
		t.Fatalf("set not empty after drain")
	}
}

func TestSetIsIdempotent(t *testing.T) {
	s := New(1024)
	s.Set(5)
	s.Set(5)
	s.Set(5)

	var keys []uint64

	s.Drain(func(k uint64) { keys = append(keys, k) })

	if len(keys) != 1 || keys[0] != 5 {
		t.Fatalf("expected single key 5, got %v", keys)
	}
}

func TestEmptySetDrainsNothing(t *testing.T) {
	s := New(4096)
	if !s.IsEmpty() {
		t.Fatalf("new set should be empty")
	}

	called := false
	s.Drain(func(uint64) { called = true })

	if called {
		t.Fatalf("drain invoked handler on empty set")
	}
}

func TestIsSetAndLenClearedByDrain(t *testing.T) {
	s := New(256)
	s.Set(3)
	s.Set(200)

	if !s.IsSet(3) || !s.IsSet(200) {
		t.Fatalf("expected both keys to report set")
	}

	if s.IsSet(4) {
		t.Fatalf("expected unset key to report unset")
	}

	if got := s.Len(); got != 2 {
		t.Fatalf("expected Len()==2, got %d", got)
	}

	s.Drain(func(uint64) {})

	if s.Len() != 0 {
		t.Fatalf("expected Len()==0 after drain, got %d", s.Len())
	}

	if s.IsSet(3) {
		t.Fatalf("expected key cleared after drain")
	}
}

// TestLenMatchesDistinctKeyCount checks, across random key multisets, that
// Len() after replaying every Set call equals the number of distinct keys,
// regardless of how many duplicates or what order they arrive in.
func TestLenMatchesDistinctKeyCount(t *testing.T) {
	const space = 1 << 12

	genKeys := prop.GenSlice(func(r *rand.Rand, _ int) uint64 { return uint64(r.Intn(space)) })

	result := prop.ForAll1(genKeys, nil, func(keys []uint64) bool {
		s := New(space)

		want := map[uint64]struct{}{}
		for _, k := range keys {
			s.Set(k)
			want[k] = struct{}{}
		}

		return s.Len() == len(want)
	}, prop.Options{Trials: 100, Seed: 42, Size: 64})

	if result.Failed {
		t.Fatalf("property violated for input %v", result.FailingInput)
	}
}

func TestDrainVisitsEachKeyExactlyOnce(t *testing.T) {
	s := New(256)
	input := []uint64{0, 1, 63, 64, 65, 127, 128, 200, 255}

	for _, k := range input {
		s.Set(k)
	}

	var got []uint64

	s.Drain(func(k uint64) { got = append(got, k) })

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	sort.Slice(input, func(i, j int) bool { return input[i] < input[j] })

	if len(got) != len(input) {
		t.Fatalf("got %v want %v", got, input)
	}

	for i := range got {
		if got[i] != input[i] {
			t.Fatalf("got %v want %v", got, input)
		}
	}
}
