package prop

import (
	"math/rand"
	"testing"
	"time"
)

func genSmallInt() Generator[int] {
	return func(r *rand.Rand, size int) int {
		if size <= 0 {
			size = 30
		}

		v := r.Intn(size + 1)
		if r.Intn(2) == 0 {
			v = -v
		}

		return v
	}
}

// shrinkIntSliceTailAndHalf is a minimal shrinker for this test: it drops
// the last element, or halves the slice, whichever is available.
func shrinkIntSliceTailAndHalf(v []int) [][]int {
	if len(v) == 0 {
		return nil
	}

	out := [][]int{v[:len(v)-1]}

	if mid := len(v) / 2; mid > 0 {
		out = append(out, v[:mid])
	}

	return out
}

// Simple property: reversing twice yields original slice.
func TestForAll1_SliceReverseInvolution(t *testing.T) {
	gen := GenSlice(genSmallInt())
	prop := func(xs []int) bool {
		ys := append([]int(nil), xs...)
		reverse(ys)
		reverse(ys)

		if len(xs) != len(ys) {
			return false
		}

		for i := range xs {
			if xs[i] != ys[i] {
				return false
			}
		}

		return true
	}

	res := ForAll1(gen, nil, prop, Options{Trials: 200})
	if res.Failed {
		t.Fatalf("property failed: seed=%d input=%v", res.Seed, res.FailingInput)
	}
}

// Negative property to exercise shrinking: sum(xs) < 0 should fail sometimes.
func TestForAll1_NegativeShrinksTowardZero(t *testing.T) {
	gen := GenSlice(genSmallInt())
	propBad := func(xs []int) bool {
		sum := 0
		for _, v := range xs {
			sum += v
		}

		return sum < 0 // often false -> triggers shrink
	}

	res := ForAll1(gen, shrinkIntSliceTailAndHalf, propBad, Options{Trials: 200, MaxShrinkRounds: 50, MaxShrinkTime: 2 * time.Second})
	if !res.Failed {
		t.Fatalf("expected failure to trigger shrinking")
	}
}

func reverse[T any](xs []T) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
