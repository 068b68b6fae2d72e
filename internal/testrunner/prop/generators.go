package prop

import "math/rand"

// GenSlice returns a slice generator using the element generator.
func GenSlice[T any](elem Generator[T]) Generator[[]T] {
	return func(r *rand.Rand, size int) []T {
		n := r.Intn(max(0, size) + 1)
		out := make([]T, n)

		for i := 0; i < n; i++ {
			out[i] = elem(r, size)
		}

		return out
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}

	return b
}
