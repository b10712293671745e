// internal/sliceutil.go
//
//
//   • Pure – no side effects.
//   • Safe – never modify the input in-place.
//   • Generic – work with any comparable / ordered type.
// ----------------------------------------------------------------------------

package internal

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// ---------------------------------------------------------------------
// Transformations
// ---------------------------------------------------------------------

// Map applies f to each element and returns a new slice.
func Map[A any, B any](xs []A, f func(A) B) []B {
	out := make([]B, len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

// Chunk splits xs into sub-slices of size <= n.
func Chunk[T any](xs []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	var out [][]T
	for i := 0; i < len(xs); i += n {
		end := i + n
		if end > len(xs) {
			end = len(xs)
		}
		out = append(out, xs[i:end])
	}
	return out
}

// ---------------------------------------------------------------------
// Set-like helpers (require comparable)
// ---------------------------------------------------------------------

// Contains reports whether v ∈ xs (O(n)).
func Contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------
// Map helpers (ordered keys)
// ---------------------------------------------------------------------

// SortedKeys returns the keys of m in ascending order, the one stable
// iteration order a Go map can offer.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
