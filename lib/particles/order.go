package particles

/* order.go maps arrays between the Morton order used internally by the tree
and the order particles were originally supplied in. */

import (
	"fmt"
)

// Identity returns the permutation [0, 1, ..., n-1].
func Identity(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// IsPermutation returns true if perm contains every index in [0, len(perm))
// exactly once.
func IsPermutation(perm []int) bool {
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// Transfer copies src[from[i]] to dst[to[i]] for every i.
func Transfer[T any](dst, src []T, from, to []int) error {
	if len(from) != len(to) {
		return fmt.Errorf("%w: 'from' index array has length %d, but 'to' "+
			"has length %d", ErrShape, len(from), len(to))
	}
	for i := range from {
		dst[to[i]] = src[from[i]]
	}
	return nil
}

// Scatter undoes a gather: dst[perm[i]] = src[i]. If src is in Morton order
// and perm maps Morton indices to original indices, dst ends up in original
// order.
func Scatter[T any](dst, src []T, perm []int) error {
	if len(dst) != len(src) || len(src) != len(perm) {
		return fmt.Errorf("%w: cannot scatter %d values into %d with a "+
			"permutation of length %d", ErrShape, len(src), len(dst), len(perm))
	}
	for i, p := range perm {
		dst[p] = src[i]
	}
	return nil
}

// Inverse returns the permutation q with q[perm[i]] = i.
func Inverse(perm []int) []int {
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}
