package particles

/* sort.go contains the radix sort used to put particles into Morton order
and the in-place permutation which applies its result. */

import (
	"fmt"
	"math/bits"
)

// insertionCutoff is the bucket size below which RadixSort switches to
// insertion sort.
const insertionCutoff = 32

// Index is the set of integer types which can hold a permutation.
type Index interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// RadixSort writes the indices of codes into perm in ascending code order.
// The sort starts at the most significant non-empty byte and is stable, so
// equal codes keep their input order. len(perm) must equal len(codes).
func RadixSort(codes []uint64, perm []int) {
	for i := range perm {
		perm[i] = i
	}
	if len(perm) < 2 {
		return
	}

	var all uint64
	for _, c := range codes {
		all |= c
	}
	if all == 0 {
		return
	}
	shift := uint((bits.Len64(all) - 1) / 8 * 8)

	buf := make([]int, len(perm))
	msdSort(codes, perm, buf, shift)
}

// msdSort sorts idx by the byte of codes at shift and then recurses into each
// bucket with the next byte. buf is scratch space of the same length as idx.
func msdSort(codes []uint64, idx, buf []int, shift uint) {
	if len(idx) <= insertionCutoff {
		insertionSort(codes, idx)
		return
	}

	var start [257]int
	for _, i := range idx {
		start[((codes[i]>>shift)&0xff)+1]++
	}
	for b := 1; b < len(start); b++ {
		start[b] += start[b-1]
	}

	next := start
	for _, i := range idx {
		b := (codes[i] >> shift) & 0xff
		buf[next[b]] = i
		next[b]++
	}
	copy(idx, buf)

	if shift == 0 {
		return
	}
	for b := 0; b < 256; b++ {
		lo, hi := start[b], start[b+1]
		if hi-lo > 1 {
			msdSort(codes, idx[lo:hi], buf[lo:hi], shift-8)
		}
	}
}

func insertionSort(codes []uint64, idx []int) {
	for i := 1; i < len(idx); i++ {
		key := idx[i]
		j := i
		for ; j > 0 && codes[idx[j-1]] > codes[key]; j-- {
			idx[j] = idx[j-1]
		}
		idx[j] = key
	}
}

// maxIndex returns the largest value representable by I.
func maxIndex[I Index]() uint64 {
	m := I(1)
	for m<<1|1 > m {
		m = m<<1 | 1
	}
	return uint64(m)
}

// CheckIndexRange returns ErrOverflow if arrays of length n cannot be
// permuted with indices of type I. One bit of I is reserved for marking
// visited elements.
func CheckIndexRange[I Index](n int) error {
	if n > 0 && uint64(n-1) > maxIndex[I]() {
		return fmt.Errorf("%w: %d elements cannot be indexed by a type "+
			"with maximum value %d", ErrOverflow, n, maxIndex[I]())
	}
	return nil
}

// ApplyPermutation reorders values in place so that the new values[i] is the
// old values[perm[i]]. Each cycle of perm is followed once and visited
// entries are marked by flipping their sign bit; the marks are removed before
// returning, so perm is unchanged. perm must be a permutation of
// [0, len(values)).
func ApplyPermutation[I Index, T any](values []T, perm []I) error {
	if len(values) != len(perm) {
		return fmt.Errorf("%w: %d values, but permutation has length %d",
			ErrShape, len(values), len(perm))
	}
	if err := CheckIndexRange[I](len(perm)); err != nil {
		return err
	}

	for i := range perm {
		if perm[i] < 0 {
			continue
		}
		tmp := values[i]
		j := i
		for {
			k := int(perm[j])
			perm[j] = ^perm[j]
			if k == i {
				values[j] = tmp
				break
			}
			values[j] = values[k]
			j = k
		}
	}

	for i := range perm {
		perm[i] = ^perm[i]
	}
	return nil
}
