package particles

import (
	"errors"
	"testing"

	"github.com/phil-mansfield/bhtree/lib/eq"
)

func TestApplyPermutation(t *testing.T) {
	tests := []struct {
		values, perm, out []int
	}{
		{[]int{}, []int{}, []int{}},
		{[]int{7}, []int{0}, []int{7}},
		{[]int{10, 20}, []int{1, 0}, []int{20, 10}},
		{[]int{0, 2, 3, 1}, []int{0, 3, 1, 2}, []int{0, 1, 2, 3}},
		{[]int{4, 8, 15, 16, 23, 42}, []int{5, 4, 3, 2, 1, 0},
			[]int{42, 23, 16, 15, 8, 4}},
		{[]int{4, 8, 15, 16, 23, 42}, []int{1, 2, 0, 4, 5, 3},
			[]int{8, 15, 4, 23, 42, 16}},
	}

	for i := range tests {
		perm := append([]int(nil), tests[i].perm...)
		values := append([]int(nil), tests[i].values...)

		if err := ApplyPermutation(values, perm); err != nil {
			t.Errorf("%d) Unexpected error %v.", i, err)
			continue
		}
		if !eq.Exact(values, tests[i].out) {
			t.Errorf("%d) Expected %v, got %v.", i, tests[i].out, values)
		}
		if !eq.Exact(perm, tests[i].perm) {
			t.Errorf("%d) Expected permutation to be restored to %v, got %v.",
				i, tests[i].perm, perm)
		}
	}
}

func TestApplyPermutationSmallIndex(t *testing.T) {
	n := 128
	perm := make([]int8, n)
	values := make([]float32, n)
	for i := range perm {
		perm[i] = int8(n - 1 - i)
		values[i] = float32(i)
	}

	if err := ApplyPermutation(values, perm); err != nil {
		t.Fatalf("Unexpected error %v.", err)
	}
	for i := range values {
		if values[i] != float32(n-1-i) || int(perm[i]) != n-1-i {
			t.Fatalf("%d) Expected value %d and index %d, got %g and %d.",
				i, n-1-i, n-1-i, values[i], perm[i])
		}
	}

	long := make([]int8, n+1)
	err := ApplyPermutation(make([]float32, n+1), long)
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("Expected ErrOverflow for %d elements, got %v.", n+1, err)
	}

	err = ApplyPermutation(make([]float32, 3), []int{0, 1})
	if !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape for mismatched lengths, got %v.", err)
	}
}

func TestCheckIndexRange(t *testing.T) {
	if err := CheckIndexRange[int16](1 << 15); err != nil {
		t.Errorf("Expected 2^15 elements to fit in int16, got %v.", err)
	}
	if err := CheckIndexRange[int16](1<<15 + 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Expected ErrOverflow for 2^15 + 1 elements, got %v.", err)
	}
	if err := CheckIndexRange[int](0); err != nil {
		t.Errorf("Expected empty arrays to be valid, got %v.", err)
	}
}

func TestRadixSort(t *testing.T) {
	rng := uint64(88172645463325252)
	next := func() uint64 {
		rng ^= rng << 13
		rng ^= rng >> 7
		rng ^= rng << 17
		return rng
	}

	for _, n := range []int{0, 1, 2, 31, 33, 1000, 20000} {
		for _, mask := range []uint64{0, 0xf, 0xffff, 1<<63 - 1} {
			codes := make([]uint64, n)
			for i := range codes {
				codes[i] = next() & mask
			}
			perm := make([]int, n)
			RadixSort(codes, perm)

			if !IsPermutation(perm) {
				t.Errorf("n = %d, mask = %x) Output is not a permutation.",
					n, mask)
				continue
			}
			for i := 1; i < n; i++ {
				a, b := codes[perm[i-1]], codes[perm[i]]
				if a > b || (a == b && perm[i-1] > perm[i]) {
					t.Errorf("n = %d, mask = %x) Elements %d and %d are "+
						"out of order.", n, mask, i-1, i)
					break
				}
			}
		}
	}
}

func TestSetPermute(t *testing.T) {
	codes := []uint64{30, 10, 20, 10}
	s := NewSet([][]float64{{3, 1, 2, 1.5}, {-3, -1, -2, -1.5}},
		[]float64{0.3, 0.1, 0.2, 0.15})
	if err := s.Validate(); err != nil {
		t.Fatalf("Unexpected error %v.", err)
	}
	orig := s.Clone()

	perm := make([]int, len(codes))
	RadixSort(codes, perm)
	if !eq.Exact(perm, []int{1, 3, 2, 0}) {
		t.Fatalf("Expected perm = [1 3 2 0], got %v.", perm)
	}
	if err := s.Permute(perm); err != nil {
		t.Fatalf("Unexpected error %v.", err)
	}

	if !eq.Exact(s.Mass, []float64{0.1, 0.15, 0.2, 0.3}) {
		t.Errorf("Expected sorted masses, got %v.", s.Mass)
	}
	if !eq.Exact(s.Coords[1], []float64{-1, -1.5, -2, -3}) {
		t.Errorf("Expected sorted y, got %v.", s.Coords[1])
	}
	if !eq.Exact(orig.Coords[0], []float64{3, 1, 2, 1.5}) {
		t.Errorf("Clone shares memory with the original set.")
	}

	back := make([]float64, s.Len())
	if err := Scatter(back, s.Coords[0], perm); err != nil {
		t.Fatalf("Unexpected error %v.", err)
	}
	if !eq.Exact(back, orig.Coords[0]) {
		t.Errorf("Expected Scatter to restore %v, got %v.",
			orig.Coords[0], back)
	}
	if inv := Inverse(perm); !eq.Exact(inv, []int{3, 0, 2, 1}) {
		t.Errorf("Expected inverse [3 0 2 1], got %v.", inv)
	}
}

func TestSetValidate(t *testing.T) {
	bad := []*Set[float32]{
		NewSet([][]float32{{1}}, []float32{1}),
		NewSet([][]float32{{1}, {1}, {1}, {1}}, []float32{1}),
		NewSet([][]float32{{1}, {1, 2}}, []float32{1}),
	}
	for i := range bad {
		if err := bad[i].Validate(); !errors.Is(err, ErrShape) {
			t.Errorf("%d) Expected ErrShape, got %v.", i, err)
		}
	}
}

func TestTransfer(t *testing.T) {
	out := make([]uint32, 12)
	data := []uint32{4, 8, 15, 16, 23, 42}
	from := []int{5, 4, 3, 2, 1, 0}
	to := []int{0, 2, 4, 6, 8, 10}

	if err := Transfer(out, data, from, to); err != nil {
		t.Fatalf("Unexpected error %v.", err)
	}
	exp := []uint32{42, 0, 23, 0, 16, 0, 15, 0, 8, 0, 4, 0}
	if !eq.Exact(out, exp) {
		t.Errorf("Expected %v, got %v.", exp, out)
	}
	if err := Transfer(out, data, from, to[1:]); !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape, got %v.", err)
	}
}
