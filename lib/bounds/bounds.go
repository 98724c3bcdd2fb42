/*package bounds computes bounding boxes of particle sets and the size of the
centered cubic domain a tree needs to contain them.*/
package bounds

import (
	"errors"
	"fmt"
	"math"
)

// Float is the set of element types bounds can be computed for.
type Float interface {
	float32 | float64
}

var (
	// ErrEmpty is returned when bounds are requested for zero particles.
	ErrEmpty = errors.New("bounds: no particles")
	// ErrNotFinite is returned when a coordinate is NaN or infinite.
	ErrNotFinite = errors.New("bounds: non-finite coordinate")
)

// Bounds is the axis aligned box [Min, Max] in each dimension.
type Bounds[F Float] struct {
	Min, Max []F
}

// Of returns the bounds of the given coordinates, stored as one array per
// dimension.
func Of[F Float](coords [][]F) (Bounds[F], error) {
	if len(coords) == 0 || len(coords[0]) == 0 {
		return Bounds[F]{}, ErrEmpty
	}

	b := Bounds[F]{make([]F, len(coords)), make([]F, len(coords))}
	for j := range coords {
		if len(coords[j]) != len(coords[0]) {
			return Bounds[F]{}, fmt.Errorf("bounds: dimension %d has %d "+
				"coordinates, expected %d", j, len(coords[j]), len(coords[0]))
		}
		lo, hi := coords[j][0], coords[j][0]
		for _, x := range coords[j] {
			if !finite(x) {
				return Bounds[F]{}, ErrNotFinite
			}
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		b.Min[j], b.Max[j] = lo, hi
	}
	return b, nil
}

func finite[F Float](x F) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

// Center returns the midpoint of the box.
func (b Bounds[F]) Center() []F {
	c := make([]F, len(b.Min))
	for j := range c {
		c[j] = b.Min[j] + (b.Max[j]-b.Min[j])/2
	}
	return c
}

// Width returns the largest extent of the box along any dimension.
func (b Bounds[F]) Width() F {
	var w F
	for j := range b.Min {
		if d := b.Max[j] - b.Min[j]; d > w {
			w = d
		}
	}
	return w
}

// Domain returns the box [-size/2, size/2) covered by a tree of width size.
func Domain[F Float](dim int, size F) Bounds[F] {
	b := Bounds[F]{make([]F, dim), make([]F, dim)}
	for j := range b.Min {
		b.Min[j], b.Max[j] = -size/2, size/2
	}
	return b
}

// Contains returns true if the i-th particle lies in the half-open box
// [Min, Max). Non-finite coordinates are never contained.
func (b Bounds[F]) Contains(coords [][]F, i int) bool {
	for j := range b.Min {
		if !(coords[j][i] >= b.Min[j] && coords[j][i] < b.Max[j]) {
			return false
		}
	}
	return true
}

// Outside returns the index of the first particle which is not contained in
// the box, or -1 if every particle is.
func (b Bounds[F]) Outside(coords [][]F) int {
	if len(coords) == 0 {
		return -1
	}
	for i := range coords[0] {
		if !b.Contains(coords, i) {
			return i
		}
	}
	return -1
}

// BoxSize returns the width L of the smallest cube centered on the origin,
// widened by the fraction pad, for which every coordinate lies in
// [-L/2, L/2). An empty or all-zero set gets L = 1.
func BoxSize[F Float](coords [][]F, pad F) (F, error) {
	if pad < 0 || !finite(pad) {
		return 0, fmt.Errorf("bounds: invalid padding %g", float64(pad))
	}

	var maxAbs F
	for j := range coords {
		for _, x := range coords[j] {
			if !finite(x) {
				return 0, ErrNotFinite
			}
			if x < 0 {
				x = -x
			}
			if x > maxAbs {
				maxAbs = x
			}
		}
	}
	if maxAbs == 0 {
		return 1, nil
	}

	size := 2 * maxAbs * (1 + pad)
	for !fits(coords, size) {
		size *= 1 + 1.0/(1<<20)
		if !finite(size) {
			return 0, ErrNotFinite
		}
	}
	return size, nil
}

func fits[F Float](coords [][]F, size F) bool {
	return Domain(len(coords), size).Outside(coords) == -1
}

// Recenter translates coords in place so that their bounding box is centered
// on the origin and returns the offset which was added to each dimension.
func Recenter[F Float](coords [][]F) ([]F, error) {
	b, err := Of(coords)
	if err != nil {
		return nil, err
	}
	offset := b.Center()
	for j := range offset {
		offset[j] = -offset[j]
		for i := range coords[j] {
			coords[j][i] += offset[j]
		}
	}
	return offset, nil
}
