/*package particles contains the parallel particle arrays used by the tree and
the functions which put them into Morton order.*/
package particles

/* This file contains the particle set and its validation. */

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow is returned when an array is too long to be indexed by the
	// requested index type.
	ErrOverflow = errors.New("particles: index overflow")
	// ErrShape is returned when parallel arrays disagree on their lengths or
	// the number of dimensions is unsupported.
	ErrShape = errors.New("particles: inconsistent shape")
)

// Float is the set of element types which particle fields can have.
type Float interface {
	float32 | float64
}

// Set is a collection of point masses stored as parallel arrays: particle i
// has mass Mass[i] and coordinate Coords[j][i] in dimension j.
type Set[F Float] struct {
	Mass   []F
	Coords [][]F
}

// NewSet wraps existing arrays in a Set. Nothing is copied.
func NewSet[F Float](coords [][]F, mass []F) *Set[F] {
	return &Set[F]{Mass: mass, Coords: coords}
}

// Len returns the number of particles.
func (s *Set[F]) Len() int { return len(s.Mass) }

// Dim returns the number of spatial dimensions.
func (s *Set[F]) Dim() int { return len(s.Coords) }

// Validate checks that the set has two or three dimensions and that every
// array has the same length.
func (s *Set[F]) Validate() error {
	if s.Dim() != 2 && s.Dim() != 3 {
		return fmt.Errorf("%w: %d dimensions given, only 2 and 3 are supported",
			ErrShape, s.Dim())
	}
	for j, x := range s.Coords {
		if len(x) != len(s.Mass) {
			return fmt.Errorf("%w: coordinate %d has %d values, but there "+
				"are %d masses", ErrShape, j, len(x), len(s.Mass))
		}
	}
	return nil
}

// Clone returns a deep copy of the set.
func (s *Set[F]) Clone() *Set[F] {
	out := &Set[F]{
		Mass:   append([]F(nil), s.Mass...),
		Coords: make([][]F, len(s.Coords)),
	}
	for j := range s.Coords {
		out.Coords[j] = append([]F(nil), s.Coords[j]...)
	}
	return out
}

// Permute reorders every array of the set so that the new i-th particle is
// the old perm[i]-th particle. perm is unchanged when Permute returns.
func (s *Set[F]) Permute(perm []int) error {
	if err := ApplyPermutation(s.Mass, perm); err != nil {
		return err
	}
	for j := range s.Coords {
		if err := ApplyPermutation(s.Coords[j], perm); err != nil {
			return err
		}
	}
	return nil
}
