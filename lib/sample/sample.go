/*package sample generates particle distributions for tests, benchmarks and
the command line tool, and applies rigid transformations to them.*/
package sample

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Float is the set of element types particles can be generated with.
type Float interface {
	float32 | float64
}

// inBox returns true if every coordinate of the i-th particle is in
// [-size/2, size/2) after conversion to F.
func inBox[F Float](coords [][]F, i int, size F) bool {
	for j := range coords {
		if coords[j][i] < -size/2 || coords[j][i] >= size/2 {
			return false
		}
	}
	return true
}

func alloc[F Float](n, dim int) ([][]F, []F) {
	coords := make([][]F, dim)
	for j := range coords {
		coords[j] = make([]F, n)
	}
	return coords, make([]F, n)
}

// Uniform returns n particles distributed uniformly in a box of width size
// centered on the origin, with masses uniform in (0, 1).
func Uniform[F Float](rng *RNG, n, dim int, size F) (coords [][]F, mass []F) {
	coords, mass = alloc[F](n, dim)
	for i := range mass {
		for mass[i] == 0 {
			mass[i] = F(rng.Uniform())
		}
	}
	half := float64(size) / 2
	for i := 0; i < n; {
		for j := range coords {
			coords[j][i] = F(rng.Range(-half, half))
		}
		if inBox(coords, i, size) {
			i++
		}
	}
	return coords, mass
}

// Plummer returns n particles drawn from a Plummer sphere with unit scale
// radius, with masses uniform in [0.1, 1.9). Particles which fall outside a
// box of width size centered on the origin are redrawn. See
// http://www.artcompsci.org/kali/vol/plummer/ch03.html.
func Plummer[F Float](rng *RNG, n int, size F) (coords [][]F, mass []F) {
	coords, mass = alloc[F](n, 3)
	for i := range mass {
		mass[i] = F(rng.Range(0.1, 1.9))
	}
	for i := 0; i < n; {
		r := 1 / math.Sqrt(math.Pow(rng.Uniform(), -2.0/3)-1)
		lon := 2 * math.Pi * rng.Uniform()
		colat := math.Acos(math.Max(-1, math.Min(1, 2*rng.Uniform()-1)))

		dir := r3.Vec{
			X: math.Cos(lon) * math.Sin(colat),
			Y: math.Sin(lon) * math.Sin(colat),
			Z: math.Cos(colat),
		}
		v := r3.Scale(r, dir)
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
			continue
		}

		coords[0][i], coords[1][i], coords[2][i] = F(v.X), F(v.Y), F(v.Z)
		if inBox(coords, i, size) {
			i++
		}
	}
	return coords, mass
}

// Rotate rotates three dimensional coordinates in place by angle radians
// about axis, which passes through the origin.
func Rotate[F Float](coords [][]F, angle float64, axis r3.Vec) error {
	if len(coords) != 3 {
		return fmt.Errorf("cannot rotate %d dimensional coordinates", len(coords))
	}
	rot := r3.NewRotation(angle, axis)
	for i := range coords[0] {
		v := rot.Rotate(r3.Vec{
			X: float64(coords[0][i]),
			Y: float64(coords[1][i]),
			Z: float64(coords[2][i]),
		})
		coords[0][i], coords[1][i], coords[2][i] = F(v.X), F(v.Y), F(v.Z)
	}
	return nil
}

// Translate adds delta[j] to every coordinate in dimension j.
func Translate[F Float](coords [][]F, delta []F) {
	for j := range coords {
		for i := range coords[j] {
			coords[j][i] += delta[j]
		}
	}
}

// Shrink scales every coordinate by f. It is used to move a distribution
// away from the edges of its box.
func Shrink[F Float](coords [][]F, f F) {
	for j := range coords {
		for i := range coords[j] {
			coords[j][i] *= f
		}
	}
}
