/*package eq is a simple package for telling whether two arrays are equal to
one another, either exactly or to within a tolerance.*/
package eq

import (
	"math"
)

// Float is the set of floating point element types supported by the
// tolerance checks.
type Float interface {
	float32 | float64
}

// Exact returns true if two arrays have the same length and the same values
// and false otherwise.
func Exact[T comparable](x, y []T) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Scaled returns true if x[i] == k*y[i] for every i, with no tolerance.
func Scaled[F Float](x, y []F, k F) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != k*y[i] {
			return false
		}
	}
	return true
}

// Zero returns true if every element of x is zero.
func Zero[F Float](x []F) bool {
	for i := range x {
		if x[i] != 0 {
			return false
		}
	}
	return true
}

// FloatsEps returns true if |x[i] - y[i]| <= eps for every i.
func FloatsEps[F Float](x, y []F, eps F) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !(abs(x[i]-y[i]) <= eps) {
			return false
		}
	}
	return true
}

// FloatsRel returns true if |x[i] - y[i]| <= rel*|y[i]| for every i.
func FloatsRel[F Float](x, y []F, rel F) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !(abs(x[i]-y[i]) <= rel*abs(y[i])) {
			return false
		}
	}
	return true
}

// MaxRelDiff returns the largest |x[i] - y[i]| / |y[i]|. Elements where y[i]
// is zero contribute their absolute difference.
func MaxRelDiff[F Float](x, y []F) float64 {
	max := 0.0
	for i := range x {
		d := math.Abs(float64(x[i]) - float64(y[i]))
		if y[i] != 0 {
			d /= math.Abs(float64(y[i]))
		}
		if d > max || math.IsNaN(d) {
			max = d
		}
	}
	return max
}

// Norms returns the Euclidean norm of every particle's vector, where vec[j]
// holds the j-th component of all vectors.
func Norms[F Float](vec [][]F) []float64 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float64, len(vec[0]))
	for i := range out {
		sum := 0.0
		for j := range vec {
			sum += float64(vec[j][i]) * float64(vec[j][i])
		}
		out[i] = math.Sqrt(sum)
	}
	return out
}

func abs[F Float](x F) F {
	if x < 0 {
		return -x
	}
	return x
}
