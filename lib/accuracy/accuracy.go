/*package accuracy measures how far tree accelerations are from exact direct
summation.*/
package accuracy

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/bhtree/lib/particles"
	"github.com/phil-mansfield/bhtree/lib/tree"
)

// Report summarizes the relative acceleration errors of a set of particles.
type Report struct {
	Theta float64
	// N is the number of particles the statistics are computed over. Skipped
	// counts particles whose exact acceleration is exactly zero.
	N, Skipped              int
	Mean, Median, RMS, Max float64
}

func (r Report) String() string {
	return fmt.Sprintf("theta = %.3g: N = %d, mean = %.3e, median = %.3e, "+
		"rms = %.3e, max = %.3e", r.Theta, r.N, r.Mean, r.Median, r.RMS, r.Max)
}

// Stride returns count indices spread evenly over [0, n). If count >= n,
// every index is returned.
func Stride(n, count int) []int {
	if count >= n {
		count = n
	}
	idx := make([]int, count)
	for i := range idx {
		idx[i] = int(int64(i) * int64(n) / int64(count))
	}
	return idx
}

// Relative returns |approx_i - exact_i| / |exact_i| for each particle, where
// approx and exact store one array per dimension. Particles with a zero exact
// acceleration get NaN.
func Relative[F tree.Float](approx, exact [][]F) []float64 {
	if len(approx) == 0 {
		return nil
	}
	errs := make([]float64, len(approx[0]))
	for i := range errs {
		d, n := 0.0, 0.0
		for j := range approx {
			dx := float64(approx[j][i]) - float64(exact[j][i])
			d += dx * dx
			n += float64(exact[j][i]) * float64(exact[j][i])
		}
		if n == 0 {
			errs[i] = math.NaN()
		} else {
			errs[i] = math.Sqrt(d / n)
		}
	}
	return errs
}

// Summarize computes statistics over errs, ignoring NaN values.
func Summarize(theta float64, errs []float64) Report {
	r := Report{Theta: theta}
	x := make([]float64, 0, len(errs))
	for _, e := range errs {
		if math.IsNaN(e) {
			r.Skipped++
		} else {
			x = append(x, e)
		}
	}
	r.N = len(x)
	if r.N == 0 {
		return r
	}

	sort.Float64s(x)
	r.Mean = stat.Mean(x, nil)
	r.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	r.Max = floats.Max(x)
	r.RMS = math.Sqrt(floats.Dot(x, x) / float64(r.N))
	return r
}

// Evaluate compares the vectorized tree accelerations of the particles idx,
// given in tree order, against the exact evaluator.
func Evaluate[F tree.Float](
	tr *tree.Tree[F], theta F, idx []int, opts ...tree.EvalOption[F],
) (Report, error) {
	for _, i := range idx {
		if i < 0 || i >= tr.Len() {
			return Report{}, fmt.Errorf("accuracy: index %d is outside a "+
				"tree with %d particles", i, tr.Len())
		}
	}

	acc := tr.Accelerations(theta, opts...)
	approx := make([][]F, tr.Dim())
	exact := make([][]F, tr.Dim())
	rows := particles.Identity(len(idx))
	for j := range approx {
		approx[j] = make([]F, len(idx))
		exact[j] = make([]F, len(idx))
		if err := particles.Transfer(approx[j], acc[j], idx, rows); err != nil {
			return Report{}, err
		}
	}
	for k, i := range idx {
		e := tr.ExactAcceleration(i, opts...)
		for j := range exact {
			exact[j][k] = e[j]
		}
	}

	return Summarize(float64(theta), Relative(approx, exact)), nil
}

// Scan evaluates the accuracy of a tree at several opening angles.
func Scan[F tree.Float](
	tr *tree.Tree[F], thetas []F, idx []int, opts ...tree.EvalOption[F],
) ([]Report, error) {
	out := make([]Report, len(thetas))
	for i, theta := range thetas {
		var err error
		if out[i], err = Evaluate(tr, theta, idx, opts...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
