package accuracy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/bhtree/lib/eq"
	"github.com/phil-mansfield/bhtree/lib/sample"
	"github.com/phil-mansfield/bhtree/lib/tree"
)

func TestStride(t *testing.T) {
	tests := []struct {
		n, count int
		res      []int
	}{
		{10, 5, []int{0, 2, 4, 6, 8}},
		{3, 5, []int{0, 1, 2}},
		{7, 3, []int{0, 2, 4}},
		{0, 2, []int{}},
	}

	for i := range tests {
		res := Stride(tests[i].n, tests[i].count)
		if !eq.Exact(res, tests[i].res) {
			t.Errorf("%d) Expected %v, got %v.", i, tests[i].res, res)
		}
	}
}

func TestSummarize(t *testing.T) {
	r := Summarize(0.5, []float64{4, 1, math.NaN(), 3, 2})
	assert.Equal(t, 4, r.N)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 2.5, r.Mean)
	assert.Equal(t, 2.0, r.Median)
	assert.Equal(t, 4.0, r.Max)
	assert.InDelta(t, math.Sqrt(7.5), r.RMS, 1e-15)
	assert.Contains(t, r.String(), "theta = 0.5")

	empty := Summarize(1, nil)
	assert.Equal(t, 0, empty.N)
}

func TestRelative(t *testing.T) {
	tests := []struct {
		approx, exact []float64
		res           float64
	}{
		{[]float64{1, 0}, []float64{1, 0}, 0},
		{[]float64{0, 1.1}, []float64{0, 1}, 0.1},
		{[]float64{3, 4}, []float64{0, 0}, math.NaN()},
		{[]float64{0, 0}, []float64{3, 4}, 1},
		{[]float64{-3, 4}, []float64{3, 4}, 1.2},
	}

	approx := [][]float64{make([]float64, len(tests)), make([]float64, len(tests))}
	exact := [][]float64{make([]float64, len(tests)), make([]float64, len(tests))}
	for i := range tests {
		for j := range approx {
			approx[j][i], exact[j][i] = tests[i].approx[j], tests[i].exact[j]
		}
	}

	errs := Relative(approx, exact)
	for i := range tests {
		if math.IsNaN(tests[i].res) {
			if !math.IsNaN(errs[i]) {
				t.Errorf("%d) Expected NaN, got %g.", i, errs[i])
			}
		} else if math.Abs(errs[i]-tests[i].res) > 1e-12 {
			t.Errorf("%d) Expected %g, got %g.", i, tests[i].res, errs[i])
		}
	}
}

func TestEvaluate(t *testing.T) {
	coords, mass := sample.Uniform[float64](sample.NewRNG(9), 2000, 3, 1)
	tr, err := tree.New(coords, mass, 1, 8, 32)
	require.NoError(t, err)

	idx := Stride(tr.Len(), 50)
	reports, err := Scan(tr, []float64{1, 0.5, 0.25}, idx)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for i := range reports {
		assert.Equal(t, 50, reports[i].N)
		assert.LessOrEqual(t, reports[i].Median, reports[i].Max)
		if i > 0 {
			assert.Less(t, reports[i].Mean, reports[i-1].Mean)
		}
	}

	// Scaling G changes nothing about relative errors.
	r, err := Evaluate(tr, 0.5, idx, tree.WithG(3.0))
	require.NoError(t, err)
	assert.InDelta(t, reports[1].Mean, r.Mean, 1e-12)

	exact, err := Evaluate(tr, 0, idx)
	require.NoError(t, err)
	assert.Less(t, exact.Max, 1e-12)

	_, err = Evaluate(tr, 0.5, []int{tr.Len()})
	assert.Error(t, err)
}
