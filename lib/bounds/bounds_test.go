package bounds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	coords := [][]float64{{1, -2, 3}, {0, 0.5, -1}}
	b, err := Of(coords)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, -1}, b.Min)
	assert.Equal(t, []float64{3, 0.5}, b.Max)
	assert.Equal(t, []float64{0.5, -0.25}, b.Center())
	assert.Equal(t, 5.0, b.Width())
	_, err = Of([][]float64{{}, {}})
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Of([][]float64{{1, math.NaN()}})
	assert.ErrorIs(t, err, ErrNotFinite)
	_, err = Of([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestDomain(t *testing.T) {
	box := Domain(2, float32(2))
	assert.Equal(t, []float32{-1, -1}, box.Min)
	assert.Equal(t, []float32{1, 1}, box.Max)
	assert.Equal(t, float32(2), box.Width())

	nan := float32(math.NaN())
	tests := []struct {
		x, y float32
		res  bool
	}{
		{0, 0, true},
		{-1, -1, true},
		{0.999, -0.5, true},
		{1, 0, false},
		{0, 1, false},
		{-1.001, 0, false},
		{nan, 0, false},
		{0, float32(math.Inf(1)), false},
	}

	coords := [][]float32{make([]float32, len(tests)), make([]float32, len(tests))}
	for i := range tests {
		coords[0][i], coords[1][i] = tests[i].x, tests[i].y
		if res := box.Contains(coords, i); res != tests[i].res {
			t.Errorf("%d) Expected (%g, %g) contained = %v, got %v.",
				i, tests[i].x, tests[i].y, tests[i].res, res)
		}
	}

	if i := box.Outside(coords); i != 3 {
		t.Errorf("Expected particle 3 to be the first outside the box, got %d.", i)
	}
	if i := box.Outside([][]float32{coords[0][:3], coords[1][:3]}); i != -1 {
		t.Errorf("Expected every particle inside the box, got %d.", i)
	}
}

func TestBoxSize(t *testing.T) {
	coords := [][]float32{{0.5, -0.25}, {0.1, 0.2}, {-0.5, 0}}
	size, err := BoxSize(coords, 0)
	require.NoError(t, err)
	assert.True(t, fits(coords, size))
	assert.InDelta(t, 1, size, 1e-5)
	assert.Greater(t, size, float32(1))

	size, err = BoxSize(coords, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, size, 1e-6)

	size64, err := BoxSize([][]float64{{0, 0}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, size64)

	_, err = BoxSize([][]float64{{math.Inf(-1)}}, 0)
	assert.ErrorIs(t, err, ErrNotFinite)
	_, err = BoxSize([][]float64{{1}}, -1)
	assert.Error(t, err)
}

func TestRecenter(t *testing.T) {
	coords := [][]float64{{10, 12}, {-3, -1}, {0, 4}}
	offset, err := Recenter(coords)
	require.NoError(t, err)
	assert.Equal(t, []float64{-11, 2, -2}, offset)
	assert.Equal(t, [][]float64{{-1, 1}, {-1, 1}, {-2, 2}}, coords)
}
