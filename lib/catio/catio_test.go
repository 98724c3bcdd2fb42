package catio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = `# mass x y z
1 0.1 0.2 0.3
2 -0.1 -0.2 -0.3 # trailing comment

# blank lines are ignored
3 1e-3 2.5 -4
`

func TestText(t *testing.T) {
	rd, err := Text([]byte(table))
	require.NoError(t, err)
	assert.Equal(t, 1, rd.Blocks())

	cols, err := rd.ReadFloat64s([]int{0, 3})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {0.3, -0.3, -4}}, cols)

	coords, mass, err := Particles[float32](rd, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, mass)
	assert.Equal(t, []float32{0.1, -0.1, 1e-3}, coords[0])
	assert.Len(t, coords, 3)

	coords2, _, err := Particles[float64](rd, 2)
	require.NoError(t, err)
	assert.Len(t, coords2, 2)
}

func TestBlocks(t *testing.T) {
	tests := []struct {
		blockSize int
	}{{8}, {16}, {25}, {1 << 10}}

	full, err := Text([]byte(table))
	require.NoError(t, err)
	exp, err := full.ReadFloat64s([]int{0, 1, 2, 3})
	require.NoError(t, err)

	for i := range tests {
		config := DefaultConfig
		config.MaxBlockSize = tests[i].blockSize
		config.MaxLineSize = 64

		rd, err := Text([]byte(table), config)
		require.NoError(t, err, "%d) block size %d", i, tests[i].blockSize)

		got := make([][]float64, 4)
		for b := 0; b < rd.Blocks(); b++ {
			cols, err := rd.ReadFloat64Block([]int{0, 1, 2, 3}, b)
			require.NoError(t, err)
			for j := range got {
				got[j] = append(got[j], cols[j]...)
			}
		}
		assert.Equal(t, exp, got, "%d) block size %d", i, tests[i].blockSize)

		all, err := rd.ReadFloat64s([]int{0, 1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, exp, all)
	}
}

func TestErrors(t *testing.T) {
	rd, err := Text([]byte("1 2\n3 x\n"))
	require.NoError(t, err)

	tests := []struct {
		name string
		read func() error
	}{
		{"unparsable value", func() error {
			_, err := rd.ReadFloat64s([]int{1})
			return err
		}},
		{"missing column", func() error {
			_, err := rd.ReadFloat64s([]int{2})
			return err
		}},
		{"missing block", func() error {
			_, err := rd.ReadFloat64Block([]int{0}, 1)
			return err
		}},
		{"unknown name", func() error {
			_, err := rd.Columns("vx")
			return err
		}},
		{"bad dimension", func() error {
			_, _, err := Particles[float64](rd, 4)
			return err
		}},
		{"long line", func() error {
			config := DefaultConfig
			config.MaxBlockSize = 4
			config.MaxLineSize = 2
			_, err := Text([]byte("1234567 8\n1\n"), config)
			return err
		}},
	}

	for i := range tests {
		if err := tests[i].read(); err == nil {
			t.Errorf("%d) Expected an error for %s.", i, tests[i].name)
		}
	}
}

func TestSkipLines(t *testing.T) {
	config := DefaultConfig
	config.SkipLines = 1
	config.Separator = ','
	rd, err := Text([]byte("mass,x,y\n1, 2,3\n4,5 ,6\n"), config)
	require.NoError(t, err)
	cols, err := rd.ReadFloat32s([]int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 4}, {3, 6}}, cols)
}

func TestWriteText(t *testing.T) {
	mass := []float64{1, 0.5}
	x := []float64{0.1, -1.0 / 3}
	y := []float64{1e-20, 7}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteText(buf, []string{"mass x y"}, mass, x, y))

	fname := filepath.Join(t.TempDir(), "particles.txt")
	require.NoError(t, os.WriteFile(fname, buf.Bytes(), 0644))
	rd, closer, err := TextFile(fname)
	require.NoError(t, err)
	defer closer()

	coords, m, err := Particles[float64](rd, 2)
	require.NoError(t, err)
	assert.Equal(t, mass, m)
	assert.Equal(t, [][]float64{x, y}, coords)

	assert.Error(t, WriteText(buf, nil, mass, []float64{1}))
}
