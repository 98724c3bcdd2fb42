package snapio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testColumns[F Float](n int) [][]F {
	cols := [][]F{make([]F, n), make([]F, n), make([]F, n)}
	for i := 0; i < n; i++ {
		cols[0][i] = F(1 + float64(i%7)/8)
		cols[1][i] = F(math.Sin(float64(i)))
		cols[2][i] = F(-float64(i) / 3)
	}
	return cols
}

func TestRoundTrip(t *testing.T) {
	names := []string{"mass", "x", "y"}
	for _, n := range []int{0, 1, 100, 10000} {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			cols := testColumns[float64](n)
			hd := &Header{FixedWidthHeader{Dim: 2, BoxSize: 4, G: 2}, names}

			buf := &bytes.Buffer{}
			require.NoError(t, WriteOrder(buf, order, hd, cols))
			assert.Equal(t, int64(n), hd.N)
			assert.Equal(t, int64(8), hd.Width)

			rhd, rcols, err := Read[float64](bytes.NewReader(buf.Bytes()))
			require.NoError(t, err, "n = %d", n)
			assert.Equal(t, hd, rhd)
			assert.Equal(t, cols, rcols)

			col, err := ReadColumn[float64](bytes.NewReader(buf.Bytes()), "y")
			require.NoError(t, err)
			assert.Equal(t, cols[2], col)
		}
	}
}

func TestWidthConversion(t *testing.T) {
	cols := testColumns[float32](500)
	hd := &Header{FixedWidthHeader{Dim: 2}, []string{"mass", "x", "y"}}
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, hd, cols))
	assert.Equal(t, int64(4), hd.Width)

	_, wide, err := Read[float64](bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	for j := range cols {
		for i := range cols[j] {
			require.Equal(t, float64(cols[j][i]), wide[j][i])
		}
	}
}

func TestCompression(t *testing.T) {
	// Byte planes of smooth data compress well.
	n := 1 << 14
	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, &Header{Names: []string{"mass"}}, [][]float64{x}))
	assert.Less(t, buf.Len(), n)
}

func TestFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "particles.bht")
	cols := testColumns[float32](64)
	hd := &Header{FixedWidthHeader{Dim: 2, BoxSize: 1}, []string{"mass", "x", "y"}}
	require.NoError(t, WriteFile(fname, hd, cols))

	rhd, rcols, err := ReadFile[float32](fname)
	require.NoError(t, err)
	assert.Equal(t, hd.Names, rhd.Names)
	assert.Equal(t, cols, rcols)

	f, err := os.Open(fname)
	require.NoError(t, err)
	defer f.Close()
	hd2, err := ReadHeader(f)
	require.NoError(t, err)
	assert.Equal(t, int64(64), hd2.N)

	_, err = ReadColumn[float32](f, "z")
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.Error(t, Write(buf, &Header{Names: []string{"x"}}, [][]float64{{1}, {2}}))
	assert.Error(t, Write(buf, &Header{Names: []string{"x", "y"}},
		[][]float64{{1}, {2, 3}}))

	_, _, err := Read[float64](bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.True(t, errors.Is(err, ErrFormat))

	buf.Reset()
	hd := &Header{Names: []string{"x"}}
	require.NoError(t, Write(buf, hd, [][]float64{{1, 2, 3, 4}}))
	data := buf.Bytes()

	// Newer versions are rejected.
	future := append([]byte{}, data...)
	binary.LittleEndian.PutUint32(future[4:], Version+1)
	_, _, err = Read[float64](bytes.NewReader(future))
	assert.ErrorIs(t, err, ErrFormat)

	// Truncated and corrupted data blocks are reported.
	_, _, err = Read[float64](bytes.NewReader(data[:len(data)-3]))
	assert.Error(t, err)
	rd := bytes.NewReader(data)
	_, err = ReadHeader(rd)
	require.NoError(t, err)
	start := len(data) - rd.Len()
	corrupt := append([]byte{}, data...)
	binary.LittleEndian.PutUint64(corrupt[start:], 1<<40)
	_, _, err = Read[float64](bytes.NewReader(corrupt))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestCorruptLength(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, &Header{Names: []string{"x", "y"}},
		[][]float64{{1, 2, 3}, {4, 5, 6}}))
	data := buf.Bytes()

	tests := []struct {
		n int64
	}{
		{1 << 60},
		{1 << 40},
		{1 << 62},
	}

	for i := range tests {
		corrupt := append([]byte{}, data...)
		// N is the first field after the magic and version numbers.
		binary.LittleEndian.PutUint64(corrupt[8:], uint64(tests[i].n))

		_, _, err := Read[float64](bytes.NewReader(corrupt))
		if !errors.Is(err, ErrFormat) {
			t.Errorf("%d) Expected ErrFormat for N = %d, got %v.",
				i, tests[i].n, err)
		}
		_, err = ReadColumn[float64](bytes.NewReader(corrupt), "y")
		if !errors.Is(err, ErrFormat) {
			t.Errorf("%d) Expected ErrFormat from ReadColumn for N = %d, "+
				"got %v.", i, tests[i].n, err)
		}
	}
}
