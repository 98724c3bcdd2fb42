/*package catio reads whitespace separated particle tables, one particle per
line, optionally in several blocks so that very large files never have to be
held in memory as text all at once.*/
package catio

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// TextConfig contains information neccessary for parsing particle tables.
type TextConfig struct {
	Separator    byte           // Character used to separated fields
	Comment      byte           // Character used to start comments.
	SkipLines    int            // Number of lines to skip at the start of file.
	ColumnNames  map[string]int // Map from column names to column indices.
	MaxBlockSize int            // Largest amount of text read at one time.
	MaxLineSize  int            // Largest possible line size.
}

// DefaultConfig is a TextConfig instance which can read tables with mass in
// the first column followed by the coordinates.
var DefaultConfig = TextConfig{
	Separator: ' ',
	Comment:   '#',
	SkipLines: 0,
	ColumnNames: map[string]int{
		"mass": 0, "x": 1, "y": 2, "z": 3,
	},

	MaxBlockSize: 1 << 30,
	MaxLineSize:  1 << 20,
}

// Reader allows the user to access columns of a particle table, potentially
// in blocks.
type Reader interface {
	// Read* methods read data across all blocks.
	ReadFloat64s(columns []int) ([][]float64, error)
	ReadFloat32s(columns []int) ([][]float32, error)

	// Blocks returns the number of blocks in the file.
	Blocks() int

	// Read*Block reads the data associated with block i.
	ReadFloat64Block(columns []int, i int) ([][]float64, error)
	ReadFloat32Block(columns []int, i int) ([][]float32, error)

	// Columns converts column names to indices using the config's
	// ColumnNames.
	Columns(names ...string) ([]int, error)
}

// TextFile creates a Reader for a text file. The file is kept open until the
// returned close function is called.
func TextFile(fname string, config ...TextConfig) (Reader, func() error, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	rd, err := newTextReader(f, int(info.Size()), config...)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("catio: %s: %w", fname, err)
	}
	return rd, f.Close, nil
}

// Text creates a Reader for a block of text.
func Text(text []byte, config ...TextConfig) (Reader, error) {
	return newTextReader(bytes.NewReader(text), len(text), config...)
}

// Stdin creates a Reader for the text currently in stdin.
func Stdin(config ...TextConfig) (Reader, error) {
	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	return Text(text, config...)
}

// Float is the set of element types particles can be read as.
type Float interface {
	float32 | float64
}

// Particles reads a mass column and dim coordinate columns from a table
// whose columns are named "mass", "x", "y" and, for dim = 3, "z".
func Particles[F Float](rd Reader, dim int) (coords [][]F, mass []F, err error) {
	if dim != 2 && dim != 3 {
		return nil, nil, fmt.Errorf("catio: cannot read %d dimensional particles", dim)
	}
	names := []string{"mass", "x", "y", "z"}[:dim+1]
	idx, err := rd.Columns(names...)
	if err != nil {
		return nil, nil, err
	}

	var cols [][]F
	switch r := any(&cols).(type) {
	case *[][]float64:
		*r, err = rd.ReadFloat64s(idx)
	case *[][]float32:
		*r, err = rd.ReadFloat32s(idx)
	}
	if err != nil {
		return nil, nil, err
	}
	return cols[1:], cols[0], nil
}
