package catio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteText writes equal length columns as a table which can be read back
// with DefaultConfig. Each line of header is written as a comment first.
func WriteText[F Float](w io.Writer, header []string, cols ...[]F) error {
	for j := range cols {
		if len(cols[j]) != len(cols[0]) {
			return fmt.Errorf("catio: column %d has length %d, expected %d",
				j, len(cols[j]), len(cols[0]))
		}
	}

	bitSize := 64
	if _, ok := any(F(0)).(float32); ok {
		bitSize = 32
	}

	bw := bufio.NewWriter(w)
	for _, line := range header {
		if _, err := fmt.Fprintf(bw, "# %s\n", line); err != nil {
			return err
		}
	}
	if len(cols) == 0 {
		return bw.Flush()
	}

	var buf []byte
	for i := range cols[0] {
		buf = buf[:0]
		for j := range cols {
			if j > 0 {
				buf = append(buf, ' ')
			}
			buf = strconv.AppendFloat(buf, float64(cols[j][i]), 'g', -1, bitSize)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
