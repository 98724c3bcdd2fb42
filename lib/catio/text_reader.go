package catio

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

type textReader struct {
	rd          io.ReadSeeker
	config      TextConfig
	size        int
	blockStarts []int
	blockEnds   []int
	buf         []byte
}

// newTextReader creates a new textReader associated with the I/O stream rd,
// which contains size bytes. An optional config file can be provided,
// otherwise DefaultConfig will be used.
func newTextReader(
	rd io.ReadSeeker, size int, config ...TextConfig,
) (*textReader, error) {
	reader := &textReader{config: DefaultConfig, size: size, rd: rd}
	if len(config) > 0 {
		reader.config = config[0]
	}
	if reader.config.MaxBlockSize <= 0 || reader.config.MaxLineSize <= 0 {
		return nil, fmt.Errorf("block size %d and line size %d must be positive",
			reader.config.MaxBlockSize, reader.config.MaxLineSize)
	}

	// Figure out how many blocks are in the file.
	blocks := 1 + size/reader.config.MaxBlockSize
	if blocks > 1 && (blocks-1)*reader.config.MaxBlockSize == size {
		blocks--
	}

	reader.blockStarts = make([]int, blocks)
	reader.blockEnds = make([]int, blocks)

	// Find the start of each block.
	buf := make([]byte, reader.config.MaxLineSize)
	for i := 0; i < blocks; i++ {
		start, err := reader.blockStart(i, buf)
		if err != nil {
			return nil, err
		}
		reader.blockStarts[i] = start
	}

	// Find the end of each block.
	for i := 0; i < len(reader.blockEnds)-1; i++ {
		reader.blockEnds[i] = reader.blockStarts[i+1]
	}
	reader.blockEnds[blocks-1] = size

	// initialize byte buffer
	maxSize := 0
	for i := range reader.blockStarts {
		size := reader.blockEnds[i] - reader.blockStarts[i]
		if size > maxSize {
			maxSize = size
		}
	}
	reader.buf = make([]byte, maxSize)

	return reader, nil
}

// blockStart returns the index of the starting byte of the specified block:
// the byte after the last line break before the nominal block boundary. It
// requires a buffer that is large enough to read any line of the file.
func (t *textReader) blockStart(block int, buf []byte) (int, error) {
	if block == 0 {
		return 0, nil
	}

	// starting and ending indices of the line surrounding the block break
	lineEnd := block * t.config.MaxBlockSize
	if lineEnd > t.size {
		lineEnd = t.size
	}
	lineStart := lineEnd - len(buf)
	if lineStart < 0 {
		lineStart = 0
	}
	buf = buf[:lineEnd-lineStart]

	// Find the start of the line...
	if _, err := t.rd.Seek(int64(lineStart), io.SeekStart); err != nil {
		return 0, err
	}

	// ...and read it
	if _, err := io.ReadFull(t.rd, buf); err != nil {
		return 0, err
	}

	idx := bytes.LastIndexByte(buf, '\n')
	if idx == -1 && lineStart == 0 {
		return 0, nil
	} else if idx == -1 {
		return 0, fmt.Errorf("no line break within %d bytes of byte %d",
			len(buf), lineEnd)
	}

	return idx + 1 + lineStart, nil
}

// Columns converts column names into integer indices.
func (t *textReader) Columns(names ...string) ([]int, error) {
	idxs := make([]int, len(names))
	for i := range names {
		idx, ok := t.config.ColumnNames[names[i]]
		if !ok {
			return nil, fmt.Errorf("catio: unknown column '%s'", names[i])
		}
		idxs[i] = idx
	}
	return idxs, nil
}

func (t *textReader) Blocks() int {
	return len(t.blockStarts)
}

// ReadFloat64s reads the specified columns from every block in the file,
// interprets them as float64s and concatenates them together.
func (t *textReader) ReadFloat64s(columns []int) ([][]float64, error) {
	return readAll[float64](t, columns)
}

func (t *textReader) ReadFloat32s(columns []int) ([][]float32, error) {
	return readAll[float32](t, columns)
}

// ReadFloat64Block reads the specified columns from the given block as
// float64s.
func (t *textReader) ReadFloat64Block(columns []int, i int) ([][]float64, error) {
	return readBlock[float64](t, columns, i, make([][]float64, len(columns)))
}

func (t *textReader) ReadFloat32Block(columns []int, i int) ([][]float32, error) {
	return readBlock[float32](t, columns, i, make([][]float32, len(columns)))
}

func readAll[F Float](t *textReader, columns []int) ([][]F, error) {
	bufs := make([][]F, len(columns))
	for i := 0; i < t.Blocks(); i++ {
		var err error
		bufs, err = readBlock(t, columns, i, bufs)
		if err != nil {
			return nil, err
		}
	}
	return bufs, nil
}

// readBlock parses block i and appends the requested columns to bufs.
func readBlock[F Float](
	t *textReader, columns []int, i int, bufs [][]F,
) ([][]F, error) {
	if i < 0 || i >= t.Blocks() {
		return nil, fmt.Errorf("catio: block %d requested, but there are "+
			"only %d blocks", i, t.Blocks())
	}

	// Read raw bytes.
	n := t.blockEnds[i] - t.blockStarts[i]
	if _, err := t.rd.Seek(int64(t.blockStarts[i]), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(t.rd, t.buf[:n]); err != nil {
		return nil, err
	}

	skip := t.config.SkipLines
	if i > 0 {
		skip = 0
	}

	// Separate and clean lines
	lines := split(t.buf[:n], '\n')
	if skip > len(lines) {
		skip = len(lines)
	}
	lines = uncomment(lines[skip:], t.config.Comment)

	bitSize := 64
	if _, ok := any(F(0)).(float32); ok {
		bitSize = 32
	}

	for l, line := range lines {
		fs := fields(line, t.config.Separator)
		for c, col := range columns {
			if col < 0 || col >= len(fs) {
				return nil, fmt.Errorf("catio: row %d of block %d has %d "+
					"columns, but column %d was requested", l+1, i,
					len(fs), col)
			}
			x, err := strconv.ParseFloat(string(fs[col]), bitSize)
			if err != nil {
				return nil, fmt.Errorf("catio: row %d of block %d: %w",
					l+1, i, err)
			}
			bufs[c] = append(bufs[c], F(x))
		}
	}

	return bufs, nil
}

// split splits text into lines.
func split(text []byte, sep byte) [][]byte {
	if len(text) > 0 && text[len(text)-1] == sep {
		text = text[:len(text)-1]
	}
	if len(text) == 0 {
		return nil
	}
	return bytes.Split(text, []byte{sep})
}

// uncomment strips comments and removes lines which are left empty.
func uncomment(lines [][]byte, comment byte) [][]byte {
	out := lines[:0:0]
	for _, line := range lines {
		if idx := bytes.IndexByte(line, comment); idx >= 0 {
			line = line[:idx]
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}

// fields splits a line on sep. Runs of whitespace separators count as one.
func fields(line []byte, sep byte) [][]byte {
	if sep == ' ' || sep == '\t' {
		return bytes.Fields(line)
	}
	fs := bytes.Split(line, []byte{sep})
	for i := range fs {
		fs[i] = bytes.TrimSpace(fs[i])
	}
	return fs
}
