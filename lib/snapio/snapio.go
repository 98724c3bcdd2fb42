/*package snapio reads and writes particle snapshot files. A snapshot stores a
fixed width header, the names of its columns and then one compressed block per
column. Every column holds one value per particle and all columns share the
same floating point width.

Each column is split into byte planes (the least significant byte of every
value, then the next byte, and so on) and every plane is compressed with zstd
separately, which lets the highly repetitive exponent bytes compress to almost
nothing.
*/
package snapio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/DataDog/zstd"
)

const (
	// MagicNumber is an arbitrary number at the start of all snapshot files
	// which helps identify when the code is run on something else by
	// accident.
	MagicNumber = 0xb4700c70
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0x700c70b4
	// Version is the newest file version this package can read.
	Version = 1

	// CompressionLevel is the zstd level used for every byte plane.
	CompressionLevel = 3

	maxFields     = 1 << 16
	maxNameLength = 1 << 16

	// maxRatio bounds the zstd compression ratio: a 4 byte RLE block holds
	// at most 128 KiB.
	maxRatio = 1 << 15
)

var (
	// ErrFormat is returned when a file is not a snapshot file or is
	// corrupted.
	ErrFormat = errors.New("snapio: invalid snapshot file")
)

// Float is the set of element types columns can be stored as.
type Float interface {
	float32 | float64
}

// FixedWidthHeader is the part of the header which has the same size in
// every file.
type FixedWidthHeader struct {
	// N is the number of particles, Dim the number of spatial dimensions and
	// Width the size of each stored value in bytes (4 or 8).
	N, Dim, Width int64
	// BoxSize is the width of the cubic domain the particles live in.
	BoxSize float64
	// G and Theta are the gravitational constant and opening angle used to
	// compute the columns of an output file. They are zero for input files.
	G, Theta float64
}

// Header is the full header of a snapshot file.
type Header struct {
	FixedWidthHeader
	// Names gives the names of all the columns stored in the file.
	Names []string
}

// Index returns the index of the named column and -1 if it isn't in the file.
func (hd *Header) Index(name string) int {
	for i := range hd.Names {
		if hd.Names[i] == name {
			return i
		}
	}
	return -1
}

func widthOf[F Float]() int64 {
	if _, ok := any(F(0)).(float32); ok {
		return 4
	}
	return 8
}

// Write writes the columns cols, named by hd.Names, to wr in little endian
// order. hd.N and hd.Width are set from cols.
func Write[F Float](wr io.Writer, hd *Header, cols [][]F) error {
	return WriteOrder(wr, binary.LittleEndian, hd, cols)
}

// WriteOrder is Write with an explicit byte order for the header.
func WriteOrder[F Float](
	wr io.Writer, order binary.ByteOrder, hd *Header, cols [][]F,
) error {
	if len(hd.Names) != len(cols) {
		return fmt.Errorf("snapio: %d column names given for %d columns",
			len(hd.Names), len(cols))
	} else if len(cols) > maxFields {
		return fmt.Errorf("snapio: %d columns is more than the maximum of %d",
			len(cols), maxFields)
	}

	hd.Width = widthOf[F]()
	hd.N = 0
	if len(cols) > 0 {
		hd.N = int64(len(cols[0]))
	}
	for i := range cols {
		if int64(len(cols[i])) != hd.N {
			return fmt.Errorf("snapio: column '%s' has %d values, but "+
				"column '%s' has %d", hd.Names[i], len(cols[i]), hd.Names[0], hd.N)
		}
	}

	header := &bytes.Buffer{}
	if err := hd.write(header, order); err != nil {
		return err
	}

	// Compress every column before writing so the offsets are known.
	data := &bytes.Buffer{}
	edges := make([]int64, len(cols)+1)
	var b, buf []byte
	for i := range cols {
		var err error
		b, buf, err = compressColumn(cols[i], b, buf, data, order)
		if err != nil {
			return err
		}
		edges[i+1] = int64(data.Len())
	}

	dataOffset := int64(header.Len() + 8*len(edges))
	for i := range edges {
		edges[i] += dataOffset
	}

	if _, err := wr.Write(header.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(wr, order, edges); err != nil {
		return err
	}
	_, err := wr.Write(data.Bytes())
	return err
}

// WriteFile writes a snapshot to the named file.
func WriteFile[F Float](fname string, hd *Header, cols [][]F) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := Write(f, hd, cols); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read reads every column of a snapshot, converting values to F.
func Read[F Float](rd io.Reader) (*Header, [][]F, error) {
	hd, order, edges, err := readNavigation(rd)
	if err != nil {
		return nil, nil, err
	}

	cols := make([][]F, len(hd.Names))
	var b, buf []byte
	for i := range cols {
		cols[i], b, buf, err = decompressColumn[F](rd, hd, b, buf, order,
			edges[i+1]-edges[i])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: column '%s': %w",
				ErrFormat, hd.Names[i], err)
		}
	}
	return hd, cols, nil
}

// ReadFile reads every column of the named snapshot file.
func ReadFile[F Float](fname string) (*Header, [][]F, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	hd, cols, err := Read[F](f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", fname, err)
	}
	return hd, cols, nil
}

// ReadHeader reads only the header of a snapshot.
func ReadHeader(rd io.Reader) (*Header, error) {
	hd, _, _, err := readNavigation(rd)
	return hd, err
}

// ReadColumn reads a single named column, seeking past the others.
func ReadColumn[F Float](rd io.ReadSeeker, name string) ([]F, error) {
	if _, err := rd.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	hd, order, edges, err := readNavigation(rd)
	if err != nil {
		return nil, err
	}

	i := hd.Index(name)
	if i == -1 {
		return nil, fmt.Errorf("snapio: the column '%s' is not in the "+
			"file. It only contains the columns %s", name, hd.Names)
	}
	if _, err := rd.Seek(edges[i], io.SeekStart); err != nil {
		return nil, err
	}

	col, _, _, err := decompressColumn[F](rd, hd, nil, nil, order,
		edges[i+1]-edges[i])
	if err != nil {
		return nil, fmt.Errorf("%w: column '%s': %w", ErrFormat, name, err)
	}
	return col, nil
}

// readNavigation reads the header and the column offsets.
func readNavigation(rd io.Reader) (*Header, binary.ByteOrder, []int64, error) {
	order, err := checkFile(rd)
	if err != nil {
		return nil, nil, nil, err
	}

	hd := &Header{}
	if err := hd.read(rd, order); err != nil {
		return nil, nil, nil, err
	}

	edges := make([]int64, len(hd.Names)+1)
	if err := binary.Read(rd, order, edges); err != nil {
		return nil, nil, nil, err
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] < edges[i-1] {
			return nil, nil, nil, fmt.Errorf("%w: column offsets are not "+
				"increasing", ErrFormat)
		}
	}
	return hd, order, edges, nil
}

// checkFile reads in the file's magic number and version number and makes
// sure that it can actually be read. If it can, the byte order is returned.
func checkFile(rd io.Reader) (binary.ByteOrder, error) {
	var magicNumber, version uint32

	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(rd, order, &magicNumber); err != nil {
		return nil, err
	}

	switch magicNumber {
	case MagicNumber:
	case ReverseMagicNumber:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: all snapshot files begin with either "+
			"the 32-bit integer %x or %x, but this file begins with %x",
			ErrFormat, MagicNumber, ReverseMagicNumber, magicNumber)
	}

	if err := binary.Read(rd, order, &version); err != nil {
		return nil, err
	}
	if version > Version {
		return nil, fmt.Errorf("%w: the file was written with version %d, "+
			"but this code only reads versions up to %d", ErrFormat,
			version, Version)
	}

	return order, nil
}

func (hd *Header) write(wr io.Writer, order binary.ByteOrder) error {
	if err := binary.Write(wr, order, uint32(MagicNumber)); err != nil {
		return err
	}
	if err := binary.Write(wr, order, uint32(Version)); err != nil {
		return err
	}
	if err := binary.Write(wr, order, &hd.FixedWidthHeader); err != nil {
		return err
	}

	nNames := make([]uint32, len(hd.Names))
	for i := range nNames {
		if len(hd.Names[i]) > maxNameLength {
			return fmt.Errorf("snapio: column name of length %d is too long",
				len(hd.Names[i]))
		}
		nNames[i] = uint32(len(hd.Names[i]))
	}
	if err := binary.Write(wr, order, uint32(len(nNames))); err != nil {
		return err
	}
	if err := binary.Write(wr, order, nNames); err != nil {
		return err
	}
	for i := range hd.Names {
		if _, err := io.WriteString(wr, hd.Names[i]); err != nil {
			return err
		}
	}
	return nil
}

func (hd *Header) read(rd io.Reader, order binary.ByteOrder) error {
	if err := binary.Read(rd, order, &hd.FixedWidthHeader); err != nil {
		return err
	}
	if hd.N < 0 || (hd.Width != 4 && hd.Width != 8) {
		return fmt.Errorf("%w: N = %d, width = %d", ErrFormat, hd.N, hd.Width)
	}

	var nFields uint32
	if err := binary.Read(rd, order, &nFields); err != nil {
		return err
	}
	if nFields > maxFields {
		return fmt.Errorf("%w: %d columns", ErrFormat, nFields)
	}

	nNames := make([]uint32, nFields)
	if err := binary.Read(rd, order, nNames); err != nil {
		return err
	}
	hd.Names = make([]string, nFields)
	for i := range nNames {
		if nNames[i] > maxNameLength {
			return fmt.Errorf("%w: column name of length %d", ErrFormat,
				nNames[i])
		}
		b := make([]byte, nNames[i])
		if _, err := io.ReadFull(rd, b); err != nil {
			return err
		}
		hd.Names[i] = string(b)
	}
	return nil
}

// compressColumn writes x to wr as one zstd block per byte plane, each
// prefixed by its length. b and buf are temporary buffers that are resized
// as needed and returned.
func compressColumn[F Float](
	x []F, b, buf []byte, wr io.Writer, order binary.ByteOrder,
) (bOut, bufOut []byte, err error) {
	if len(x) == 0 {
		return b, buf, nil
	}

	bits := toBits(x)
	b = resizeBytes(b, len(x))
	for plane := 0; plane < int(widthOf[F]()); plane++ {
		intToByte(bits, b, plane)

		buf, err = zstd.CompressLevel(buf, b, CompressionLevel)
		if err != nil {
			return nil, nil, err
		}
		if err = binary.Write(wr, order, int64(len(buf))); err != nil {
			return nil, nil, err
		}
		if _, err = wr.Write(buf); err != nil {
			return nil, nil, err
		}
	}
	return b[:0], buf[:0], nil
}

// decompressColumn reads a column written by compressColumn, which occupies
// size bytes of rd, and converts it to F.
func decompressColumn[F Float](
	rd io.Reader, hd *Header, b, buf []byte, order binary.ByteOrder, size int64,
) (x []F, bOut, bufOut []byte, err error) {
	if hd.N/maxRatio > size {
		return nil, nil, nil, fmt.Errorf("%d values cannot be stored in "+
			"%d bytes", hd.N, size)
	}
	x = make([]F, hd.N)
	if hd.N == 0 {
		return x, b, buf, nil
	}

	bits := make([]uint64, hd.N)
	read := int64(0)
	for plane := 0; plane < int(hd.Width); plane++ {
		nBuf := int64(0)
		if err = binary.Read(rd, order, &nBuf); err != nil {
			return nil, nil, nil, err
		}
		read += 8 + nBuf
		if nBuf < 0 || read > size {
			return nil, nil, nil, fmt.Errorf("block of %d bytes overruns "+
				"the column", nBuf)
		} else if hd.N/maxRatio > nBuf {
			return nil, nil, nil, fmt.Errorf("byte plane %d cannot hold %d "+
				"values in %d bytes", plane, hd.N, nBuf)
		}

		buf = resizeBytes(buf, int(nBuf))
		if _, err = io.ReadFull(rd, buf); err != nil {
			return nil, nil, nil, err
		}

		b, err = zstd.Decompress(resizeBytes(b, int(hd.N)), buf)
		if err != nil {
			return nil, nil, nil, err
		}
		if int64(len(b)) != hd.N {
			return nil, nil, nil, fmt.Errorf("byte plane %d has %d values, "+
				"expected %d", plane, len(b), hd.N)
		}
		byteToInt(b, bits, plane)
	}

	fromBits(bits, int(hd.Width), x)
	return x, b[:0], buf[:0], nil
}

func toBits[F Float](x []F) []uint64 {
	bits := make([]uint64, len(x))
	switch v := any(x).(type) {
	case []float32:
		for i := range v {
			bits[i] = uint64(math.Float32bits(v[i]))
		}
	case []float64:
		for i := range v {
			bits[i] = math.Float64bits(v[i])
		}
	}
	return bits
}

func fromBits[F Float](bits []uint64, width int, x []F) {
	for i := range bits {
		if width == 4 {
			x[i] = F(math.Float32frombits(uint32(bits[i])))
		} else {
			x[i] = F(math.Float64frombits(bits[i]))
		}
	}
}

// intToByte transfers a one-byte "column" from u64 to b. The bytes are indexed
// from least to most significant.
func intToByte(u64 []uint64, b []byte, col int) {
	for i := range u64 {
		b[i] = byte(u64[i] >> (8 * col))
	}
}

// byteToInt adds a one-byte column.
func byteToInt(b []byte, u64 []uint64, col int) {
	for i := range u64 {
		u64[i] |= uint64(b[i]) << (8 * col)
	}
}

// resizeBytes resizes a byte buffer to have length n.
func resizeBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	b = b[:cap(b)]
	return append(b, make([]byte, n-len(b))...)
}
