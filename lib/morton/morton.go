/*package morton maps positions inside a cubic box onto Morton (Z-order) codes
and contains the bit arithmetic for the nodal codes which label tree nodes.

A nodal code is 1 for the root and appends dim bits per level, so the level of
a node and all of its ancestors can be recovered from the code alone.
*/
package morton

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

var (
	// ErrNotFinite is returned when a coordinate rescales to NaN or Inf.
	ErrNotFinite = errors.New("morton: non-finite coordinate")
	// ErrOutOfBounds is returned for coordinates outside [-box/2, box/2).
	ErrOutOfBounds = errors.New("morton: coordinate outside of box")
	// ErrDim is returned for dimensions other than 2 and 3.
	ErrDim = errors.New("morton: unsupported dimension")
)

// Float is the set of floating point types that can be discretized.
type Float interface {
	float32 | float64
}

var (
	lut2, lut3 [256]uint64
)

func init() {
	for i := 0; i < 256; i++ {
		for b := 0; b < 8; b++ {
			if i&(1<<b) != 0 {
				lut2[i] |= 1 << (2 * b)
				lut3[i] |= 1 << (3 * b)
			}
		}
	}
}

// Supported returns true if codes can be generated for dim dimensions.
func Supported(dim int) bool { return dim == 2 || dim == 3 }

// CBits returns the number of bits per dimension in a 64-bit code. One bit
// is always left free so that the deepest nodal codes still fit.
func CBits(dim int) uint {
	n := 64 / uint(dim)
	if 64%uint(dim) == 0 {
		n--
	}
	return n
}

// Discretize rescales x from [-boxSize/2, boxSize/2) onto [0, 2^cbits). The
// arithmetic is done in the precision of F, so values just below boxSize/2
// can round up to the upper bound and are rejected.
func Discretize[F Float](x, boxSize F, cbits uint) (uint64, error) {
	factor := F(uint64(1) << cbits)
	tmp := (x + boxSize/2) / boxSize * factor
	if !isFinite(tmp) {
		return 0, fmt.Errorf("%w: %g rescales to %g", ErrNotFinite, x, tmp)
	}
	if tmp < 0 || tmp >= factor {
		return 0, fmt.Errorf("%w: %g is not in [%g, %g)",
			ErrOutOfBounds, x, -boxSize/2, boxSize/2)
	}
	d := uint64(tmp)
	if d >= uint64(1)<<cbits {
		return 0, fmt.Errorf("%w: %g discretizes to %d",
			ErrOutOfBounds, x, d)
	}
	return d, nil
}

func isFinite[F Float](x F) bool {
	f := float64(x)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Encode2 interleaves the bits of two discretized coordinates, with x in the
// lowest bit of every pair.
func Encode2(x, y uint64) uint64 {
	var code uint64
	for i := 3; i >= 0; i-- {
		shift := uint(8 * i)
		code = code<<16 |
			lut2[(y>>shift)&0xff]<<1 | lut2[(x>>shift)&0xff]
	}
	return code
}

// Encode3 interleaves the bits of three discretized coordinates, with x in
// the lowest bit of every triplet.
func Encode3(x, y, z uint64) uint64 {
	var code uint64
	for i := 2; i >= 0; i-- {
		shift := uint(8 * i)
		code = code<<24 |
			lut3[(z>>shift)&0xff]<<2 |
			lut3[(y>>shift)&0xff]<<1 |
			lut3[(x>>shift)&0xff]
	}
	return code
}

// Encode dispatches to Encode2 or Encode3 based on len(d).
func Encode(d []uint64) uint64 {
	switch len(d) {
	case 2:
		return Encode2(d[0], d[1])
	case 3:
		return Encode3(d[0], d[1], d[2])
	}
	panic(fmt.Sprintf("morton: cannot encode %d dimensions", len(d)))
}

// Decode2 is the inverse of Encode2.
func Decode2(code uint64) (x, y uint64) {
	for b := uint(0); b < CBits(2); b++ {
		x |= ((code >> (2 * b)) & 1) << b
		y |= ((code >> (2*b + 1)) & 1) << b
	}
	return x, y
}

// Decode3 is the inverse of Encode3.
func Decode3(code uint64) (x, y, z uint64) {
	for b := uint(0); b < CBits(3); b++ {
		x |= ((code >> (3 * b)) & 1) << b
		y |= ((code >> (3*b + 1)) & 1) << b
		z |= ((code >> (3*b + 2)) & 1) << b
	}
	return x, y, z
}

// Level returns the tree level of a nodal code.
func Level(node uint64, dim int) uint {
	return uint(bits.Len64(node)-1) / uint(dim)
}

// NodeAt returns the nodal code of the level-level node which contains the
// particle with the given Morton code.
func NodeAt(code uint64, level uint, dim int) uint64 {
	cbits := CBits(dim)
	d := uint(dim)
	return ((uint64(1) << (cbits * d)) + code) >> ((cbits - level) * d)
}

// NodeLess orders nodal codes depth-first: a node comes after its ancestors
// and before every node which follows it in Morton order.
func NodeLess(a, b uint64, dim int) bool {
	cbits, d := CBits(dim), uint(dim)
	la, lb := Level(a, dim), Level(b, dim)
	sa, sb := a<<((cbits-la)*d), b<<((cbits-lb)*d)
	return sa < sb || (sa == sb && la < lb)
}
