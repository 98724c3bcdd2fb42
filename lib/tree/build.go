package tree

/* build.go contains the pipeline which turns an unordered particle set into
Morton-ordered particles and a node array. */

import (
	"fmt"
	"math"
	"sort"

	"github.com/phil-mansfield/bhtree/lib/morton"
	"github.com/phil-mansfield/bhtree/lib/particles"
)

// build encodes, sorts, and splits set, which becomes owned by the returned
// state. orig is permuted along with the particles. Nothing outside of set
// and orig is modified, so a failed build leaves the tree untouched.
func (t *Tree[F]) build(set *particles.Set[F], orig []int) (*state[F], error) {
	n := set.Len()
	if err := particles.CheckIndexRange[int](n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverflow, err)
	}

	done := t.timed("morton encoding")
	codes, err := t.encode(set)
	if err != nil {
		return nil, err
	}
	done()

	done = t.timed("sorting")
	perm := make([]int, n)
	particles.RadixSort(codes, perm)
	if err := set.Permute(perm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	if err := particles.ApplyPermutation(codes, perm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	if err := particles.ApplyPermutation(orig, perm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	done()

	done = t.timed("node building")
	b := &builder[F]{
		dim: t.dim, cbits: t.cbits, maxLeafN: t.maxLeafN, codes: codes,
	}
	if err := b.run(); err != nil {
		return nil, err
	}
	done()

	done = t.timed("node properties")
	if err := aggregate(b.nodes, set); err != nil {
		return nil, err
	}
	done()

	return &state[F]{
		part: set, codes: codes, nodes: b.nodes,
		orig: orig, inv: particles.Inverse(orig),
	}, nil
}

// encode computes the Morton code of every particle.
func (t *Tree[F]) encode(set *particles.Set[F]) ([]uint64, error) {
	codes := make([]uint64, set.Len())
	disc := make([]uint64, t.dim)
	for i := range codes {
		for j := range disc {
			d, err := morton.Discretize(set.Coords[j][i], t.boxSize, t.cbits)
			if err != nil {
				return nil, fmt.Errorf("%w: particle %d, dimension %d: %w",
					ErrDomain, i, j, err)
			}
			disc[j] = d
		}
		codes[i] = morton.Encode(disc)
	}
	return codes, nil
}

// builder splits sorted codes into nodes.
type builder[F Float] struct {
	dim      int
	cbits    uint
	maxLeafN int
	codes    []uint64
	nodes    []Node[F]
	// stack holds the indices of the nodes whose subtrees are being built.
	stack []int
}

func (b *builder[F]) run() error {
	n := len(b.codes)
	if n == 0 {
		return nil
	}
	b.nodes = append(b.nodes, Node[F]{Code: 1, Begin: 0, End: n})
	if n <= b.maxLeafN || b.cbits == 0 {
		return nil
	}
	b.stack = append(b.stack, 0)
	return b.split(0, 1, 0, n)
}

// split appends the descendants of the node at the given level with nodal
// code parent, which covers codes[begin:end].
func (b *builder[F]) split(level uint, parent uint64, begin, end int) error {
	d := uint(b.dim)
	prefix := parent - uint64(1)<<(level*d)
	childShift := (b.cbits - level - 1) * d

	for i := uint64(0); i < uint64(1)<<d && begin < end; i++ {
		first := prefix<<((b.cbits-level)*d) + i<<childShift
		last := first + (uint64(1)<<childShift - 1)

		n := sort.Search(end-begin, func(k int) bool {
			return b.codes[begin+k] > last
		})
		if n == 0 {
			continue
		}

		code := parent<<d + i
		if err := b.push(Node[F]{Code: code, Begin: begin, End: begin + n}); err != nil {
			return err
		}
		if n > b.maxLeafN && level+1 < b.cbits {
			b.stack = append(b.stack, len(b.nodes)-1)
			if err := b.split(level+1, code, begin, begin+n); err != nil {
				return err
			}
			b.stack = b.stack[:len(b.stack)-1]
		}
		begin += n
	}
	return nil
}

// push appends a node and counts it as a descendant of every open ancestor.
func (b *builder[F]) push(node Node[F]) error {
	for _, a := range b.stack {
		if b.nodes[a].NChildren == math.MaxInt {
			return fmt.Errorf("%w: node %d has more descendants than can "+
				"be counted", ErrOverflow, a)
		}
	}
	for _, a := range b.stack {
		b.nodes[a].NChildren++
	}
	b.nodes = append(b.nodes, node)
	return nil
}

// aggregate computes the mass and center of mass of every node from its
// particle range.
func aggregate[F Float](nodes []Node[F], set *particles.Set[F]) error {
	for k := range nodes {
		node := &nodes[k]
		var mass F
		var com [3]F
		for i := node.Begin; i < node.End; i++ {
			m := set.Mass[i]
			mass += m
			for j := range set.Coords {
				com[j] += m * set.Coords[j][i]
			}
		}
		if mass == 0 {
			return fmt.Errorf("%w: node %b contains %d particles with zero "+
				"total mass", ErrDomain, node.Code, node.Len())
		}
		for j := range set.Coords {
			com[j] /= mass
		}
		node.Mass, node.COM = mass, com
	}
	return nil
}
