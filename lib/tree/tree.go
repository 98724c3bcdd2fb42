/*package tree builds Barnes-Hut trees over sets of point masses and uses them
to compute gravitational accelerations and potentials.

A Tree stores its particles in Morton order and its nodes in a single flat
slice in depth-first order. A node's descendants directly follow it, so the
subtree rooted at node i is nodes[i+1 : i+1+nodes[i].NChildren] and the next
sibling of node i is nodes[i+NChildren+1].
*/
package tree

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/phil-mansfield/bhtree/lib/morton"
	"github.com/phil-mansfield/bhtree/lib/particles"
)

var (
	// ErrDomain is returned for non-finite or out-of-box coordinates, bad box
	// sizes and particle sets without mass.
	ErrDomain = errors.New("tree: domain error")
	// ErrConfig is returned for invalid tree parameters and for particle
	// arrays with inconsistent shapes.
	ErrConfig = errors.New("tree: config error")
	// ErrOverflow is returned when particle or node counts exceed the range
	// of the index types.
	ErrOverflow = errors.New("tree: overflow error")
)

// Float is the set of element types a tree can be built over.
type Float interface {
	float32 | float64
}

// Node is a single node of a Tree.
type Node[F Float] struct {
	// Code is the nodal code: 1 for the root, and dim bits per level after
	// that.
	Code uint64
	// Begin and End delimit the node's particles in Morton order.
	Begin, End int
	// NChildren is the total number of descendants, not just the direct
	// children.
	NChildren int
	Mass      F
	// COM is the center of mass. Only the first Dim() values are used.
	COM [3]F
}

// Len returns the number of particles in the node.
func (n *Node[F]) Len() int { return n.End - n.Begin }

// Leaf returns true if the node has no children.
func (n *Node[F]) Leaf() bool { return n.NChildren == 0 }

// Tree is a Barnes-Hut tree. Queries only read from the tree and may be run
// concurrently; UpdateParticles may not run concurrently with anything else.
type Tree[F Float] struct {
	boxSize         F
	maxLeafN, ncrit int
	dim             int
	cbits           uint
	workers         int
	log             zerolog.Logger

	// size2 is the squared side length of a node at each level.
	size2 []F
	st    *state[F]
}

// state is everything that gets replaced when particles move.
type state[F Float] struct {
	part  *particles.Set[F]
	codes []uint64
	nodes []Node[F]
	// orig[i] is the input index of the i-th particle, inv is its inverse.
	orig, inv []int
}

// Option configures a Tree.
type Option func(*options)

type options struct {
	workers int
	log     zerolog.Logger
}

// WithWorkers sets the number of goroutines used by the vectorized
// traversal. The default is 1.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the logger which receives per-stage timing information.
// The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// New builds a tree over the particles with the given coordinates and
// masses, where coords[j][i] is the j-th coordinate of particle i. Every
// coordinate must lie in [-boxSize/2, boxSize/2). Leaves hold at most
// maxLeafN particles unless they are at the maximum depth, and nodes with at
// most ncrit particles are evaluated as one batch by Accelerations.
//
// The input arrays are copied and never modified.
func New[F Float](
	coords [][]F, mass []F, boxSize F, maxLeafN, ncrit int, opts ...Option,
) (*Tree[F], error) {
	o := options{workers: 1, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if !(boxSize > 0) || math.IsInf(float64(boxSize), 1) {
		return nil, fmt.Errorf("%w: box size must be finite and positive, "+
			"but is %g", ErrDomain, boxSize)
	}
	if maxLeafN <= 0 {
		return nil, fmt.Errorf("%w: the maximum number of particles per "+
			"leaf must be positive, but is %d", ErrConfig, maxLeafN)
	}
	if ncrit <= 0 {
		return nil, fmt.Errorf("%w: the critical node size must be "+
			"positive, but is %d", ErrConfig, ncrit)
	}
	if o.workers <= 0 {
		return nil, fmt.Errorf("%w: %d workers requested", ErrConfig, o.workers)
	}

	set := particles.NewSet(coords, mass)
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	t := &Tree[F]{
		boxSize:  boxSize,
		maxLeafN: maxLeafN,
		ncrit:    ncrit,
		dim:      set.Dim(),
		cbits:    morton.CBits(set.Dim()),
		workers:  o.workers,
		log:      o.log,
	}
	t.size2 = make([]F, t.cbits+1)
	for level := range t.size2 {
		size := boxSize / F(uint64(1)<<level)
		t.size2[level] = size * size
	}

	st, err := t.build(set.Clone(), particles.Identity(set.Len()))
	if err != nil {
		return nil, err
	}
	t.st = st

	t.log.Debug().Int("particles", set.Len()).Int("nodes", len(st.nodes)).
		Msg("Built tree.")
	return t, nil
}

// UpdateParticles passes a copy of the particle coordinates in Morton order
// (the order of Coords) to mut and rebuilds the tree from the result. If the
// new coordinates are invalid an error is returned and the tree is left
// exactly as it was.
func (t *Tree[F]) UpdateParticles(mut func(coords [][]F)) error {
	set := t.st.part.Clone()
	mut(set.Coords)
	orig := append([]int(nil), t.st.orig...)
	return t.rebuild(set, orig)
}

// UpdateParticlesOrdered is UpdateParticles, but the coordinates given to mut
// are in the order the particles were originally passed to New.
func (t *Tree[F]) UpdateParticlesOrdered(mut func(coords [][]F)) error {
	set := &particles.Set[F]{
		Mass:   t.ordered(t.st.part.Mass),
		Coords: make([][]F, t.dim),
	}
	for j := range set.Coords {
		set.Coords[j] = t.ordered(t.st.part.Coords[j])
	}
	mut(set.Coords)
	return t.rebuild(set, particles.Identity(set.Len()))
}

func (t *Tree[F]) rebuild(set *particles.Set[F], orig []int) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if set.Dim() != t.dim {
		return fmt.Errorf("%w: tree has %d dimensions, but the updated "+
			"particles have %d", ErrConfig, t.dim, set.Dim())
	}
	st, err := t.build(set, orig)
	if err != nil {
		return err
	}
	t.st = st
	return nil
}

// ordered returns a copy of x, which is in Morton order, in input order.
func (t *Tree[F]) ordered(x []F) []F {
	out := make([]F, len(x))
	particles.Scatter(out, x, t.st.orig)
	return out
}

// timed starts timing a stage of the calculation. The returned function logs
// the elapsed time.
func (t *Tree[F]) timed(stage string) func() {
	start := time.Now()
	return func() {
		t.log.Debug().Str("stage", stage).Dur("elapsed", time.Since(start)).
			Msg("Finished stage.")
	}
}

// Len returns the number of particles.
func (t *Tree[F]) Len() int { return t.st.part.Len() }

// Dim returns the number of spatial dimensions.
func (t *Tree[F]) Dim() int { return t.dim }

// BoxSize returns the side length of the domain.
func (t *Tree[F]) BoxSize() F { return t.boxSize }

// MaxLeafN returns the maximum number of particles in a leaf above the
// deepest level.
func (t *Tree[F]) MaxLeafN() int { return t.maxLeafN }

// NCrit returns the critical node size of the vectorized traversal.
func (t *Tree[F]) NCrit() int { return t.ncrit }

// CBits returns the number of bits per dimension of the Morton codes, which
// is also the maximum depth of the tree.
func (t *Tree[F]) CBits() uint { return t.cbits }

// Nodes returns a copy of the node array.
func (t *Tree[F]) Nodes() []Node[F] { return append([]Node[F](nil), t.st.nodes...) }

// Codes returns a copy of the particles' Morton codes.
func (t *Tree[F]) Codes() []uint64 { return append([]uint64(nil), t.st.codes...) }

// Masses returns a copy of the particle masses in Morton order.
func (t *Tree[F]) Masses() []F { return append([]F(nil), t.st.part.Mass...) }

// Coords returns a copy of the particle coordinates in Morton order.
func (t *Tree[F]) Coords() [][]F { return t.st.part.Clone().Coords }

// Permutation returns, for each particle in Morton order, its index in the
// arrays originally passed to New.
func (t *Tree[F]) Permutation() []int { return append([]int(nil), t.st.orig...) }
