package tree

/* scalar.go contains the particle-by-particle traversal. */

import (
	"github.com/phil-mansfield/bhtree/lib/kernel"
	"github.com/phil-mansfield/bhtree/lib/morton"
)

// EvalOption configures a single acceleration or potential calculation.
type EvalOption[F Float] func(*evalConfig[F])

type evalConfig[F Float] struct {
	g F
}

// WithG sets the gravitational constant. The default is 1. Results are
// multiplied by G after they have been accumulated, so they scale exactly
// with it.
func WithG[F Float](g F) EvalOption[F] {
	return func(c *evalConfig[F]) { c.g = g }
}

func newEvalConfig[F Float](opts []EvalOption[F]) evalConfig[F] {
	c := evalConfig[F]{g: 1}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// AccelerationsScalar computes the acceleration of every particle by walking
// the tree separately for each of them. Node i is approximated by its center
// of mass if (size/dist)^2 < theta^2. out[j][i] is the j-th component of the
// acceleration of the i-th particle in Morton order.
func (t *Tree[F]) AccelerationsScalar(theta F, opts ...EvalOption[F]) [][]F {
	acc, _ := t.scalar(theta, newEvalConfig(opts))
	return acc
}

// PotentialsScalar is AccelerationsScalar for potentials.
func (t *Tree[F]) PotentialsScalar(theta F, opts ...EvalOption[F]) []F {
	_, pot := t.scalar(theta, newEvalConfig(opts))
	return pot
}

func (t *Tree[F]) scalar(theta F, c evalConfig[F]) ([][]F, []F) {
	defer t.timed("scalar traversal")()

	st := t.st
	n := st.part.Len()
	acc, pot := newOutput[F](t.dim, n)

	w := &scalarWalk[F]{
		t: t, st: st, theta2: theta * theta,
		p: make([]F, t.dim), acc: make([]F, t.dim),
	}
	for i := 0; i < n; i++ {
		for j := range w.p {
			w.p[j] = st.part.Coords[j][i]
			w.acc[j] = 0
		}
		w.pot = 0

		w.walk(0, i, 0, len(st.nodes))

		for j := range w.acc {
			acc[j][i] = c.g * w.acc[j]
		}
		pot[i] = c.g * w.pot
	}
	return acc, pot
}

// scalarWalk holds the state of the traversal for a single target particle.
type scalarWalk[F Float] struct {
	t      *Tree[F]
	st     *state[F]
	theta2 F

	p   []F
	acc []F
	pot F
	sub [3][]F
}

// walk visits the siblings nodes[begin:end] at the given level. The one
// containing particle pidx is descended into and the others are passed to
// fromNode.
func (w *scalarWalk[F]) walk(level uint, pidx, begin, end int) {
	nodes := w.st.nodes
	code := morton.NodeAt(w.st.codes[pidx], level, w.t.dim)

	for idx := begin; idx < end; idx += nodes[idx].NChildren + 1 {
		node := &nodes[idx]
		if node.Code != code {
			w.fromNode(level, idx)
		} else if !node.Leaf() {
			w.walk(level+1, pidx, idx+1, idx+1+node.NChildren)
		} else {
			w.direct(node.Begin, pidx)
			w.direct(pidx+1, node.End)
		}
	}
}

// fromNode adds the contribution of the node at idx, splitting it into its
// children if it is too close to be approximated.
func (w *scalarWalk[F]) fromNode(level uint, idx int) {
	nodes := w.st.nodes
	node := &nodes[idx]

	var diff [3]F
	var d2 F
	for j := range w.p {
		diff[j] = node.COM[j] - w.p[j]
		d2 += diff[j] * diff[j]
	}

	switch {
	case w.t.size2[level] < w.theta2*d2:
		kernel.AddPoint(node.Mass, diff[:w.t.dim], d2, w.acc, &w.pot)
	case node.Leaf():
		w.direct(node.Begin, node.End)
	default:
		end := idx + 1 + node.NChildren
		for c := idx + 1; c < end; c += nodes[c].NChildren + 1 {
			w.fromNode(level+1, c)
		}
	}
}

// direct adds the exact contribution of the particles in [begin, end).
func (w *scalarWalk[F]) direct(begin, end int) {
	if begin >= end {
		return
	}
	part := w.st.part
	for j := 0; j < w.t.dim; j++ {
		w.sub[j] = part.Coords[j][begin:end]
	}
	kernel.AddRange(w.p, w.sub[:w.t.dim], part.Mass[begin:end], w.acc, &w.pot)
}

func newOutput[F Float](dim, n int) ([][]F, []F) {
	acc := make([][]F, dim)
	for j := range acc {
		acc[j] = make([]F, n)
	}
	return acc, make([]F, n)
}
