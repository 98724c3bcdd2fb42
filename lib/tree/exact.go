package tree

/* exact.go contains the direct-summation reference calculations. */

import (
	"github.com/phil-mansfield/bhtree/lib/kernel"
)

// ExactAcceleration computes the acceleration of the idx-th particle in
// Morton order by summing over every other particle. It panics if idx is out
// of range.
func (t *Tree[F]) ExactAcceleration(idx int, opts ...EvalOption[F]) []F {
	acc, _ := t.exact(idx, newEvalConfig(opts))
	return acc
}

// ExactPotential computes the potential G * sum(m_i / r_i) of the idx-th
// particle in Morton order by summing over every other particle.
func (t *Tree[F]) ExactPotential(idx int, opts ...EvalOption[F]) F {
	_, pot := t.exact(idx, newEvalConfig(opts))
	return pot
}

// ExactAccelerationOrdered is ExactAcceleration with idx referring to the
// order the particles were passed to New.
func (t *Tree[F]) ExactAccelerationOrdered(idx int, opts ...EvalOption[F]) []F {
	return t.ExactAcceleration(t.st.inv[idx], opts...)
}

// ExactPotentialOrdered is ExactPotential with idx referring to the order
// the particles were passed to New.
func (t *Tree[F]) ExactPotentialOrdered(idx int, opts ...EvalOption[F]) F {
	return t.ExactPotential(t.st.inv[idx], opts...)
}

func (t *Tree[F]) exact(idx int, c evalConfig[F]) ([]F, F) {
	part := t.st.part
	p := make([]F, t.dim)
	for j := range p {
		p[j] = part.Coords[j][idx]
	}

	acc := make([]F, t.dim)
	var pot F
	sub := make([][]F, t.dim)
	for _, r := range [][2]int{{0, idx}, {idx + 1, part.Len()}} {
		for j := range sub {
			sub[j] = part.Coords[j][r[0]:r[1]]
		}
		kernel.AddRange(p, sub, part.Mass[r[0]:r[1]], acc, &pot)
	}

	for j := range acc {
		acc[j] *= c.g
	}
	return acc, c.g * pot
}
