package tree

/* vector.go contains the batched traversal, which walks the tree once for
every critical node instead of once for every particle. */

import (
	"github.com/sourcegraph/conc/pool"

	"github.com/phil-mansfield/bhtree/lib/kernel"
)

// Accelerations computes the acceleration of every particle. The particles
// of each critical node (a node with at most NCrit particles, a leaf, or a
// node at the maximum depth) are evaluated together: a source node is
// approximated by its center of mass only if (size/dist)^2 < theta^2 for
// every particle of the batch. out[j][i] is the j-th component of the
// acceleration of the i-th particle in Morton order.
func (t *Tree[F]) Accelerations(theta F, opts ...EvalOption[F]) [][]F {
	acc, _ := t.vector(theta, newEvalConfig(opts))
	return acc
}

// Potentials is Accelerations for potentials.
func (t *Tree[F]) Potentials(theta F, opts ...EvalOption[F]) []F {
	_, pot := t.vector(theta, newEvalConfig(opts))
	return pot
}

// AccelerationsPotentials computes accelerations and potentials with a
// single traversal.
func (t *Tree[F]) AccelerationsPotentials(theta F, opts ...EvalOption[F]) ([][]F, []F) {
	return t.vector(theta, newEvalConfig(opts))
}

// AccelerationsOrdered is Accelerations with the output in the order the
// particles were passed to New.
func (t *Tree[F]) AccelerationsOrdered(theta F, opts ...EvalOption[F]) [][]F {
	acc := t.Accelerations(theta, opts...)
	for j := range acc {
		acc[j] = t.ordered(acc[j])
	}
	return acc
}

// PotentialsOrdered is Potentials with the output in the order the
// particles were passed to New.
func (t *Tree[F]) PotentialsOrdered(theta F, opts ...EvalOption[F]) []F {
	return t.ordered(t.Potentials(theta, opts...))
}

// target is a critical node.
type target struct {
	idx   int
	level uint
}

func (t *Tree[F]) vector(theta F, c evalConfig[F]) ([][]F, []F) {
	defer t.timed("vectorized traversal")()

	st := t.st
	acc, pot := newOutput[F](t.dim, st.part.Len())
	targets := t.critical(st, nil, 0, 0, len(st.nodes))

	run := func(targets []target) {
		b := newBatch(t, st, theta*theta)
		for _, tg := range targets {
			b.eval(tg)
			b.write(tg, c.g, acc, pot)
		}
	}

	if t.workers == 1 || len(targets) < 2 {
		run(targets)
	} else {
		// Targets write to disjoint ranges of acc and pot.
		p := pool.New().WithMaxGoroutines(t.workers)
		chunk := (len(targets) + t.workers - 1) / t.workers
		for lo := 0; lo < len(targets); lo += chunk {
			part := targets[lo:min(lo+chunk, len(targets))]
			p.Go(func() { run(part) })
		}
		p.Wait()
	}

	t.log.Debug().Int("targets", len(targets)).Int("workers", t.workers).
		Msg("Evaluated critical nodes.")
	return acc, pot
}

// critical appends the critical nodes among nodes[begin:end], which are
// siblings at the given level, to out in depth-first order.
func (t *Tree[F]) critical(st *state[F], out []target, level uint, begin, end int) []target {
	for idx := begin; idx < end; idx += st.nodes[idx].NChildren + 1 {
		node := &st.nodes[idx]
		if level == t.cbits || node.Len() <= t.ncrit || node.Leaf() {
			out = append(out, target{idx, level})
		} else {
			out = t.critical(st, out, level+1, idx+1, idx+1+node.NChildren)
		}
	}
	return out
}

// batch holds the scratch space for evaluating one critical node at a time.
// Each goroutine needs its own.
type batch[F Float] struct {
	t      *Tree[F]
	st     *state[F]
	theta2 F

	// x and src are views into the particle coordinates of the target and
	// of the current source leaf.
	x, src [3][]F
	diff   [3][]F
	dist2  []F
	w      []F
	acc    [3][]F
	pot    []F
}

func newBatch[F Float](t *Tree[F], st *state[F], theta2 F) *batch[F] {
	return &batch[F]{t: t, st: st, theta2: theta2}
}

// reset resizes the buffers to n particles and zeroes the accumulators.
func (b *batch[F]) reset(n int) {
	for j := 0; j < b.t.dim; j++ {
		b.diff[j] = resize(b.diff[j], n)
		b.acc[j] = resize(b.acc[j], n)
		clear(b.acc[j])
	}
	b.dist2 = resize(b.dist2, n)
	b.w = resize(b.w, n)
	b.pot = resize(b.pot, n)
	clear(b.pot)
}

func resize[F Float](x []F, n int) []F {
	if cap(x) >= n {
		return x[:n]
	}
	return make([]F, n)
}

// eval accumulates the acceleration and potential of every particle of the
// target node in b.acc and b.pot.
func (b *batch[F]) eval(tg target) {
	nodes, part, dim := b.st.nodes, b.st.part, b.t.dim
	node := &nodes[tg.idx]
	b.reset(node.Len())
	for j := 0; j < dim; j++ {
		b.x[j] = part.Coords[j][node.Begin:node.End]
	}

	// At each level, visit the siblings of the target's ancestor at that
	// level and then move down into the ancestor.
	begin, end := 0, len(nodes)
	for level := uint(0); level <= tg.level; level++ {
		code := node.Code >> ((tg.level - level) * uint(dim))
		next := -1
		for idx := begin; idx < end; idx += nodes[idx].NChildren + 1 {
			switch {
			case nodes[idx].Code != code:
				b.fromNode(level, idx)
			case level == tg.level:
				kernel.AddSelf(b.x[:dim], part.Mass[node.Begin:node.End],
					b.acc[:dim], b.pot)
			default:
				next = idx
			}
		}
		if next >= 0 {
			begin, end = next+1, next+1+nodes[next].NChildren
		}
	}
}

// fromNode adds the contribution of the node at idx to the whole batch,
// splitting it into its children unless every particle of the batch accepts
// it.
func (b *batch[F]) fromNode(level uint, idx int) {
	nodes, part, dim := b.st.nodes, b.st.part, b.t.dim
	node := &nodes[idx]

	if kernel.Accept(node.COM[:dim], b.x[:dim], b.theta2, b.t.size2[level],
		b.diff[:dim], b.dist2) {
		kernel.AddCOM(node.Mass, b.diff[:dim], b.dist2, b.w, b.acc[:dim], b.pot)
		return
	}

	if node.Leaf() {
		for j := 0; j < dim; j++ {
			b.src[j] = part.Coords[j][node.Begin:node.End]
		}
		kernel.AddDirect(b.x[:dim], b.src[:dim], part.Mass[node.Begin:node.End],
			b.diff[:dim], b.dist2, b.w, b.acc[:dim], b.pot)
		return
	}

	end := idx + 1 + node.NChildren
	for c := idx + 1; c < end; c += nodes[c].NChildren + 1 {
		b.fromNode(level+1, c)
	}
}

// write scales the accumulated values by g and copies them into the output
// range of the target node.
func (b *batch[F]) write(tg target, g F, acc [][]F, pot []F) {
	node := &b.st.nodes[tg.idx]
	for j := range acc {
		out := acc[j][node.Begin:node.End]
		for i := range out {
			out[i] = g * b.acc[j][i]
		}
	}
	out := pot[node.Begin:node.End]
	for i := range out {
		out[i] = g * b.pot[i]
	}
}
