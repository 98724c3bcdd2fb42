package tree

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/bhtree/lib/eq"
	"github.com/phil-mansfield/bhtree/lib/morton"
	"github.com/phil-mansfield/bhtree/lib/particles"
	"github.com/phil-mansfield/bhtree/lib/sample"
)

func uniformTree[F Float](
	t *testing.T, n, dim int, box F, maxLeafN, ncrit int, opts ...Option,
) *Tree[F] {
	coords, mass := sample.Uniform[F](sample.NewRNG(uint64(n*dim)), n, dim, box)
	tr, err := New(coords, mass, box, maxLeafN, ncrit, opts...)
	require.NoError(t, err)
	return tr
}

// checkInvariants verifies the structure of a tree's node array.
func checkInvariants[F Float](t *testing.T, tr *Tree[F]) {
	nodes, codes, dim := tr.Nodes(), tr.Codes(), tr.Dim()
	if tr.Len() == 0 {
		require.Empty(t, nodes)
		return
	}

	require.Equal(t, uint64(1), nodes[0].Code)
	require.Equal(t, 0, nodes[0].Begin)
	require.Equal(t, tr.Len(), nodes[0].End)
	require.Equal(t, len(nodes)-1, nodes[0].NChildren)

	for i := 1; i < len(codes); i++ {
		require.LessOrEqual(t, codes[i-1], codes[i], "codes %d and %d", i-1, i)
	}

	for i := range nodes {
		node := &nodes[i]
		level := morton.Level(node.Code, dim)
		require.Greater(t, node.Len(), 0, "node %d is empty", i)
		if i > 0 {
			require.True(t, morton.NodeLess(nodes[i-1].Code, node.Code, dim),
				"nodes %d and %d are out of order", i-1, i)
		}
		if node.Len() > tr.MaxLeafN() && level < tr.CBits() {
			require.False(t, node.Leaf(), "node %d should have been split", i)
		}
		for p := node.Begin; p < node.End; p++ {
			require.Equal(t, node.Code, morton.NodeAt(codes[p], level, dim))
		}

		// Every descendant, and nothing after them, shares the node's prefix.
		end := i + 1 + node.NChildren
		for k := i + 1; k < end; k++ {
			sub := morton.Level(nodes[k].Code, dim)
			require.Equal(t, node.Code, nodes[k].Code>>((sub-level)*uint(dim)))
		}
		if end < len(nodes) {
			sub := morton.Level(nodes[end].Code, dim)
			if sub >= level {
				require.NotEqual(t, node.Code,
					nodes[end].Code>>((sub-level)*uint(dim)))
			}
		}

		// Direct children tile the parent's range.
		if !node.Leaf() {
			begin := node.Begin
			for c := i + 1; c < end; c += nodes[c].NChildren + 1 {
				require.Equal(t, begin, nodes[c].Begin)
				require.Equal(t, node.Code, nodes[c].Code>>uint(dim))
				begin = nodes[c].End
			}
			require.Equal(t, node.End, begin)
		}
	}
}

func TestBuildInvariants(t *testing.T) {
	tests := []struct {
		n, dim, maxLeafN int
	}{
		{1, 3, 1}, {2, 3, 1}, {100, 3, 1}, {2000, 3, 4}, {2000, 3, 16},
		{1, 2, 1}, {500, 2, 1}, {3000, 2, 8},
	}
	for i := range tests {
		tr := uniformTree[float64](t, tests[i].n, tests[i].dim, 1,
			tests[i].maxLeafN, 8)
		checkInvariants(t, tr)

		tr32 := uniformTree[float32](t, tests[i].n, tests[i].dim, 3,
			tests[i].maxLeafN, 8)
		checkInvariants(t, tr32)
	}
}

func TestNodeProperties(t *testing.T) {
	tr := uniformTree[float64](t, 1000, 3, 2, 4, 16)
	coords, mass := tr.Coords(), tr.Masses()

	for _, node := range tr.Nodes() {
		m := 0.0
		com := make([]float64, 3)
		for i := node.Begin; i < node.End; i++ {
			m += mass[i]
			for j := range com {
				com[j] += mass[i] * coords[j][i]
			}
		}
		require.InEpsilon(t, m, node.Mass, 1e-12)
		for j := range com {
			require.InDelta(t, com[j]/m, node.COM[j], 1e-12)
		}
	}

	root := tr.Nodes()[0]
	sum := 0.0
	for _, m := range mass {
		sum += m
	}
	assert.InEpsilon(t, sum, root.Mass, 1e-12)
}

func TestBuildMaxDepth(t *testing.T) {
	n := 10
	coords := [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	mass := make([]float64, n)
	for i := range mass {
		mass[i] = 1
		coords[0][i] = 0.25
	}

	tr, err := New(coords, mass, 1, 2, 4)
	require.NoError(t, err)
	checkInvariants(t, tr)

	nodes := tr.Nodes()
	require.Len(t, nodes, int(tr.CBits())+1)
	deepest := nodes[len(nodes)-1]
	assert.Equal(t, tr.CBits(), morton.Level(deepest.Code, 3))
	assert.Equal(t, n, deepest.Len())
	assert.True(t, deepest.Leaf())

	// Coincident particles give non-finite results, but the traversal still
	// terminates.
	acc := tr.Accelerations(0.5)
	assert.Len(t, acc[0], n)
}

func TestBuildErrors(t *testing.T) {
	coords := [][]float64{{0, 0.1}, {0, 0.2}, {0, -0.3}}
	mass := []float64{1, 1}

	tests := []struct {
		coords   [][]float64
		mass     []float64
		box      float64
		maxLeafN int
		ncrit    int
		opts     []Option
		err      error
	}{
		{coords, mass, 0, 1, 1, nil, ErrDomain},
		{coords, mass, -1, 1, 1, nil, ErrDomain},
		{coords, mass, math.NaN(), 1, 1, nil, ErrDomain},
		{coords, mass, math.Inf(1), 1, 1, nil, ErrDomain},
		{coords, mass, 1, 0, 1, nil, ErrConfig},
		{coords, mass, 1, 1, 0, nil, ErrConfig},
		{coords, mass, 1, 1, 1, []Option{WithWorkers(0)}, ErrConfig},
		{coords[:1], mass, 1, 1, 1, nil, ErrConfig},
		{coords, mass[:1], 1, 1, 1, nil, ErrConfig},
		{coords, mass, 0.5, 1, 1, nil, ErrDomain},
		{[][]float64{{0, math.NaN()}, {0, 0}}, mass, 1, 1, 1, nil, ErrDomain},
		{coords, []float64{0, 0}, 1, 1, 1, nil, ErrDomain},
	}

	for i := range tests {
		tr, err := New(tests[i].coords, tests[i].mass, tests[i].box,
			tests[i].maxLeafN, tests[i].ncrit, tests[i].opts...)
		if !errors.Is(err, tests[i].err) {
			t.Errorf("%d) Expected error %v, got %v.", i, tests[i].err, err)
		}
		if tr != nil {
			t.Errorf("%d) Expected nil tree on error.", i)
		}
	}

	_, err := New(coords, mass, 0.5, 1, 1)
	assert.ErrorIs(t, err, morton.ErrOutOfBounds)
	_, err = New(coords, mass[:1], 1, 1, 1)
	assert.ErrorIs(t, err, particles.ErrShape)
}

func TestBuildDoesNotModifyInput(t *testing.T) {
	coords := [][]float64{{0.3, -0.2, 0.1}, {0.1, 0.2, -0.3}}
	mass := []float64{1, 2, 3}
	tr, err := New(coords, mass, 1, 1, 1)
	require.NoError(t, err)

	assert.True(t, eq.Exact(coords[0], []float64{0.3, -0.2, 0.1}))
	assert.True(t, eq.Exact(mass, []float64{1, 2, 3}))
	assert.True(t, particles.IsPermutation(tr.Permutation()))

	perm := tr.Permutation()
	got := tr.Masses()
	for i := range perm {
		assert.Equal(t, mass[perm[i]], got[i])
	}
}

func TestPushOverflow(t *testing.T) {
	b := &builder[float64]{
		dim:   3,
		nodes: []Node[float64]{{Code: 1}, {Code: 8}},
		stack: []int{0, 1},
	}
	b.nodes[0].NChildren = math.MaxInt

	err := b.push(Node[float64]{Code: 64})
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Len(t, b.nodes, 2)
	assert.Equal(t, 0, b.nodes[1].NChildren)
}

func TestEmptyTree(t *testing.T) {
	tr, err := New([][]float32{{}, {}, {}}, []float32{}, 1, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Nodes())

	acc, pot := tr.AccelerationsPotentials(0.5)
	require.Len(t, acc, 3)
	assert.Empty(t, acc[0])
	assert.Empty(t, pot)
	assert.Empty(t, tr.PotentialsScalar(0.5))
}

func TestString(t *testing.T) {
	tr := uniformTree[float64](t, 100, 3, 1, 1, 4)
	s := tr.String()
	assert.Contains(t, s, "Total number of particles: 100")
	assert.Contains(t, s, "First few nodes:")
	assert.Contains(t, s, "1|0,100,")
	assert.Contains(t, s, "...")
}
