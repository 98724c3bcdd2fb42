package tree

import (
	"fmt"
	"strings"
)

// dumpNodes is the number of nodes printed by String.
const dumpNodes = 20

// String summarizes the tree and prints its first few nodes as
// code|begin,end,descendants|mass|[com].
func (t *Tree[F]) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Box size                 : %g\n", t.boxSize)
	fmt.Fprintf(sb, "Dimensions               : %d\n", t.dim)
	fmt.Fprintf(sb, "Max leaf N, Ncrit        : %d, %d\n", t.maxLeafN, t.ncrit)
	fmt.Fprintf(sb, "Total number of particles: %d\n", t.Len())
	fmt.Fprintf(sb, "Total number of nodes    : %d\n\n", len(t.st.nodes))

	fmt.Fprintln(sb, "First few nodes:")
	for i := 0; i < len(t.st.nodes) && i < dumpNodes; i++ {
		node := &t.st.nodes[i]
		fmt.Fprintf(sb, "%b|%d,%d,%d|%g|%v\n", node.Code, node.Begin,
			node.End, node.NChildren, node.Mass, node.COM[:t.dim])
	}
	if len(t.st.nodes) > dumpNodes {
		fmt.Fprintln(sb, "...")
	}
	return sb.String()
}
