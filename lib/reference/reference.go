/*package reference computes accelerations and potentials with independent
gravity codes so that tree results can be checked against them.*/
package reference

import (
	"errors"
	"fmt"

	"github.com/phil-mansfield/gravitree"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Float is the set of element types reference values can be computed for.
type Float interface {
	float32 | float64
}

type particle3 struct {
	x r3.Vec
	m float64
}

func (p *particle3) Coord3() r3.Vec { return p.x }
func (p *particle3) Mass() float64  { return p.m }

type particle2 struct {
	x r2.Vec
	m float64
}

func (p *particle2) Coord2() r2.Vec { return p.x }
func (p *particle2) Mass() float64  { return p.m }

// acceleration3 is the gravitational acceleration of p1 due to p2, which
// does not depend on the mass of p1.
func acceleration3(p1, p2 barneshut.Particle3, _, m2 float64, v r3.Vec) r3.Vec {
	return barneshut.Gravity3(p1, p2, 1, m2, v)
}

func acceleration2(p1, p2 barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
	return barneshut.Gravity2(p1, p2, 1, m2, v)
}

func check[F Float](coords [][]F, mass []F) error {
	if len(coords) != 2 && len(coords) != 3 {
		return fmt.Errorf("reference: %d dimensional particles are not "+
			"supported", len(coords))
	}
	for j := range coords {
		if len(coords[j]) != len(mass) {
			return fmt.Errorf("reference: dimension %d has %d coordinates, "+
				"but there are %d masses", j, len(coords[j]), len(mass))
		}
	}
	return nil
}

// ErrUnitMass is returned when approximate accelerations are requested for
// particles whose masses are not all 1.
var ErrUnitMass = errors.New("reference: approximate accelerations " +
	"require unit masses")

// Accelerations returns G = 1 accelerations computed by gonum's Barnes-Hut
// implementation. With theta = 0 every pair is summed directly. The output
// stores one array per dimension.
//
// gonum divides the center of every single particle node by that particle's
// mass, so theta > 0 is only supported when every mass is 1. Other masses
// return ErrUnitMass.
func Accelerations[F Float](coords [][]F, mass []F, theta float64) ([][]float64, error) {
	if err := check(coords, mass); err != nil {
		return nil, err
	}
	if theta > 0 {
		for i := range mass {
			if mass[i] != 1 {
				return nil, fmt.Errorf("%w: particle %d has mass %g",
					ErrUnitMass, i, float64(mass[i]))
			}
		}
	}

	acc := make([][]float64, len(coords))
	for j := range acc {
		acc[j] = make([]float64, len(mass))
	}

	if len(coords) == 2 {
		ps := make([]barneshut.Particle2, len(mass))
		for i := range ps {
			ps[i] = &particle2{
				r2.Vec{X: float64(coords[0][i]), Y: float64(coords[1][i])},
				float64(mass[i]),
			}
		}
		plane, err := barneshut.NewPlane(ps)
		if err != nil {
			return nil, err
		}
		for i := range ps {
			a := plane.ForceOn(ps[i], theta, acceleration2)
			acc[0][i], acc[1][i] = a.X, a.Y
		}
		return acc, nil
	}

	ps := make([]barneshut.Particle3, len(mass))
	for i := range ps {
		ps[i] = &particle3{
			r3.Vec{
				X: float64(coords[0][i]),
				Y: float64(coords[1][i]),
				Z: float64(coords[2][i]),
			},
			float64(mass[i]),
		}
	}
	vol, err := barneshut.NewVolume(ps)
	if err != nil {
		return nil, err
	}
	for i := range ps {
		a := vol.ForceOn(ps[i], theta, acceleration3)
		acc[0][i], acc[1][i], acc[2][i] = a.X, a.Y, a.Z
	}
	return acc, nil
}

// EqualMassPotentials returns the potential of every particle computed by
// gravitree for unit mass particles with softening length eps. Two
// dimensional particles are placed in the z = 0 plane. gravitree's
// convention, -sum 1/sqrt(r^2 + eps^2), is returned unchanged. Nodes are
// opened with gravitree's PKDGRAV3 criterion at the given theta, and
// theta = 0 sums every pair directly.
func EqualMassPotentials[F Float](coords [][]F, eps, theta float64) ([]float64, error) {
	if len(coords) != 2 && len(coords) != 3 {
		return nil, fmt.Errorf("reference: %d dimensional particles are not "+
			"supported", len(coords))
	}
	if theta < 0 {
		return nil, fmt.Errorf("reference: theta = %g is negative", theta)
	}

	x := make([][3]float64, len(coords[0]))
	for j := range coords {
		if len(coords[j]) != len(x) {
			return nil, fmt.Errorf("reference: dimension %d has %d "+
				"coordinates, expected %d", j, len(coords[j]), len(x))
		}
		for i := range x {
			x[i][j] = float64(coords[j][i])
		}
	}

	pe := make([]float64, len(x))
	if len(x) == 0 {
		return pe, nil
	}
	if theta == 0 {
		theta = directTheta
	}
	tree := gravitree.NewTree(x, gravitree.TreeOptions{Theta: theta})
	if err := trimNodes(tree); err != nil {
		return nil, err
	}
	tree.Potential(eps, pe)
	return pe, nil
}

// directTheta makes every opening radius larger than any separation.
const directTheta = 1e-12

// trimNodes removes the blank nodes gravitree v1.0.0 allocates ahead of the
// root and shifts child indices to match. Potential walks every leaf from
// Nodes[0], which must be the root.
func trimNodes(tree *gravitree.Tree) error {
	n := len(tree.Points)
	root := -1
	for i := range tree.Nodes {
		if tree.Nodes[i].Start == 0 && tree.Nodes[i].End == n {
			root = i
			break
		}
	}
	if root == -1 {
		return fmt.Errorf("reference: gravitree produced no root node")
	}

	tree.Nodes = tree.Nodes[root:]
	for i := range tree.Nodes {
		node := &tree.Nodes[i]
		if node.Left == -1 {
			continue
		}
		node.Left -= root
		node.Right -= root
		if node.Left <= i || node.Right <= i || node.Right >= len(tree.Nodes) {
			return fmt.Errorf("reference: gravitree node %d has children "+
				"%d and %d", i, node.Left, node.Right)
		}
	}
	tree.Root = &tree.Nodes[0]
	return nil
}
