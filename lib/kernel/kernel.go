/*package kernel contains the batched gravitational interaction kernels used by
the tree traversals.

Batches are stored as one array per dimension. Each kernel processes whole
SIMD vectors through go-highway while at least MaxLanes elements remain and
finishes the remainder with scalar code. The kernels never allocate; callers
own every buffer and pass slices of exactly the batch length.
*/
package kernel

import (
	"math"

	"github.com/ajroetker/go-highway/hwy"
)

// Float is the set of element types the kernels are instantiated with.
type Float interface {
	float32 | float64
}

// Lanes returns the number of elements of F in one SIMD vector.
func Lanes[F Float]() int { return hwy.MaxLanes[F]() }

func sqrt[F Float](x F) F { return F(math.Sqrt(float64(x))) }

// Accept computes com - x for every particle of the batch xs, writing the
// separation vectors to diff and their squared lengths to dist2, and applies
// the Barnes-Hut test size2 < theta2*dist2. It returns false as soon as any
// particle fails, in which case diff and dist2 are only partially written.
func Accept[F Float](com []F, xs [][]F, theta2, size2 F, diff [][]F, dist2 []F) bool {
	n := len(dist2)
	lanes := Lanes[F]()
	vTheta2, vSize2 := hwy.Set(theta2), hwy.Set(size2)

	var vCom [3]hwy.Vec[F]
	for j := range xs {
		vCom[j] = hwy.Set(com[j])
	}

	i := 0
	for ; i+lanes <= n; i += lanes {
		d2 := hwy.Zero[F]()
		for j := range xs {
			d := hwy.Sub(vCom[j], hwy.Load(xs[j][i:]))
			hwy.Store(d, diff[j][i:])
			d2 = hwy.FMA(d, d, d2)
		}
		fail := hwy.GreaterEqual(vSize2, hwy.Mul(vTheta2, d2))
		if hwy.CountTrue(fail) > 0 {
			return false
		}
		hwy.Store(d2, dist2[i:])
	}

	for ; i < n; i++ {
		var d2 F
		for j := range xs {
			d := com[j] - xs[j][i]
			diff[j][i] = d
			d2 += d * d
		}
		if size2 >= theta2*d2 {
			return false
		}
		dist2[i] = d2
	}
	return true
}

// AddCOM adds the contribution of a point of mass m to every particle of a
// batch whose separations were computed by Accept. w is scratch space with
// the batch length.
func AddCOM[F Float](m F, diff [][]F, dist2, w []F, acc [][]F, pot []F) {
	n := len(dist2)
	lanes := Lanes[F]()
	vm := hwy.Set(m)

	i := 0
	for ; i+lanes <= n; i += lanes {
		d2 := hwy.Load(dist2[i:])
		r := hwy.Sqrt(d2)
		hwy.Store(hwy.Div(vm, hwy.Mul(d2, r)), w[i:])
		hwy.Store(hwy.Add(hwy.Load(pot[i:]), hwy.Div(vm, r)), pot[i:])
	}
	for ; i < n; i++ {
		r := sqrt(dist2[i])
		w[i] = m / (dist2[i] * r)
		pot[i] += m / r
	}
	accumulate(diff, w, acc)
}

// accumulate adds diff[j][i]*w[i] to acc[j][i].
func accumulate[F Float](diff [][]F, w []F, acc [][]F) {
	n := len(w)
	lanes := Lanes[F]()
	for j := range acc {
		i := 0
		for ; i+lanes <= n; i += lanes {
			a := hwy.FMA(hwy.Load(diff[j][i:]), hwy.Load(w[i:]),
				hwy.Load(acc[j][i:]))
			hwy.Store(a, acc[j][i:])
		}
		for ; i < n; i++ {
			acc[j][i] += diff[j][i] * w[i]
		}
	}
}

// AddDirect adds the exact contribution of every source particle (xs, ms) to
// every target particle xt. Sources and targets must be disjoint. diff, dist2
// and w are scratch space with the target batch length.
func AddDirect[F Float](xt, xs [][]F, ms []F, diff [][]F, dist2, w []F, acc [][]F, pot []F) {
	n := len(dist2)
	lanes := Lanes[F]()

	for k := range ms {
		var vSrc [3]hwy.Vec[F]
		for j := range xs {
			vSrc[j] = hwy.Set(xs[j][k])
		}

		i := 0
		for ; i+lanes <= n; i += lanes {
			d2 := hwy.Zero[F]()
			for j := range xt {
				d := hwy.Sub(vSrc[j], hwy.Load(xt[j][i:]))
				hwy.Store(d, diff[j][i:])
				d2 = hwy.FMA(d, d, d2)
			}
			hwy.Store(d2, dist2[i:])
		}
		for ; i < n; i++ {
			var d2 F
			for j := range xt {
				d := xs[j][k] - xt[j][i]
				diff[j][i] = d
				d2 += d * d
			}
			dist2[i] = d2
		}

		AddCOM(ms[k], diff, dist2, w, acc, pot)
	}
}

// AddSelf adds the mutual interactions of the particles of one batch. Every
// unordered pair is visited once and the equal and opposite contributions are
// applied to both members.
func AddSelf[F Float](xs [][]F, ms []F, acc [][]F, pot []F) {
	var diff [3]F
	for i := range ms {
		for k := i + 1; k < len(ms); k++ {
			var d2 F
			for j := range xs {
				diff[j] = xs[j][k] - xs[j][i]
				d2 += diff[j] * diff[j]
			}
			r := sqrt(d2)
			r3 := d2 * r
			wi, wk := ms[k]/r3, ms[i]/r3
			for j := range xs {
				acc[j][i] += diff[j] * wi
				acc[j][k] -= diff[j] * wk
			}
			pot[i] += ms[k] / r
			pot[k] += ms[i] / r
		}
	}
}

// AddRange adds the exact contribution of the particles (xs, ms) to a single
// target at position p.
func AddRange[F Float](p []F, xs [][]F, ms []F, acc []F, pot *F) {
	for k := range ms {
		var d2 F
		var diff [3]F
		for j := range p {
			diff[j] = xs[j][k] - p[j]
			d2 += diff[j] * diff[j]
		}
		r := sqrt(d2)
		w := ms[k] / (d2 * r)
		for j := range p {
			acc[j] += diff[j] * w
		}
		*pot += ms[k] / r
	}
}

// AddPoint adds the contribution of a point mass m separated from a single
// target by diff, with squared length d2.
func AddPoint[F Float](m F, diff []F, d2 F, acc []F, pot *F) {
	r := sqrt(d2)
	w := m / (d2 * r)
	for j := range diff {
		acc[j] += diff[j] * w
	}
	*pot += m / r
}
