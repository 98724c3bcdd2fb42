package main

/* particles.go contains the functions bhtree uses to read particles and write
results. */

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/phil-mansfield/bhtree/lib/bounds"
	"github.com/phil-mansfield/bhtree/lib/catio"
	"github.com/phil-mansfield/bhtree/lib/config"
	"github.com/phil-mansfield/bhtree/lib/sample"
	"github.com/phil-mansfield/bhtree/lib/snapio"
	"github.com/phil-mansfield/bhtree/lib/tree"
)

// input is a particle set along with the domain it lives in.
type input[F tree.Float] struct {
	coords  [][]F
	mass    []F
	boxSize F
	// offset was added to every coordinate when recentering.
	offset []F
}

// loadParticles reads or generates the configured particles and chooses the
// box size.
func loadParticles[F tree.Float](c *config.Config, log zerolog.Logger) (*input[F], error) {
	in := &input[F]{}
	var err error

	switch {
	case c.Input.File == "":
		in.coords, in.mass = generate[F](c)
		log.Info().Str("dist", c.Input.Dist).Int("n", len(in.mass)).
			Msg("Generated particles.")
	case c.Input.Format == "snapio":
		in.coords, in.mass, err = readSnapio[F](c.Input.File)
	default:
		in.coords, in.mass, err = readText[F](c.Input.File, c.Input.Dim)
	}
	if err != nil {
		return nil, err
	}

	if c.Tree.Recenter && len(in.mass) > 0 {
		if in.offset, err = bounds.Recenter(in.coords); err != nil {
			return nil, err
		}
		log.Debug().Interface("offset", in.offset).Msg("Recentered particles.")
	}

	in.boxSize = F(c.Tree.BoxSize)
	if in.boxSize == 0 {
		in.boxSize, err = bounds.BoxSize(in.coords, F(c.Tree.Padding))
		if err != nil {
			return nil, err
		}
		log.Info().Float64("box-size", float64(in.boxSize)).
			Msg("Chose box size.")
	} else if err := checkBox(in.coords, in.boxSize); err != nil {
		return nil, err
	}

	if len(in.mass) > 0 {
		b, err := bounds.Of(in.coords)
		if err != nil {
			return nil, err
		}
		log.Debug().Float64("width", float64(b.Width())).
			Msg("Measured particle extent.")
	}
	return in, nil
}

// checkBox reports the first particle outside a user supplied box.
func checkBox[F tree.Float](coords [][]F, boxSize F) error {
	i := bounds.Domain(len(coords), boxSize).Outside(coords)
	if i == -1 {
		return nil
	}
	pos := make([]F, len(coords))
	for j := range pos {
		pos[j] = coords[j][i]
	}
	return fmt.Errorf("particle %d at %v lies outside the box [%g, %g) set "+
		"by box-size. Set box-size = 0 to choose the box automatically",
		i, pos, -float64(boxSize)/2, float64(boxSize)/2)
}

// generate draws particles from the configured distribution. Generated
// particles fill a box of width box-size, or a unit box (uniform) and a box
// of width 20 (plummer) when it is unset.
func generate[F tree.Float](c *config.Config) ([][]F, []F) {
	rng := sample.NewRNG(uint64(c.Input.Seed))
	size := F(c.Tree.BoxSize)
	if c.Input.Dist == "uniform" {
		if size == 0 {
			size = 1
		}
		return sample.Uniform[F](rng, c.Input.N, c.Input.Dim, size)
	}
	if size == 0 {
		size = 20
	}
	return sample.Plummer[F](rng, c.Input.N, size)
}

// readText reads a text table, or stdin if fname is "-".
func readText[F tree.Float](fname string, dim int) ([][]F, []F, error) {
	if fname == "-" {
		rd, err := catio.Stdin()
		if err != nil {
			return nil, nil, err
		}
		return catio.Particles[F](rd, dim)
	}

	rd, closer, err := catio.TextFile(fname)
	if err != nil {
		return nil, nil, err
	}
	defer closer()
	return catio.Particles[F](rd, dim)
}

func readSnapio[F tree.Float](fname string) ([][]F, []F, error) {
	hd, cols, err := snapio.ReadFile[F](fname)
	if err != nil {
		return nil, nil, err
	}

	if hd.Dim != 2 && hd.Dim != 3 {
		return nil, nil, fmt.Errorf("%s stores %d dimensional particles",
			fname, hd.Dim)
	}
	names := []string{"mass", "x", "y", "z"}[:hd.Dim+1]
	out := make([][]F, len(names))
	for j, name := range names {
		i := hd.Index(name)
		if i == -1 {
			return nil, nil, fmt.Errorf("%s does not contain the column '%s'",
				fname, name)
		}
		out[j] = cols[i]
	}
	return out[1:], out[0], nil
}

// writeResults writes accelerations, and potentials if pot is non-nil, in
// the configured output format.
func writeResults[F tree.Float](
	c *config.Config, tr *tree.Tree[F], in *input[F], acc [][]F, pot []F,
	stdout io.Writer,
) error {
	names := []string{"ax", "ay", "az"}[:tr.Dim()]
	cols := append([][]F{}, acc...)
	if pot != nil {
		names = append(names, "pot")
		cols = append(cols, pot)
	}

	if c.Output.Format == "snapio" {
		if c.Output.File == "" {
			return fmt.Errorf("snapio output requires an output file")
		}
		hd := &snapio.Header{
			FixedWidthHeader: snapio.FixedWidthHeader{
				Dim:     int64(tr.Dim()),
				BoxSize: float64(tr.BoxSize()),
				G:       c.Eval.G,
				Theta:   c.Eval.Theta,
			},
			Names: names,
		}
		return snapio.WriteFile(c.Output.File, hd, cols)
	}

	header := []string{
		fmt.Sprintf("theta = %g, G = %g, box size = %g, ordered = %v",
			c.Eval.Theta, c.Eval.G, float64(tr.BoxSize()), c.Output.Ordered),
		fmt.Sprint(names),
	}
	if in.offset != nil {
		header = append(header, fmt.Sprintf("particles were translated by %v",
			in.offset))
	}

	if c.Output.File == "" {
		return catio.WriteText(stdout, header, cols...)
	}
	f, err := os.Create(c.Output.File)
	if err != nil {
		return err
	}
	if err := catio.WriteText(f, header, cols...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
