package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/phil-mansfield/bhtree/lib/accuracy"
	"github.com/phil-mansfield/bhtree/lib/config"
	fatal "github.com/phil-mansfield/bhtree/lib/error"
	"github.com/phil-mansfield/bhtree/lib/reference"
	"github.com/phil-mansfield/bhtree/lib/tree"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
	defer func() {
		if r := recover(); r != nil {
			fatal.Internal(log, "%v", r)
		}
	}()
	if err := run(os.Args[1:], os.Stdout, log); err != nil {
		fatal.External(log, "%s", err.Error())
	}
}

// run parses the command line and runs the chosen mode, writing its results
// to out.
func run(args []string, out io.Writer, log zerolog.Logger) error {
	mode, c, err := config.ParseCommandLine(args)
	if err != nil {
		return err
	}

	switch mode {
	case "help":
		return Help(out)
	case "check":
		return Check(out, c)
	}

	if errs := c.Check(); len(errs) > 0 {
		return errs[0]
	}
	level, _ := c.LogLevel()
	log = log.Level(level)

	if c.Tree.Precision == "float32" {
		return runMode[float32](mode, c, out, log)
	}
	return runMode[float64](mode, c, out, log)
}

func runMode[F tree.Float](
	mode string, c *config.Config, out io.Writer, log zerolog.Logger,
) error {
	in, err := loadParticles[F](c, log)
	if err != nil {
		return err
	}

	threads, _ := c.Threads()
	t0 := time.Now()
	tr, err := tree.New(in.coords, in.mass, in.boxSize, c.Tree.MaxLeafN,
		c.Tree.NCrit, tree.WithWorkers(threads), tree.WithLogger(log))
	if err != nil {
		return err
	}
	log.Info().Int("particles", tr.Len()).Int("nodes", len(tr.Nodes())).
		Dur("elapsed", time.Since(t0)).Msg("Built tree.")

	switch mode {
	case "demo":
		return Demo(out, c, tr)
	case "accs":
		return Accs(c, tr, in, out, log)
	case "accuracy":
		return Accuracy(out, c, tr)
	case "compare":
		return Compare(out, c, tr)
	}
	return fmt.Errorf("mode '%s' is not implemented", mode)
}

// Help prints the modes and every flag.
func Help(out io.Writer) error {
	fmt.Fprintln(out, "Usage: bhtree <mode> [config file] [--<flag> <value>] ...")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Modes:")
	fmt.Fprintln(out, "  help      Print this message.")
	fmt.Fprintln(out, "  check     Check the configuration for errors.")
	fmt.Fprintln(out, "  demo      Print the tree and the acceleration of one particle.")
	fmt.Fprintln(out, "  accs      Write accelerations (and potentials) of every particle.")
	fmt.Fprintln(out, "  accuracy  Compare tree accelerations against exact sums.")
	fmt.Fprintln(out, "  compare   Compare against independent gravity codes.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	_, err := fmt.Fprint(out, config.Default().Flags().FlagUsages())
	return err
}

// Check runs bhtree's "check" mode which tests for errors in the
// configuration arguments.
func Check(out io.Writer, c *config.Config) error {
	errs := c.Check()
	for _, err := range errs {
		fmt.Fprintln(out, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d configuration errors", len(errs))
	}
	fmt.Fprintln(out, "No errors detected.")
	return nil
}

// Demo prints the tree, then the tree and exact accelerations of a single
// particle.
func Demo[F tree.Float](out io.Writer, c *config.Config, tr *tree.Tree[F]) error {
	idx := c.Accuracy.Index
	if idx >= tr.Len() {
		return fmt.Errorf("index %d is outside a tree with %d particles",
			idx, tr.Len())
	}
	opt := tree.WithG(F(c.Eval.G))
	theta := F(c.Eval.Theta)

	fmt.Fprintln(out, tr)

	var acc [][]F
	t0 := time.Now()
	if c.Eval.Scalar {
		acc = tr.AccelerationsScalar(theta, opt)
	} else {
		acc = tr.Accelerations(theta, opt)
	}
	elapsed := time.Since(t0)

	approx := make([]F, tr.Dim())
	for j := range approx {
		approx[j] = acc[j][idx]
	}
	exact := tr.ExactAcceleration(idx, opt)

	fmt.Fprintf(out, "Accelerations of %d particles computed in %s\n",
		tr.Len(), elapsed)
	fmt.Fprintf(out, "Tree acceleration of particle %d:  %v\n", idx, approx)
	fmt.Fprintf(out, "Exact acceleration of particle %d: %v\n", idx, exact)
	fmt.Fprintf(out, "Relative error: %.4e\n", accuracy.Relative(
		columns(approx), columns(exact))[0])
	return nil
}

// columns converts a single vector into one-element columns.
func columns[F tree.Float](x []F) [][]F {
	out := make([][]F, len(x))
	for j := range x {
		out[j] = []F{x[j]}
	}
	return out
}

// Accs runs bhtree's "accs" mode, which writes the accelerations of every
// particle and optionally their potentials.
func Accs[F tree.Float](
	c *config.Config, tr *tree.Tree[F], in *input[F], out io.Writer,
	log zerolog.Logger,
) error {
	opt := tree.WithG(F(c.Eval.G))
	theta := F(c.Eval.Theta)

	t0 := time.Now()
	var acc [][]F
	var pot []F
	switch {
	case c.Eval.Scalar && c.Output.Ordered:
		return fmt.Errorf("ordered output is only supported by the " +
			"vectorized traversal")
	case c.Eval.Scalar:
		acc = tr.AccelerationsScalar(theta, opt)
		if c.Output.Potentials {
			pot = tr.PotentialsScalar(theta, opt)
		}
	case c.Output.Ordered:
		acc = tr.AccelerationsOrdered(theta, opt)
		if c.Output.Potentials {
			pot = tr.PotentialsOrdered(theta, opt)
		}
	case c.Output.Potentials:
		acc, pot = tr.AccelerationsPotentials(theta, opt)
	default:
		acc = tr.Accelerations(theta, opt)
	}
	log.Info().Dur("elapsed", time.Since(t0)).Msg("Computed accelerations.")

	return writeResults(c, tr, in, acc, pot, out)
}

// Accuracy runs bhtree's "accuracy" mode, which prints error statistics for
// every opening angle in the configuration.
func Accuracy[F tree.Float](out io.Writer, c *config.Config, tr *tree.Tree[F]) error {
	thetas := make([]F, len(c.Accuracy.Thetas))
	for i := range thetas {
		thetas[i] = F(c.Accuracy.Thetas[i])
	}
	idx := accuracy.Stride(tr.Len(), c.Accuracy.Samples)
	reports, err := accuracy.Scan(tr, thetas, idx, tree.WithG(F(c.Eval.G)))
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Fprintln(out, r)
	}
	return nil
}

// Compare runs bhtree's "compare" mode. Tree accelerations are compared
// against direct summation. gonum's Barnes-Hut approximation and gravitree's
// potentials only support unit masses, so the tree is also rebuilt with unit
// masses and compared against both.
func Compare[F tree.Float](out io.Writer, c *config.Config, tr *tree.Tree[F]) error {
	theta := c.Eval.Theta
	exact, err := reference.Accelerations(tr.Coords(), tr.Masses(), 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "bhtree:               %s\n", accuracy.Summarize(theta,
		accuracy.Relative(widen(tr.Accelerations(F(theta))), exact)))

	unit := make([]F, tr.Len())
	for i := range unit {
		unit[i] = 1
	}
	ut, err := tree.New(tr.Coords(), unit, tr.BoxSize(), tr.MaxLeafN(),
		tr.NCrit())
	if err != nil {
		return err
	}
	coords := ut.Coords()

	if exact, err = reference.Accelerations(coords, unit, 0); err != nil {
		return err
	}
	gonumAcc, err := reference.Accelerations(coords, unit, theta)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "bhtree, unit masses:  %s\n", accuracy.Summarize(theta,
		accuracy.Relative(widen(ut.Accelerations(F(theta))), exact)))
	fmt.Fprintf(out, "gonum, unit masses:   %s\n", accuracy.Summarize(theta,
		accuracy.Relative(gonumAcc, exact)))

	pe, err := reference.EqualMassPotentials(coords, c.Accuracy.Eps, 0)
	if err != nil {
		return err
	}
	idx := accuracy.Stride(ut.Len(), c.Accuracy.Samples)
	diff := make([]float64, len(idx))
	for k, i := range idx {
		phi := float64(ut.ExactPotential(i))
		diff[k] = math.Abs(pe[i]+phi) / phi
	}
	fmt.Fprintf(out, "Relative difference from gravitree potentials "+
		"(eps = %g): %s\n", c.Accuracy.Eps, accuracy.Summarize(0, diff))
	return nil
}

// widen converts columns to float64.
func widen[F tree.Float](x [][]F) [][]float64 {
	out := make([][]float64, len(x))
	for j := range x {
		out[j] = make([]float64, len(x[j]))
		for i := range x[j] {
			out[j][i] = float64(x[j][i])
		}
	}
	return out
}
