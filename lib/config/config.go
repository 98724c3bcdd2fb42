/*package config reads bhtree's configuration. Values come from an INI-style
config file and can be overridden on the command line:

	$ bhtree <mode> [config file] [--<flag> <value>] ...

Every command line flag has the same name as the config variable it
overrides.*/
package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/gcfg.v1"
)

// Modes lists every mode bhtree can be run in.
var Modes = []string{"help", "check", "demo", "accs", "accuracy", "compare"}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config stores configuration information. Section and variable names in
// the config file are the gcfg tags.
type Config struct {
	Tree struct {
		// BoxSize is the width of the domain. Zero chooses the smallest
		// centered box, widened by Padding.
		BoxSize  float64 `gcfg:"box-size"`
		Padding  float64 `gcfg:"padding"`
		MaxLeafN int     `gcfg:"max-leaf-n"`
		NCrit    int     `gcfg:"ncrit"`
		// Precision is either "float32" or "float64".
		Precision string `gcfg:"precision"`
		// Recenter translates the particles so that their bounding box is
		// centered on the origin before the tree is built.
		Recenter bool `gcfg:"recenter"`
	}
	Eval struct {
		Theta   float64 `gcfg:"theta"`
		G       float64 `gcfg:"g"`
		Threads int     `gcfg:"threads"`
		// Scalar selects the per-particle engine instead of the vectorized
		// one.
		Scalar bool `gcfg:"scalar"`
	}
	Input struct {
		// File is read if set, with "-" meaning stdin. Otherwise Dist
		// particles are generated.
		File string `gcfg:"file"`
		// Format is "text" or "snapio".
		Format string `gcfg:"format"`
		// Dist is "uniform" or "plummer".
		Dist string `gcfg:"dist"`
		N    int    `gcfg:"n"`
		Dim  int    `gcfg:"dim"`
		Seed int64  `gcfg:"seed"`
	}
	Output struct {
		File   string `gcfg:"file"`
		Format string `gcfg:"format"`
		// Ordered writes results in input order instead of tree order.
		Ordered    bool `gcfg:"ordered"`
		Potentials bool `gcfg:"potentials"`
	}
	Accuracy struct {
		Samples int       `gcfg:"samples"`
		Thetas  []float64 `gcfg:"thetas"`
		// Index is the particle the demo mode evaluates exactly.
		Index int `gcfg:"index"`
		// Eps is the softening length passed to the reference potential.
		Eps float64 `gcfg:"eps"`
	}
	Log struct {
		Level string `gcfg:"level"`
	}
}

// Default returns the configuration used for every variable which is not
// set by the user.
func Default() *Config {
	c := &Config{}
	c.Tree.Padding = 1e-3
	c.Tree.MaxLeafN = 8
	c.Tree.NCrit = 16
	c.Tree.Precision = "float64"
	c.Eval.Theta = 0.75
	c.Eval.G = 1
	c.Eval.Threads = 1
	c.Input.Format = "text"
	c.Input.Dist = "plummer"
	c.Input.N = 1000
	c.Input.Dim = 3
	c.Input.Seed = 1
	c.Output.Format = "text"
	c.Accuracy.Samples = 100
	c.Accuracy.Thetas = []float64{1, 0.75, 0.5, 0.25}
	c.Log.Level = "info"
	return c
}

// ReadFile parses a config file on top of the defaults.
func ReadFile(fname string) (*Config, error) {
	c := Default()
	thetas := c.Accuracy.Thetas
	c.Accuracy.Thetas = nil
	if err := gcfg.ReadFileInto(c, fname); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, fname, err)
	}
	if len(c.Accuracy.Thetas) == 0 {
		c.Accuracy.Thetas = thetas
	}
	return c, nil
}

// ReadString parses config file text on top of the defaults.
func ReadString(text string) (*Config, error) {
	c := Default()
	thetas := c.Accuracy.Thetas
	c.Accuracy.Thetas = nil
	if err := gcfg.ReadStringInto(c, text); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(c.Accuracy.Thetas) == 0 {
		c.Accuracy.Thetas = thetas
	}
	return c, nil
}

// Flags returns a flag set whose flags override the variables of c when
// parsed. Only flags which are set on the command line change c.
func (c *Config) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("bhtree", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.Float64Var(&c.Tree.BoxSize, "box-size", c.Tree.BoxSize,
		"Width of the domain. 0 chooses it from the particles.")
	fs.Float64Var(&c.Tree.Padding, "padding", c.Tree.Padding,
		"Fraction the automatic box size is widened by.")
	fs.IntVar(&c.Tree.MaxLeafN, "max-leaf-n", c.Tree.MaxLeafN,
		"Largest number of particles in a leaf above the maximum depth.")
	fs.IntVar(&c.Tree.NCrit, "ncrit", c.Tree.NCrit,
		"Largest number of particles evaluated as one batch.")
	fs.StringVar(&c.Tree.Precision, "precision", c.Tree.Precision,
		"Element type, float32 or float64.")
	fs.BoolVar(&c.Tree.Recenter, "recenter", c.Tree.Recenter,
		"Center the particles' bounding box on the origin.")

	fs.Float64Var(&c.Eval.Theta, "theta", c.Eval.Theta, "Opening angle.")
	fs.Float64Var(&c.Eval.G, "g", c.Eval.G, "Gravitational constant.")
	fs.IntVar(&c.Eval.Threads, "threads", c.Eval.Threads,
		"Number of worker goroutines. -1 uses every core.")
	fs.BoolVar(&c.Eval.Scalar, "scalar", c.Eval.Scalar,
		"Use the per-particle traversal.")

	fs.StringVar(&c.Input.File, "input", c.Input.File,
		"Particle file. Particles are generated if empty.")
	fs.StringVar(&c.Input.Format, "input-format", c.Input.Format,
		"Input format, text or snapio.")
	fs.StringVar(&c.Input.Dist, "dist", c.Input.Dist,
		"Generated distribution, uniform or plummer.")
	fs.IntVar(&c.Input.N, "n", c.Input.N, "Number of generated particles.")
	fs.IntVar(&c.Input.Dim, "dim", c.Input.Dim, "Number of dimensions.")
	fs.Int64Var(&c.Input.Seed, "seed", c.Input.Seed, "Random seed.")

	fs.StringVar(&c.Output.File, "output", c.Output.File,
		"Output file. Results are written to stdout if empty.")
	fs.StringVar(&c.Output.Format, "output-format", c.Output.Format,
		"Output format, text or snapio.")
	fs.BoolVar(&c.Output.Ordered, "ordered", c.Output.Ordered,
		"Write results in input order.")
	fs.BoolVar(&c.Output.Potentials, "potentials", c.Output.Potentials,
		"Also write potentials.")

	fs.IntVar(&c.Accuracy.Samples, "samples", c.Accuracy.Samples,
		"Number of particles compared against exact sums.")
	fs.Float64SliceVar(&c.Accuracy.Thetas, "thetas", c.Accuracy.Thetas,
		"Opening angles scanned by the accuracy mode.")
	fs.IntVar(&c.Accuracy.Index, "index", c.Accuracy.Index,
		"Particle evaluated exactly by the demo mode.")
	fs.Float64Var(&c.Accuracy.Eps, "eps", c.Accuracy.Eps,
		"Softening length of the reference potential.")

	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level,
		"One of debug, info, warn, error.")
	return fs
}

// ParseCommandLine parses the command line arguments (without the program
// name) and returns the mode bhtree is being run in and the resulting
// configuration. Expects that the arguments are presented in the order:
// $ bhtree <mode> [config file] [--<Arg1> <Value1>] [--<Arg2> <Value2>]
func ParseCommandLine(args []string) (mode string, c *Config, err error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: no mode given. Valid modes are %s",
			ErrInvalid, strings.Join(Modes, ", "))
	}
	mode, args = args[0], args[1:]
	if !validMode(mode) {
		return "", nil, fmt.Errorf("%w: you attempted to run bhtree in the "+
			"mode '%s', but the only valid modes are %s", ErrInvalid, mode,
			strings.Join(Modes, ", "))
	}

	c = Default()
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if c, err = ReadFile(args[0]); err != nil {
			return "", nil, err
		}
		args = args[1:]
	}

	fs := c.Flags()
	if err := fs.Parse(args); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if fs.NArg() > 0 {
		return "", nil, fmt.Errorf("%w: unexpected arguments %s", ErrInvalid,
			fs.Args())
	}
	return mode, c, nil
}

func validMode(mode string) bool {
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Check validates every variable and returns all the problems it finds.
// Nothing which requires interacting with external files is checked.
func (c *Config) Check() []error {
	var errs []error
	fail := func(format string, a ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, a...)...))
	}

	if c.Tree.BoxSize < 0 || math.IsNaN(c.Tree.BoxSize) || math.IsInf(c.Tree.BoxSize, 0) {
		fail("box-size = %g must be finite and non-negative", c.Tree.BoxSize)
	}
	if c.Tree.Padding < 0 || math.IsNaN(c.Tree.Padding) {
		fail("padding = %g must be non-negative", c.Tree.Padding)
	}
	if c.Tree.MaxLeafN <= 0 {
		fail("max-leaf-n = %d must be positive", c.Tree.MaxLeafN)
	}
	if c.Tree.NCrit <= 0 {
		fail("ncrit = %d must be positive", c.Tree.NCrit)
	}
	if c.Tree.Precision != "float32" && c.Tree.Precision != "float64" {
		fail("precision = '%s' must be float32 or float64", c.Tree.Precision)
	}

	if !(c.Eval.Theta >= 0) || math.IsInf(c.Eval.Theta, 0) {
		fail("theta = %g must be finite and non-negative", c.Eval.Theta)
	}
	if math.IsNaN(c.Eval.G) || math.IsInf(c.Eval.G, 0) {
		fail("g = %g must be finite", c.Eval.G)
	}
	if _, err := c.Threads(); err != nil {
		errs = append(errs, err)
	}

	if c.Input.Format != "text" && c.Input.Format != "snapio" {
		fail("input format '%s' must be text or snapio", c.Input.Format)
	}
	if c.Input.File == "" {
		if c.Input.Dist != "uniform" && c.Input.Dist != "plummer" {
			fail("dist = '%s' must be uniform or plummer", c.Input.Dist)
		}
		if c.Input.N < 0 {
			fail("n = %d must be non-negative", c.Input.N)
		}
		if c.Input.Dist == "plummer" && c.Input.Dim != 3 {
			fail("plummer spheres are three dimensional, but dim = %d",
				c.Input.Dim)
		}
	}
	if c.Input.Dim != 2 && c.Input.Dim != 3 {
		fail("dim = %d must be 2 or 3", c.Input.Dim)
	}

	if c.Output.Format != "text" && c.Output.Format != "snapio" {
		fail("output format '%s' must be text or snapio", c.Output.Format)
	}

	if c.Accuracy.Samples <= 0 {
		fail("samples = %d must be positive", c.Accuracy.Samples)
	}
	for _, theta := range c.Accuracy.Thetas {
		if !(theta >= 0) || math.IsInf(theta, 0) {
			fail("thetas contains %g, which is not a finite non-negative "+
				"number", theta)
		}
	}
	if c.Accuracy.Index < 0 {
		fail("index = %d must be non-negative", c.Accuracy.Index)
	}
	if c.Accuracy.Eps < 0 {
		fail("eps = %g must be non-negative", c.Accuracy.Eps)
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Threads returns the number of worker goroutines. A value of -1 uses every
// core.
func (c *Config) Threads() (int, error) {
	n := c.Eval.Threads
	if n == -1 {
		return runtime.NumCPU(), nil
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: threads = %d must be positive or -1",
			ErrInvalid, n)
	}
	if n > runtime.NumCPU() {
		return 0, fmt.Errorf("%w: %d threads requested, but your system "+
			"only has %d cores. If you want bhtree to use every core, set "+
			"threads = -1", ErrInvalid, n, runtime.NumCPU())
	}
	return n, nil
}

// LogLevel returns the configured zerolog level.
func (c *Config) LogLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || c.Log.Level == "" {
		return zerolog.NoLevel, fmt.Errorf("%w: log level '%s' is not "+
			"recognized", ErrInvalid, c.Log.Level)
	}
	return level, nil
}
