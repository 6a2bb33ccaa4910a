package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/mete"
	"github.com/matzehuels/macroeco/pkg/params"
	"github.com/matzehuels/macroeco/pkg/workflow"
)

// =============================================================================
// Community Flags
// =============================================================================

// communityFlags describes a community either directly (-S -N -E) or as a
// named run from a parameter file (--params --run).
type communityFlags struct {
	species     int
	individuals int
	energy      float64

	paramFile string
	run       string
	script    string
}

func (f *communityFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.species, "species", "S", 0, "species count S")
	cmd.Flags().IntVarP(&f.individuals, "individuals", "N", 0, "individual count N")
	cmd.Flags().Float64VarP(&f.energy, "energy", "E", 0, "total metabolic energy E")
	cmd.Flags().StringVar(&f.paramFile, "params", "", "read S, N and E from a parameter file")
	cmd.Flags().StringVar(&f.run, "run", "", "run name in the parameter file (default: first run)")
	cmd.Flags().StringVar(&f.script, "script", appName, "analysis name in the parameter file")
}

// community resolves the flags into a validated community.
func (f *communityFlags) community() (mete.Community, error) {
	c := mete.Community{S: f.species, N: f.individuals, E: f.energy}
	if f.paramFile != "" {
		run, err := f.loadRun()
		if err != nil {
			return mete.Community{}, err
		}
		if c, err = run.Community(); err != nil {
			return mete.Community{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return mete.Community{}, err
	}
	return c, nil
}

func (f *communityFlags) loadRun() (params.Run, error) {
	p, err := params.Load(f.paramFile, f.script, params.CommunityAsk)
	if err != nil {
		return params.Run{}, err
	}
	if len(p.Runs) == 0 {
		return params.Run{}, errors.New(errors.ErrCodeParamsMissing,
			"no runs for %s in %s", f.script, f.paramFile)
	}
	if f.run == "" {
		return p.Runs[0], nil
	}
	run, ok := p.Run(f.run)
	if !ok {
		return params.Run{}, errors.New(errors.ErrCodeParamsMissing,
			"run %q not found for %s in %s", f.run, f.script, f.paramFile)
	}
	return run, nil
}

// =============================================================================
// Solver Flags
// =============================================================================

type solverFlags struct {
	opts mete.SolverOptions
}

func (f *solverFlags) register(cmd *cobra.Command) {
	d := mete.DefaultSolverOptions()
	cmd.Flags().Float64Var(&f.opts.Lower, "lower", d.Lower, "lower end of the bracket for x = exp(-beta)")
	cmd.Flags().Float64Var(&f.opts.Upper, "upper", d.Upper, "upper end of the bracket, clamped against overflow")
	cmd.Flags().Float64Var(&f.opts.XTol, "xtol", d.XTol, "absolute tolerance on x")
	cmd.Flags().Float64Var(&f.opts.RTol, "rtol", d.RTol, "relative tolerance on x")
	cmd.Flags().IntVar(&f.opts.MaxIter, "max-iter", d.MaxIter, "root finder iteration budget")
}

// =============================================================================
// List Parsing
// =============================================================================

// parseFloats parses a comma-separated list of numbers.
func parseFloats(s string) ([]float64, error) {
	fields := splitList(s)
	out := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid number %q", field)
		}
		out[i] = v
	}
	return out, nil
}

// parseInts parses a comma-separated list of integers.
func parseInts(s string) ([]int, error) {
	fields := splitList(s)
	out := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid integer %q", field)
		}
		out[i] = v
	}
	return out, nil
}

// parseGrid parses grid column specs of the form name=width:step.
func parseGrid(specs []string) ([]workflow.GridColumn, error) {
	out := make([]workflow.GridColumn, 0, len(specs))
	for _, spec := range specs {
		name, dims, ok := strings.Cut(spec, "=")
		width, step, ok2 := strings.Cut(dims, ":")
		if !ok || !ok2 || strings.TrimSpace(name) == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "grid %q: want name=width:step", spec)
		}
		g := workflow.GridColumn{Name: strings.TrimSpace(name)}
		var err error
		if g.Width, err = strconv.ParseFloat(strings.TrimSpace(width), 64); err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "grid %q: invalid width %q", spec, width)
		}
		if g.Step, err = strconv.ParseFloat(strings.TrimSpace(step), 64); err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "grid %q: invalid step %q", spec, step)
		}
		out = append(out, g)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}

// formatFloat renders v for tables and key-value output.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatCommunity(c mete.Community) string {
	return fmt.Sprintf("S=%d N=%d E=%s", c.S, c.N, formatFloat(c.E))
}
