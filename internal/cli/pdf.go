package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/pipeline"
	"github.com/matzehuels/macroeco/pkg/table"
)

// pdfOptions holds the flags of the pdf command.
type pdfOptions struct {
	community communityFlags
	solver    solverFlags

	abundance  int
	alternate  bool
	summarize  bool
	sample     string
	sampleFile string
	column     string
	ppu        float64
	refresh    bool
	output     string
}

// pdfCommand creates the pdf command, which evaluates theta, nu or psi.
func (c *CLI) pdfCommand() *cobra.Command {
	var opts pdfOptions

	cmd := &cobra.Command{
		Use:   "pdf <theta|nu|psi>",
		Short: "Evaluate a METE energy distribution",
		Long: `Evaluate a METE energy distribution on its support grid and write the
density as CSV, or reduce it to a negative log-likelihood with --summarize.

  theta  energy of one individual in a species of abundance n (--abundance)
  nu     metabolic rate of a species
  psi    energy of one individual in the community (--alternate for the
         independently normalised formulation)`,
		Example: `  macroeco pdf theta -S 5 -N 20 -E 100 --abundance 3
  macroeco pdf psi -S 5 -N 20 -E 100 --alternate -o psi.csv
  macroeco pdf psi -S 5 -N 20 -E 100 --summarize --sample 1.5,2,7.25`,
		ValidArgs: []string{pipeline.DistTheta, pipeline.DistNu, pipeline.DistPsi},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPDF(cmd, args[0], opts)
		},
	}

	opts.community.register(cmd)
	opts.solver.register(cmd)
	cmd.Flags().IntVarP(&opts.abundance, "abundance", "n", 0, "species abundance n (theta only)")
	cmd.Flags().BoolVar(&opts.alternate, "alternate", false, "use the independently normalised psi")
	cmd.Flags().BoolVar(&opts.summarize, "summarize", false, "print the negative log-likelihood instead of the density")
	cmd.Flags().StringVar(&opts.sample, "sample", "", "comma-separated sample for --summarize")
	cmd.Flags().StringVar(&opts.sampleFile, "sample-file", "", "CSV file holding the sample for --summarize")
	cmd.Flags().StringVar(&opts.column, "column", "energy", "sample column in --sample-file")
	cmd.Flags().Float64Var(&opts.ppu, "ppu", pipeline.DefaultPointsPerUnit, "support points per unit of energy")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output CSV file (default: stdout)")

	return cmd
}

func (c *CLI) runPDF(cmd *cobra.Command, dist string, opts pdfOptions) error {
	if dist == pipeline.DistRank {
		return errors.New(errors.ErrCodeInvalidInput, "use the rank command for rank abundance")
	}
	if err := pipeline.ValidateDistribution(dist); err != nil {
		return err
	}
	comm, err := opts.community.community()
	if err != nil {
		return err
	}
	sample, err := loadSample(opts.sample, opts.sampleFile, opts.column)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	runner, err := c.newRunner()
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, pipeline.Options{
		Distribution:  dist,
		Community:     comm,
		Species:       opts.abundance,
		Summarize:     opts.summarize || len(sample) > 0,
		Sample:        sample,
		Alternate:     opts.alternate,
		PointsPerUnit: opts.ppu,
		Solver:        opts.solver.opts,
		Refresh:       opts.refresh,
		Logger:        loggerFromContext(ctx),
	})
	if err != nil {
		return err
	}

	if result.Summarized {
		printKeyValue("nll", formatFloat(result.NegLogLikelihood))
		printEvalStats(result)
		return nil
	}

	t := densityTable("x", "density", result.Support, result.Density)
	if opts.output == "" {
		return table.Write(cmd.OutOrStdout(), t)
	}
	path, err := table.WriteCSV(opts.output, t)
	if err != nil {
		return err
	}
	printSuccess("Evaluated %s for %s", result.Distribution, formatCommunity(comm))
	printKeyValue("integral", formatFloat(result.Integral))
	printEvalStats(result)
	printFile(path)
	return nil
}

// loadSample reads a sample from a comma-separated list or a CSV column.
func loadSample(list, file, column string) ([]float64, error) {
	if list != "" && file != "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "--sample and --sample-file are mutually exclusive")
	}
	if list != "" {
		return parseFloats(list)
	}
	if file == "" {
		return nil, nil
	}
	t, err := table.ReadCSV(file, table.ReadOptions{})
	if err != nil {
		return nil, err
	}
	t, err = table.DropMissing(t, column)
	if err != nil {
		return nil, err
	}
	return t.Floats(column)
}

// densityTable pairs two equal-length columns into a table.
func densityTable(xName, yName string, x, y []float64) *table.Table {
	t := table.New(xName, yName)
	for i := range x {
		t.Rows = append(t.Rows, []string{formatFloat(x[i]), formatFloat(y[i])})
	}
	return t
}

// describeResult summarises a result for log lines.
func describeResult(r *pipeline.Result) string {
	if r.Summarized {
		return fmt.Sprintf("nll=%s", strconv.FormatFloat(r.NegLogLikelihood, 'g', 8, 64))
	}
	return fmt.Sprintf("%d points, integral=%s", len(r.Support), strconv.FormatFloat(r.Integral, 'g', 8, 64))
}
