package cli

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/mete"
	"github.com/matzehuels/macroeco/pkg/params"
	"github.com/matzehuels/macroeco/pkg/pipeline"
	"github.com/matzehuels/macroeco/pkg/table"
	"github.com/matzehuels/macroeco/pkg/workflow"
)

// resultColumns are the columns of the run summary table.
var resultColumns = []string{"id", "data", "run", "S", "N", "E", "distribution", "nll", "error"}

// runOptions holds the flags of the run command.
type runOptions struct {
	script       string
	paramFile    string
	logFile      string
	outDir       string
	distribution string
	abundance    int
	alternate    bool
	ppu          float64
	sppCol       string
	countCol     string
	energyCol    string
	refresh      bool
	merge        bool
	denseStart   int
	denseSpecies int
	dropMissing  []string
	grid         []string
	solver       solverFlags
}

// fitTarget is one table to fit under at most one run.
type fitTarget struct {
	id    string
	data  string
	run   *params.Run
	table *table.Table
}

// runCommand creates the run command, which fits a distribution to every
// data file under every run of a parameter file.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <data.csv>...",
		Short: "Fit a distribution to survey data for every parameter run",
		Long: `Evaluate a distribution against every data file, once per run in the
parameter file. Each data file is a survey table with one row per record;
rows are totalled per species (--spp-col, --count-col) and the energy column
(--energy-col) is the sample the negative log-likelihood is taken over.

Without --params the community is measured from the data itself:
S is the species count, N the total abundance and E the summed energy.

With --merge all data files are pooled into one table per run, tagged with
their source file, and fitted once.

Data files can be reshaped before fitting: --dense-species turns one count
column per species into a count column (--count-col defaults to "count"),
--drop-missing removes incomplete rows, and --grid relabels integer cell
columns as coordinates (name=width:step).

Results go to <out-dir>/<script>_results.csv. Rank results are written per
dataset as <out-dir>/<id>.csv.`,
		Example: `  macroeco run plot1.csv plot2.csv --distribution psi
  macroeco run plot1.csv --params parameters.xml --script fit_psi --log-file logfile.txt
  macroeco run plot1.csv plot2.csv --merge --distribution rank
  macroeco run dense.csv --dense-start 2 --dense-species 12 --grid x=100:10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWorkflow(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.script, "script", appName, "analysis name; selects the runs in the parameter file")
	cmd.Flags().StringVar(&opts.paramFile, "params", "", "parameter file (.xml, .toml, .yaml)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "append INFO and above to this file")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory for result tables")
	cmd.Flags().StringVarP(&opts.distribution, "distribution", "d", pipeline.DistPsi, "distribution to fit: theta, nu, psi or rank")
	cmd.Flags().IntVarP(&opts.abundance, "abundance", "n", 0, "species abundance n (theta only)")
	cmd.Flags().BoolVar(&opts.alternate, "alternate", false, "use the independently normalised psi")
	cmd.Flags().Float64Var(&opts.ppu, "ppu", pipeline.DefaultPointsPerUnit, "support points per unit of energy")
	cmd.Flags().StringVar(&opts.sppCol, "spp-col", table.SpeciesColumn, "species column")
	cmd.Flags().StringVar(&opts.countCol, "count-col", "", "count column (default: one individual per row)")
	cmd.Flags().StringVar(&opts.energyCol, "energy-col", "energy", "energy column")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "pool all data files into one dataset per run")
	cmd.Flags().IntVar(&opts.denseStart, "dense-start", 0, "index of the first species column in dense data")
	cmd.Flags().IntVar(&opts.denseSpecies, "dense-species", 0, "number of species columns in dense data (0: data is not dense)")
	cmd.Flags().StringSliceVar(&opts.dropMissing, "drop-missing", nil, "drop rows missing a value in these columns")
	cmd.Flags().StringArrayVar(&opts.grid, "grid", nil, "relabel a cell column as coordinates, name=width:step (repeatable)")
	opts.solver.register(cmd)

	return cmd
}

func (c *CLI) runWorkflow(cmd *cobra.Command, dataFiles []string, opts runOptions) error {
	if err := pipeline.ValidateDistribution(opts.distribution); err != nil {
		return err
	}
	var ask map[string]string
	if opts.paramFile != "" {
		ask = params.CommunityAsk
	}
	grid, err := parseGrid(opts.grid)
	if err != nil {
		return err
	}
	if opts.denseSpecies > 0 && opts.countCol == "" {
		opts.countCol = table.CountColumn
	}

	w, err := workflow.New(workflow.Options{
		Script:    opts.script,
		DataFiles: dataFiles,
		ParamFile: opts.paramFile,
		Ask:       ask,
		LogFile:   opts.logFile,
		Console:   os.Stderr,
		Level:     c.Logger.GetLevel(),
		Prepare: workflow.Prepare{
			DenseStart:   opts.denseStart,
			DenseSpecies: opts.denseSpecies,
			CountColumn:  opts.countCol,
			DropMissing:  opts.dropMissing,
			Grid:         grid,
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory %s", opts.outDir)
	}

	runner, err := c.newRunner()
	if err != nil {
		return err
	}
	defer runner.Close()

	targets, err := fitTargets(w, opts.merge)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	prog := newProgress(w.Log.Console())
	w.Log.Info("analysis started", "datasets", len(targets), "distribution", opts.distribution, "merged", opts.merge)

	results := table.New(resultColumns...)
	failed := 0
	for _, ft := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := c.fitDataset(ctx, w, runner, ft, opts)
		if err != nil {
			if !errors.Numerical(err) {
				return err
			}
			failed++
			w.Log.Warn("dataset failed", "id", ft.id, "err", errors.UserMessage(err))
		}
		if err := results.Append(row...); err != nil {
			return err
		}
	}

	path, err := table.WriteCSV(filepath.Join(opts.outDir, w.Script+"_results"), results)
	if err != nil {
		return err
	}
	w.Log.Info("analysis finished", "results", path, "failed", failed)
	prog.done("Evaluated " + strconv.Itoa(results.Len()) + " datasets")

	if failed > 0 {
		printWarning("%d of %d datasets failed", failed, results.Len())
	} else {
		printSuccess("Evaluated %d datasets", results.Len())
	}
	printFile(path)
	return nil
}

// fitTargets lists what to fit: every data file under every run, or with
// merge one pooled table per run.
func fitTargets(w *workflow.Workflow, merge bool) ([]fitTarget, error) {
	var out []fitTarget
	if merge {
		for _, b := range w.AllDatasets() {
			t, err := w.Merged(b)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(b.Paths))
			for i, p := range b.Paths {
				names[i] = workflow.CleanName(p)
			}
			out = append(out, fitTarget{id: b.ID, data: strings.Join(names, "+"), run: b.Run, table: t})
		}
		return out, nil
	}
	for _, ds := range w.SingleDatasets() {
		t, err := w.Table(ds.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, fitTarget{id: ds.ID, data: workflow.CleanName(ds.Path), run: ds.Run, table: t})
	}
	return out, nil
}

// fitDataset evaluates one target and returns its summary row. Numerical
// failures still produce a row with the error column set.
func (c *CLI) fitDataset(ctx context.Context, w *workflow.Workflow, runner *pipeline.Runner, ft fitTarget, opts runOptions) ([]string, error) {
	runName := ""
	if ft.run != nil {
		runName = ft.run.Name
	}
	row := []string{ft.id, ft.data, runName, "", "", "", opts.distribution, "", ""}
	fail := func(err error) ([]string, error) {
		row[8] = errors.UserMessage(err)
		return row, err
	}

	t := ft.table
	sample, err := table.Abundances(t, opts.sppCol, opts.countCol)
	if err != nil {
		return fail(err)
	}
	var energies []float64
	if opts.distribution != pipeline.DistRank {
		if energies, err = energySample(t, opts.energyCol); err != nil {
			return row, err
		}
	}

	comm, err := datasetCommunity(ft.run, sample, t, opts.energyCol)
	if err != nil {
		return fail(err)
	}
	row[3], row[4], row[5] = strconv.Itoa(comm.S), strconv.Itoa(comm.N), formatFloat(comm.E)

	start := time.Now()
	result, err := runner.Execute(ctx, pipeline.Options{
		Distribution:  opts.distribution,
		Community:     comm,
		Species:       opts.abundance,
		Abundances:    sample.Counts,
		Summarize:     opts.distribution != pipeline.DistRank,
		Sample:        energies,
		Alternate:     opts.alternate,
		PointsPerUnit: opts.ppu,
		Solver:        opts.solver.opts,
		Refresh:       opts.refresh,
		Logger:        w.Log.Console(),
	})
	if err != nil {
		return fail(err)
	}
	w.Log.Info("dataset evaluated", "id", ft.id, "community", formatCommunity(comm),
		"result", describeResult(result), "cached", result.Cached, "elapsed", time.Since(start).Round(time.Millisecond))

	if opts.distribution == pipeline.DistRank {
		ranks := table.New(table.SpeciesColumn, "n", "eta")
		for i, name := range sample.Species {
			ranks.Rows = append(ranks.Rows, []string{name, strconv.Itoa(sample.Counts[i]), formatFloat(result.Density[i])})
		}
		path, err := table.WriteCSV(filepath.Join(opts.outDir, ft.id), ranks)
		if err != nil {
			return row, err
		}
		w.Log.Debug("wrote rank table", "path", path)
		return row, nil
	}

	row[7] = formatFloat(result.NegLogLikelihood)
	return row, nil
}

// datasetCommunity takes S, N and E from the run when there is one and
// measures them from the data otherwise.
func datasetCommunity(run *params.Run, sample table.Abundance, t *table.Table, energyCol string) (mete.Community, error) {
	if run != nil {
		return run.Community()
	}
	energies, err := energySample(t, energyCol)
	if err != nil {
		return mete.Community{}, err
	}
	return mete.Community{S: len(sample.Counts), N: sample.Total(), E: floats.Sum(energies)}, nil
}

// energySample returns the non-missing values of the energy column.
func energySample(t *table.Table, energyCol string) ([]float64, error) {
	clean, err := table.DropMissing(t, energyCol)
	if err != nil {
		return nil, err
	}
	return clean.Floats(energyCol)
}
