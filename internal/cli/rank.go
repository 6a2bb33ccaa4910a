package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/pipeline"
	"github.com/matzehuels/macroeco/pkg/table"
)

// rankCommand creates the rank command, which maps an abundance sample to
// expected metabolic rates.
func (c *CLI) rankCommand() *cobra.Command {
	var (
		community  communityFlags
		abundances string
		dataFile   string
		sppCol     string
		countCol   string
		refresh    bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Expected metabolic rate of each species in an abundance sample",
		Long: `Compute the rank-abundance transform eta = 1 + 1/(n·lambda2) for every
species of an empirical abundance sample. The sample comes from --abundances
or from a survey CSV (--data), where rows are totalled per species.

S and N default to the sample's species count and total abundance.`,
		Example: `  macroeco rank -E 100 --abundances 1,2,7
  macroeco rank -E 5000 --data plot1.csv --spp-col spp --count-col count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := loadAbundance(abundances, dataFile, sppCol, countCol)
			if err != nil {
				return err
			}
			if community.paramFile == "" {
				if community.species == 0 {
					community.species = len(sample.Counts)
				}
				if community.individuals == 0 {
					community.individuals = sample.Total()
				}
			}
			comm, err := community.community()
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
				Distribution: pipeline.DistRank,
				Community:    comm,
				Abundances:   sample.Counts,
				Refresh:      refresh,
				Logger:       loggerFromContext(ctx),
			})
			if err != nil {
				return err
			}

			t := table.New(table.SpeciesColumn, "n", "eta")
			for i, name := range sample.Species {
				t.Rows = append(t.Rows, []string{name, strconv.Itoa(sample.Counts[i]), formatFloat(result.Density[i])})
			}
			if output == "" {
				return table.Write(cmd.OutOrStdout(), t)
			}
			path, err := table.WriteCSV(output, t)
			if err != nil {
				return err
			}
			printSuccess("Ranked %d species for %s", len(sample.Counts), formatCommunity(comm))
			printEvalStats(result)
			printFile(path)
			return nil
		},
	}

	community.register(cmd)
	cmd.Flags().StringVar(&abundances, "abundances", "", "comma-separated species abundances")
	cmd.Flags().StringVar(&dataFile, "data", "", "survey CSV to total per species")
	cmd.Flags().StringVar(&sppCol, "spp-col", table.SpeciesColumn, "species column in --data")
	cmd.Flags().StringVar(&countCol, "count-col", "", "count column in --data (default: one individual per row)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV file (default: stdout)")

	return cmd
}

// loadAbundance reads an abundance sample from a list or a survey CSV.
// Species read from a list are named sp1, sp2, ... in input order.
func loadAbundance(list, file, sppCol, countCol string) (table.Abundance, error) {
	switch {
	case list != "" && file != "":
		return table.Abundance{}, errors.New(errors.ErrCodeInvalidInput, "--abundances and --data are mutually exclusive")
	case list != "":
		counts, err := parseInts(list)
		if err != nil {
			return table.Abundance{}, err
		}
		a := table.Abundance{Counts: counts}
		for i := range counts {
			a.Species = append(a.Species, "sp"+strconv.Itoa(i+1))
		}
		return a, nil
	case file != "":
		t, err := table.ReadCSV(file, table.ReadOptions{})
		if err != nil {
			return table.Abundance{}, err
		}
		return table.Abundances(t, sppCol, countCol)
	}
	return table.Abundance{}, errors.New(errors.ErrCodeInvalidInput, "need --abundances or --data")
}
