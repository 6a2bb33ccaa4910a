package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroeco/pkg/mete"
)

// betaCommand creates the beta command, which solves for the Lagrange
// multipliers of a community.
func (c *CLI) betaCommand() *cobra.Command {
	var (
		community communityFlags
		solver    solverFlags
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "beta",
		Short: "Solve for beta and the derived METE parameters",
		Long: `Solve the METE constraint equation for beta and print the derived
parameters lambda1, lambda2, sigma and the normalisation constant.`,
		Example: `  macroeco beta -S 5 -N 20 -E 100
  macroeco beta --params parameters.xml --run plot1 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comm, err := community.community()
			if err != nil {
				return err
			}
			logger := loggerFromContext(commandContext(cmd))

			sol, err := mete.SolveBeta(comm.S, comm.N, solver.opts.WithDefaults())
			if err != nil {
				return err
			}
			logger.Debug("solved beta", "iterations", sol.Iterations, "bracket", fmt.Sprintf("[%g, %g]", sol.Lower, sol.Upper))

			p, err := mete.ParamsFor(comm, sol.Beta)
			if err != nil {
				return err
			}
			p.Iterations = sol.Iterations

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}

			printKeyValue("community", formatCommunity(comm))
			printKeyValue("beta", formatFloat(p.Beta))
			printKeyValue("lambda1", formatFloat(p.Lambda1))
			printKeyValue("lambda2", formatFloat(p.Lambda2))
			printKeyValue("sigma", formatFloat(p.Sigma))
			printKeyValue("norm", formatFloat(p.Norm))
			printKeyValue("iterations", strconv.Itoa(sol.Iterations))
			return nil
		},
	}

	community.register(cmd)
	solver.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parameters as JSON")

	return cmd
}
