// Command macroeco evaluates METE energy distributions from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/macroeco/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the root command.
func run(ctx context.Context) error {
	root, _ := newRoot(os.Stderr)
	return root.ExecuteContext(ctx)
}

// newRoot builds the root command logging to w. --verbose is parsed by cobra
// before any command runs, so the level is applied in the root's pre-run hook.
func newRoot(w io.Writer) (*cobra.Command, *cli.CLI) {
	var verbose bool

	c := cli.New(w, cli.LogInfo)
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver diagnostics and cache activity")

	setup := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if setup != nil {
			return setup(cmd, args)
		}
		return nil
	}
	return root, c
}
