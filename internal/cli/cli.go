package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/macroeco/pkg/buildinfo"
	"github.com/matzehuels/macroeco/pkg/cache"
	"github.com/matzehuels/macroeco/pkg/metrics"
	"github.com/matzehuels/macroeco/pkg/observability"
	"github.com/matzehuels/macroeco/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "macroeco"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Metrics is set when --metrics-file is given.
	Metrics *metrics.Recorder

	metricsFile string
	noCache     bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Maximum-entropy energy distributions for ecological communities",
		Long: `macroeco evaluates the METE energy distributions of an ecological community
(theta, nu, psi), the rank-abundance transform of an abundance sample, and runs
reproducible batch fits over survey data files with named parameter sets.`,
		Version:      buildinfo.Current().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.metricsFile != "" {
				c.Metrics = metrics.NewRecorder()
				observability.SetEvalHooks(c.Metrics)
				observability.SetCacheHooks(c.Metrics)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.Metrics.WriteTextfile(c.metricsFile); err != nil {
				return err
			}
			if c.Metrics != nil {
				c.Logger.Debug("wrote metrics", "file", c.metricsFile)
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "write prometheus metrics to this textfile on exit")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the result cache")

	// Register all subcommands
	root.AddCommand(c.betaCommand())
	root.AddCommand(c.pdfCommand())
	root.AddCommand(c.rankCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Cache keys are scoped to
// the build so an upgrade never serves results of older code.
func (c *CLI) newRunner() (*pipeline.Runner, error) {
	store, err := newCache(c.noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, cacheKeyer(), c.Logger), nil
}

func cacheKeyer() cache.Keyer {
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Current().CacheScope(appName))
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache("--no-cache"), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache("no cache directory: " + err.Error()), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/macroeco/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Context Helpers
// =============================================================================

// commandContext returns cmd's context, or Background when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
