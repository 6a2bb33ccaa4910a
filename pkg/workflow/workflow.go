// Package workflow tracks which datasets an analysis script processes with
// which parameter sets, so every output can be traced back to its inputs.
//
// A [Workflow] loads its data files up front, reads the script's runs from an
// optional parameter file, and tags every log line with a per-invocation id.
// Console output follows the configured level; the optional log file always
// records INFO and above with full timestamps.
package workflow

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/params"
	"github.com/matzehuels/macroeco/pkg/table"
)

// DefaultLogFile is the log file name the command line uses.
const DefaultLogFile = "logfile.txt"

// Options configures a Workflow.
type Options struct {
	// Script names the analysis; a path is reduced to its base name without extension.
	Script string
	// DataFiles are the CSV files to analyse. At least one is required.
	DataFiles []string
	// ParamFile is the parameter file. Empty means the script takes no runs.
	ParamFile string
	// Ask lists the parameters every run must define.
	Ask map[string]string
	// LogFile receives INFO and above. Empty disables file logging.
	LogFile string
	// Console receives log output at Level. Nil means os.Stderr.
	Console io.Writer
	Level   log.Level
	// Read controls how data files are parsed.
	Read table.ReadOptions
	// Prepare reshapes the data files once they are read.
	Prepare Prepare
}

// Workflow is one invocation of an analysis script.
type Workflow struct {
	Script       string
	InvocationID uuid.UUID
	DataFiles    []string
	// Data holds each data file keyed by CleanName.
	Data map[string]*table.Table
	// Params is nil when no parameter file was given.
	Params      *params.Parameters
	Interactive bool
	Log         *Logger

	logFile *os.File
}

// New starts a workflow: it opens logging, loads every data file, and reads
// the script's runs.
func New(opts Options) (*Workflow, error) {
	script := CleanName(opts.Script)
	if script == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "script name is required")
	}
	if len(opts.DataFiles) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "need a path to data")
	}

	w := &Workflow{
		Script:       script,
		InvocationID: uuid.New(),
		DataFiles:    append([]string(nil), opts.DataFiles...),
		Data:         make(map[string]*table.Table, len(opts.DataFiles)),
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var file io.Writer
	if opts.LogFile != "" {
		if err := errors.ValidatePath(opts.LogFile); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open log file %s", opts.LogFile)
		}
		w.logFile = f
		file = f
	}
	w.Log = newLogger(console, opts.Level, file).With("script", script, "invocation", w.InvocationID.String())

	if err := w.load(opts); err != nil {
		w.Log.Error("workflow setup failed", "err", err)
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

func (w *Workflow) load(opts Options) error {
	tables := make([]*table.Table, len(w.DataFiles))
	seen := make(map[string]bool, len(w.DataFiles))
	for i, df := range w.DataFiles {
		name := CleanName(df)
		if seen[name] {
			return errors.New(errors.ErrCodeInvalidInput, "two data files are named %s", name)
		}
		seen[name] = true
		t, err := table.ReadCSV(df, opts.Read)
		if err != nil {
			return err
		}
		tables[i] = t
		w.Log.Debug("loaded data file", "path", df, "rows", t.Len(), "columns", len(t.Columns))
	}

	tables, err := opts.Prepare.apply(tables)
	if err != nil {
		return err
	}
	for i, df := range w.DataFiles {
		w.Data[CleanName(df)] = tables[i]
	}

	if opts.ParamFile == "" {
		return nil
	}
	p, err := params.Load(opts.ParamFile, w.Script, opts.Ask)
	if err != nil {
		return err
	}
	w.Params = p
	w.Interactive = p.Interactive
	w.Log.Debug("read parameters", "file", opts.ParamFile, "runs", len(p.Runs))
	return nil
}

// Close flushes and closes the log file.
func (w *Workflow) Close() error {
	if w.logFile == nil {
		return nil
	}
	err := w.logFile.Close()
	w.logFile = nil
	return err
}

// runs returns the parameter runs, or nil when the workflow has none.
func (w *Workflow) runs() []params.Run {
	if w.Params == nil {
		return nil
	}
	return w.Params.Runs
}

// Dataset is one data file paired with at most one run.
type Dataset struct {
	Path string
	// ID joins the script, the data name, and the run name with underscores.
	ID  string
	Run *params.Run
}

// SingleDatasets pairs every data file with every run, runs outermost.
// Without runs there is one Dataset per data file.
func (w *Workflow) SingleDatasets() []Dataset {
	runs := w.runs()
	if len(runs) == 0 {
		out := make([]Dataset, len(w.DataFiles))
		for i, df := range w.DataFiles {
			out[i] = Dataset{Path: df, ID: joinID(w.Script, CleanName(df))}
		}
		return out
	}

	out := make([]Dataset, 0, len(runs)*len(w.DataFiles))
	for i := range runs {
		for _, df := range w.DataFiles {
			out = append(out, Dataset{
				Path: df,
				ID:   joinID(w.Script, CleanName(df), runs[i].Name),
				Run:  &runs[i],
			})
		}
	}
	return out
}

// Batch is every data file together, paired with at most one run.
type Batch struct {
	Paths []string
	ID    string
	Run   *params.Run
}

// AllDatasets returns one Batch per run, or a single Batch without runs.
func (w *Workflow) AllDatasets() []Batch {
	names := make([]string, len(w.DataFiles))
	for i, df := range w.DataFiles {
		names[i] = CleanName(df)
	}
	base := append([]string{w.Script}, names...)

	runs := w.runs()
	if len(runs) == 0 {
		w.Log.Debug("no params")
		return []Batch{{Paths: w.DataFiles, ID: joinID(base...)}}
	}

	w.Log.Debug("multiple params", "runs", len(runs))
	out := make([]Batch, len(runs))
	for i := range runs {
		out[i] = Batch{
			Paths: w.DataFiles,
			ID:    joinID(append(base, runs[i].Name)...),
			Run:   &runs[i],
		}
	}
	return out
}

// CleanName returns the base name of path without its extension.
func CleanName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func joinID(parts ...string) string {
	return strings.Join(parts, "_")
}
