// Package params loads named parameter sets ("runs") for an analysis script.
//
// A parameter file lists analyses by script name; each analysis holds one or
// more runs, and each run is a set of name/value pairs. The format follows the
// file extension:
//
//	.xml         legacy layout, <analysis scriptname="…"><run name="…"><param name="…" value="…"/>
//	.toml        [[analysis]] tables with [[analysis.run]] entries
//	.yaml, .yml  the same structure as TOML
//
// Runs without a name are called autoname0, autoname1, … in file order.
package params

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/mete"
)

// DefaultFile is the parameter file name used when none is given.
const DefaultFile = "parameters.xml"

// Parameters are the runs recorded for one script.
type Parameters struct {
	Script      string
	Interactive bool
	Runs        []Run
}

// Run is one named parameter set.
type Run struct {
	Name   string
	Values map[string]string
}

// Load reads the runs recorded for script from path and checks them against
// ask, a map of required parameter name to a short hint. Every run must
// define every asked-for parameter.
func Load(path, script string, ask map[string]string) (*Parameters, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "parameter file %s not found", path)
	}
	if err != nil {
		return nil, err
	}

	var doc document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		doc, err = decodeXML(data)
	case ".toml":
		doc, err = decodeTOML(data)
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported parameter file type %q", ext)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
	}

	p := doc.parameters(script)
	if missing := p.Missing(ask); len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeParamsMissing,
			"parameters missing from %s: %s", path, formatMissing(missing))
	}
	return p, nil
}

// Missing returns, per run, the asked-for parameters the run does not define.
// A script with no runs at all is reported under the empty run name.
func (p *Parameters) Missing(ask map[string]string) map[string][]string {
	if len(ask) == 0 {
		return nil
	}
	names := make([]string, 0, len(ask))
	for name := range ask {
		names = append(names, name)
	}
	sort.Strings(names)

	missing := make(map[string][]string)
	if len(p.Runs) == 0 {
		missing[""] = names
		return missing
	}
	for _, r := range p.Runs {
		for _, name := range names {
			if _, ok := r.Values[name]; !ok {
				missing[r.Name] = append(missing[r.Name], name)
			}
		}
	}
	return missing
}

// Fulfilled reports whether every run defines every asked-for parameter.
func (p *Parameters) Fulfilled(ask map[string]string) bool {
	return len(p.Missing(ask)) == 0
}

// Run returns the run with the given name.
func (p *Parameters) Run(name string) (Run, bool) {
	for _, r := range p.Runs {
		if r.Name == name {
			return r, true
		}
	}
	return Run{}, false
}

func formatMissing(missing map[string][]string) string {
	runs := make([]string, 0, len(missing))
	for r := range missing {
		runs = append(runs, r)
	}
	sort.Strings(runs)

	parts := make([]string, len(runs))
	for i, r := range runs {
		name := r
		if name == "" {
			name = "(no runs)"
		}
		parts[i] = name + " [" + strings.Join(missing[r], ", ") + "]"
	}
	return strings.Join(parts, "; ")
}

// String returns the raw value of name.
func (r Run) String(name string) (string, error) {
	v, ok := r.Values[name]
	if !ok {
		return "", errors.New(errors.ErrCodeParamsMissing, "run %s has no parameter %q", r.Name, name)
	}
	return v, nil
}

// Float parses name as a float.
func (r Run) Float(name string) (float64, error) {
	s, err := r.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "run %s: %s is not a number", r.Name, name)
	}
	return v, nil
}

// Int parses name as an integer. Whole-valued floats such as "20.0" are accepted.
func (r Run) Int(name string) (int, error) {
	f, err := r.Float(name)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, errors.New(errors.ErrCodeInvalidFormat, "run %s: %s=%g is not an integer", r.Name, name, f)
	}
	return int(f), nil
}

// Community reads the S, N and E parameters. The result is not validated.
func (r Run) Community() (mete.Community, error) {
	s, err := r.Int("S")
	if err != nil {
		return mete.Community{}, err
	}
	n, err := r.Int("N")
	if err != nil {
		return mete.Community{}, err
	}
	e, err := r.Float("E")
	if err != nil {
		return mete.Community{}, err
	}
	return mete.Community{S: s, N: n, E: e}, nil
}

// CommunityAsk is the ask list for parameter files that describe communities.
var CommunityAsk = map[string]string{
	"S": "species count, an integer above 1",
	"N": "individual count, an integer above S",
	"E": "total energy, a number above N",
}
