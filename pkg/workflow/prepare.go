package workflow

import (
	"strconv"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/table"
)

// Columns added to merged tables.
const (
	SourceColumn     = "source"
	SourceCodeColumn = "source_code"
)

// Prepare reshapes data files after loading. The zero value leaves them as read.
type Prepare struct {
	// DenseSpecies > 0 marks the files as dense: DenseSpecies per-species
	// count columns starting at index DenseStart, turned into one row per
	// record and species with the count in CountColumn.
	DenseStart   int
	DenseSpecies int
	CountColumn  string

	// DropMissing removes rows with a missing value in any of these columns.
	DropMissing []string

	// Grid relabels integer cell columns as physical coordinates.
	Grid []GridColumn
}

// GridColumn maps the distinct cell labels of Name onto 0, Step, … below Width.
type GridColumn struct {
	Name  string
	Width float64
	Step  float64
}

func (p Prepare) apply(tables []*table.Table) ([]*table.Table, error) {
	var err error
	if p.DenseSpecies > 0 {
		if tables, err = table.FormatDense(tables, p.DenseStart, []int{p.DenseSpecies}, p.CountColumn); err != nil {
			return nil, err
		}
	}
	if len(p.DropMissing) > 0 {
		for i, t := range tables {
			if tables[i], err = table.DropMissing(t, table.FormatHeaders(p.DropMissing)...); err != nil {
				return nil, err
			}
		}
	}
	if len(p.Grid) > 0 {
		cols := make([]string, len(p.Grid))
		widths := make([]float64, len(p.Grid))
		steps := make([]float64, len(p.Grid))
		for i, g := range p.Grid {
			cols[i], widths[i], steps[i] = g.Name, g.Width, g.Step
		}
		if tables, err = table.Fractionate(tables, widths, steps, cols, nil); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// Table returns the prepared table of one data file.
func (w *Workflow) Table(path string) (*table.Table, error) {
	t, ok := w.Data[CleanName(path)]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "data file %s is not part of this workflow", path)
	}
	return t, nil
}

// Merged stacks the tables of a batch into one. Each row is tagged with its
// data file in SourceColumn and with the file's position in SourceCodeColumn.
func (w *Workflow) Merged(b Batch) (*table.Table, error) {
	tables := make([]*table.Table, len(b.Paths))
	names := make([]string, len(b.Paths))
	for i, p := range b.Paths {
		t, err := w.Table(p)
		if err != nil {
			return nil, err
		}
		tables[i], names[i] = t, CleanName(p)
	}

	tagged, err := table.AddFields(tables, map[string][]string{SourceColumn: names})
	if err != nil {
		return nil, err
	}
	merged, err := table.Merge(tagged)
	if err != nil {
		return nil, err
	}

	sources, err := merged.Column(SourceColumn)
	if err != nil {
		return nil, err
	}
	codes := make([]float64, len(names))
	for i := range codes {
		codes[i] = float64(i)
	}
	coded, err := table.CreateIntCodes(sources, names, codes)
	if err != nil {
		return nil, err
	}

	out := table.New(append(merged.Columns, SourceCodeColumn)...)
	for r, row := range merged.Rows {
		if err := out.Append(append(row, formatCode(coded[r]))...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formatCode(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
