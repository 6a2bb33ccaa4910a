package table

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// Column names produced by FormatDense.
const (
	SpeciesColumn = "spp"
	CountColumn   = "count"
)

// Broadcast stretches a single item to length. Slices that already have the
// requested length are returned unchanged; any other length is an error.
func Broadcast[T any](length int, items []T) ([]T, error) {
	switch {
	case len(items) == length:
		return items, nil
	case len(items) == 1:
		out := make([]T, length)
		for i := range out {
			out[i] = items[0]
		}
		return out, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput,
		"cannot broadcast %d items to length %d", len(items), length)
}

// FormatDense converts dense tables, with one count column per species, into
// columnar tables with one row per (record, species) pair.
//
// In table k the species columns are the numSpp[k] columns starting at index
// sppCol; numSpp may hold a single value for all tables. Every other column is
// carried through, followed by "spp" (the species column's name) and countCol
// (its value). Rows with a zero count are dropped.
func FormatDense(tables []*Table, sppCol int, numSpp []int, countCol string) ([]*Table, error) {
	if countCol == "" {
		countCol = CountColumn
	}
	numSpp, err := Broadcast(len(tables), numSpp)
	if err != nil {
		return nil, err
	}

	out := make([]*Table, len(tables))
	for k, t := range tables {
		end := sppCol + numSpp[k]
		if sppCol < 0 || numSpp[k] < 1 || end > len(t.Columns) {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"table %d: species columns [%d, %d) outside %d columns", k, sppCol, end, len(t.Columns))
		}
		species := t.Columns[sppCol:end]

		keep := make([]int, 0, len(t.Columns)-numSpp[k])
		for i := range t.Columns {
			if i < sppCol || i >= end {
				keep = append(keep, i)
			}
		}

		cols := make([]string, 0, len(keep)+2)
		for _, i := range keep {
			cols = append(cols, t.Columns[i])
		}
		formatted := New(append(cols, SpeciesColumn, countCol)...)

		for r, row := range t.Rows {
			for j, name := range species {
				cell := row[sppCol+j]
				count, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err,
						"table %d row %d: count for %s is not numeric", k, r, name)
				}
				if count == 0 {
					continue
				}
				rec := make([]string, 0, len(formatted.Columns))
				for _, i := range keep {
					rec = append(rec, row[i])
				}
				rec = append(rec, name, strconv.FormatFloat(count, 'g', -1, 64))
				formatted.Rows = append(formatted.Rows, rec)
			}
		}
		out[k] = formatted
	}
	return out, nil
}

// DropMissing returns t without the rows where any of cols is missing or NaN.
func DropMissing(t *Table, cols ...string) (*Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		if idx[i] = t.Index(c); idx[i] < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "no column %q", c)
		}
	}
	return t.Filter(func(row []string) bool {
		for _, i := range idx {
			if row[i] == "" {
				return false
			}
			if v, err := strconv.ParseFloat(row[i], 64); err == nil && math.IsNaN(v) {
				return false
			}
		}
		return true
	}), nil
}

// CreateIntCodes maps each value to codes[j] where unique[j] == value.
// Every value must appear in unique.
func CreateIntCodes[T comparable](values, unique []T, codes []float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no values to code")
	}
	if len(unique) != len(codes) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"%d unique values but %d codes", len(unique), len(codes))
	}
	lookup := make(map[T]float64, len(unique))
	for j, u := range unique {
		lookup[u] = codes[j]
	}
	out := make([]float64, len(values))
	for i, v := range values {
		c, ok := lookup[v]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "value %v has no code", v)
		}
		out[i] = c
	}
	return out, nil
}

// GridSpec describes the original cell labelling of fractionated columns.
// Each slice has one entry per column.
type GridSpec struct {
	Min  []float64
	Max  []float64
	Step []float64
}

// Fractionate relabels integer grid cells as physical coordinates. For column
// i the old labels are either the sorted distinct values present (old == nil)
// or Min[i], Min[i]+Step[i], …, Max[i]; they map in order onto
// 0, stepNew[i], … below widLenNew[i]. The two sequences must have equal length.
func Fractionate(tables []*Table, widLenNew, stepNew []float64, cols []string, old *GridSpec) ([]*Table, error) {
	if len(widLenNew) != len(cols) || len(stepNew) != len(cols) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"need one width and step per column, got %d widths, %d steps, %d columns",
			len(widLenNew), len(stepNew), len(cols))
	}
	if old != nil && (len(old.Min) != len(cols) || len(old.Max) != len(cols) || len(old.Step) != len(cols)) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "old grid spec must have one entry per column")
	}
	cols = FormatHeaders(cols)

	out := make([]*Table, len(tables))
	for k, t := range tables {
		t = t.Clone()
		for i, name := range cols {
			ci := t.Index(name)
			if ci < 0 {
				return nil, errors.New(errors.ErrCodeInvalidInput, "table %d has no column %q", k, name)
			}
			values, err := t.Floats(name)
			if err != nil {
				return nil, err
			}

			var labels []float64
			if old != nil {
				labels, err = arange(old.Min[i], old.Max[i]+old.Step[i], old.Step[i])
			} else {
				labels = distinct(values)
			}
			if err != nil {
				return nil, err
			}
			frac, err := arange(0, widLenNew[i], stepNew[i])
			if err != nil {
				return nil, err
			}
			if len(labels) != len(frac) {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"column %s: %d old labels but %d new cells", name, len(labels), len(frac))
			}

			for r, v := range values {
				j := nearest(labels, v)
				if j < 0 {
					return nil, errors.New(errors.ErrCodeInvalidInput,
						"column %s row %d: %g is not a grid label", name, r, v)
				}
				t.Rows[r][ci] = strconv.FormatFloat(frac[j], 'g', -1, 64)
			}
		}
		out[k] = t
	}
	return out, nil
}

// arange returns start, start+step, … strictly below stop.
func arange(start, stop, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(stop, 0) || math.IsNaN(start) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid range [%g, %g) step %g", start, stop, step)
	}
	n := int(math.Ceil((stop - start) / step))
	switch {
	case n <= 0:
		return nil, nil
	case n == 1:
		return []float64{start}, nil
	}
	return floats.Span(make([]float64, n), start, start+float64(n-1)*step), nil
}

func distinct(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	var out []float64
	for _, v := range values {
		if !math.IsNaN(v) && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// nearest returns the index of the label equal to v up to rounding, or -1.
func nearest(labels []float64, v float64) int {
	for j, l := range labels {
		if math.Abs(l-v) <= 1e-9*math.Max(1, math.Abs(l)) {
			return j
		}
	}
	return -1
}

// AddFields prepends constant-valued columns. fields maps a column name to one
// value per table, or a single value for all of them.
func AddFields(tables []*Table, fields map[string][]string) ([]*Table, error) {
	names := make([]string, 0, len(fields))
	values := make(map[string][]string, len(fields))
	for name, vals := range fields {
		b, err := Broadcast(len(tables), vals)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "field %s", name)
		}
		names = append(names, name)
		values[name] = b
	}
	sort.Strings(names)

	out := make([]*Table, len(tables))
	for k, t := range tables {
		added := New(append(append([]string(nil), names...), t.Columns...)...)
		for _, row := range t.Rows {
			rec := make([]string, 0, len(added.Columns))
			for _, name := range names {
				rec = append(rec, values[name][k])
			}
			added.Rows = append(added.Rows, append(rec, row...))
		}
		out[k] = added
	}
	return out, nil
}

// Merge concatenates tables that share the same columns in the same order.
func Merge(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to merge")
	}
	merged := tables[0].Clone()
	for k, t := range tables[1:] {
		if !equalColumns(merged.Columns, t.Columns) {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"column names of table %d do not match table 0", k+1)
		}
		for _, row := range t.Rows {
			merged.Rows = append(merged.Rows, append([]string(nil), row...))
		}
	}
	return merged, nil
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Abundance is a species-abundance sample: per-species individual counts in
// order of first appearance.
type Abundance struct {
	Species []string
	Counts  []int
}

// Total returns the number of individuals.
func (a Abundance) Total() int {
	n := 0
	for _, c := range a.Counts {
		n += c
	}
	return n
}

// Abundances totals countCol per value of sppCol. An empty countCol counts
// one individual per row. Counts must be non-negative whole numbers; species
// whose total is zero are left out.
func Abundances(t *Table, sppCol, countCol string) (Abundance, error) {
	species, err := t.Column(sppCol)
	if err != nil {
		return Abundance{}, err
	}
	counts := make([]float64, len(species))
	if countCol == "" {
		for i := range counts {
			counts[i] = 1
		}
	} else if counts, err = t.Floats(countCol); err != nil {
		return Abundance{}, err
	}

	totals := make(map[string]int)
	var order []string
	for i, name := range species {
		c := counts[i]
		if math.IsNaN(c) || c < 0 || c != math.Trunc(c) {
			return Abundance{}, errors.New(errors.ErrCodeInvalidSample,
				"row %d: count %v for %s is not a non-negative whole number", i, c, name)
		}
		if _, ok := totals[name]; !ok {
			order = append(order, name)
		}
		totals[name] += int(c)
	}

	var a Abundance
	for _, name := range order {
		if totals[name] > 0 {
			a.Species = append(a.Species, name)
			a.Counts = append(a.Counts, totals[name])
		}
	}
	return a, nil
}
