// Package table loads, reshapes, and writes tabular ecological survey data.
//
// A [Table] keeps every cell as a string, the way it was read, and converts
// columns on demand with [Table.Floats]. Missing cells are stored as the empty
// string. Header names are normalised on read with [FormatHeaders], so
// "Species Name" and "species_name" address the same column.
//
// Every function takes explicit paths. Nothing is resolved relative to the
// working directory.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// Table is a header row plus string cells. All rows have len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Append adds a row. The row must have one cell per column.
func (t *Table) Append(row ...string) error {
	if len(row) != len(t.Columns) {
		return errors.New(errors.ErrCodeInvalidFormat,
			"row has %d cells, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]string(nil), row...))
	return nil
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]string, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no column %q", name)
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats parses the named column. Missing cells become NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for r, s := range col {
		if s == "" {
			out[r] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err,
				"column %s row %d is not numeric", name, r)
		}
		out[r] = v
	}
	return out, nil
}

// Filter returns a new table holding the rows keep accepts.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := New(t.Columns...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	return t.Filter(func([]string) bool { return true })
}

// ReadOptions controls ReadCSV.
type ReadOptions struct {
	// Delimiter separates fields. Zero means ','.
	Delimiter rune
	// Names, when set, are the column names and the file has no header row.
	Names []string
	// Missing is the token that marks a missing value, e.g. "NA".
	// Empty cells are always missing.
	Missing string
}

// ReadCSV loads a delimited file.
func ReadCSV(path string, opts ReadOptions) (*Table, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "data file %s not found", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Read loads delimited records from r.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed delimited data")
	}

	var t *Table
	switch {
	case len(opts.Names) > 0:
		t = New(opts.Names...)
	case len(records) == 0:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "no header row")
	default:
		t = New(FormatHeaders(records[0])...)
		records = records[1:]
	}

	for i, rec := range records {
		if len(rec) != len(t.Columns) {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"record %d has %d fields, want %d", i+1, len(rec), len(t.Columns))
		}
		row := make([]string, len(rec))
		for j, cell := range rec {
			cell = strings.TrimSpace(cell)
			if opts.Missing != "" && cell == opts.Missing {
				cell = ""
			}
			row[j] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes t as comma-separated values. Any extension on path is
// replaced with .csv; the written path is returned.
func WriteCSV(path string, t *Table) (string, error) {
	if err := errors.ValidatePath(path); err != nil {
		return "", err
	}
	path = strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// Write writes t as comma-separated values with a header row.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
