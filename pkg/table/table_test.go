package table

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/macroeco/pkg/errors"
)

func TestFormatHeaders(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"lower and underscore", []string{" Species Name ", "Count"}, []string{"species_name", "count"}},
		{"punctuation", []string{"dbh (cm)", "x-coord", "y.coord"}, []string{"dbh_cm", "xcoord", "ycoord"}},
		{"blank", []string{"a", "", "  "}, []string{"a", "column1", "column2"}},
		{"reserved", []string{"return", "file", "print"}, []string{"return_", "file_", "print_"}},
		{"duplicates", []string{"x", "X", "x"}, []string{"x", "x_1", "x_2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatHeaders(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FormatHeaders(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatKeys(t *testing.T) {
	got := FormatKeys(map[string]int{"Plot Size": 1, "Cell-Width": 2})
	want := map[string]int{"plot_size": 1, "cellwidth": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FormatKeys = %v, want %v", got, want)
	}
}

func TestRead(t *testing.T) {
	in := "Cell, Species Name ,Count\n1,acacia,3\n2,NA,5\n3,ficus,\n"
	tbl, err := Read(strings.NewReader(in), ReadOptions{Missing: "NA"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := []string{"cell", "species_name", "count"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %q, want %q", tbl.Columns, want)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tbl.Len())
	}
	if tbl.Rows[1][1] != "" {
		t.Errorf("missing token should read as empty, got %q", tbl.Rows[1][1])
	}

	counts, err := tbl.Floats("count")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if counts[0] != 3 || counts[1] != 5 || !math.IsNaN(counts[2]) {
		t.Errorf("Floats = %v", counts)
	}

	if _, err := tbl.Floats("species_name"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("non-numeric column: err = %v", err)
	}
	if _, err := tbl.Column("nope"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing column: err = %v", err)
	}
}

func TestReadOptions(t *testing.T) {
	tbl, err := Read(strings.NewReader("1;2\n3;4\n"), ReadOptions{Delimiter: ';', Names: []string{"x", "y"}})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tbl.Len() != 2 || tbl.Rows[1][1] != "4" {
		t.Errorf("named read = %v", tbl.Rows)
	}

	if _, err := Read(strings.NewReader("a,b\n1\n"), ReadOptions{}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ragged record: err = %v", err)
	}
	if _, err := Read(strings.NewReader(""), ReadOptions{}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("empty input: err = %v", err)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := New("spp", "count")
	if err := tbl.Append("acacia", "3"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Append("only one"); err == nil {
		t.Error("Append with wrong arity should fail")
	}

	path, err := WriteCSV(filepath.Join(dir, "out.txt"), tbl)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if filepath.Ext(path) != ".csv" {
		t.Errorf("WriteCSV path = %s, want .csv extension", path)
	}

	back, err := ReadCSV(path, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !reflect.DeepEqual(back, tbl) {
		t.Errorf("round trip = %+v, want %+v", back, tbl)
	}

	if _, err := ReadCSV(filepath.Join(dir, "missing.csv"), ReadOptions{}); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestGetFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "BCIS")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"BCIS_1995.csv", "BCIS_1985.csv", "BCIS_notes.txt", "BCIS_19851.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := GetFiles(dir, "", "", "csv", 2)
	if err != nil {
		t.Fatalf("GetFiles: %v", err)
	}
	want := []string{filepath.Join(dir, "BCIS_1985.csv"), filepath.Join(dir, "BCIS_1995.csv")}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("GetFiles = %q, want %q", files, want)
	}

	if _, err := GetFiles(dir, "", "", "csv", 3); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("wrong count: err = %v", err)
	}
}

func TestBroadcast(t *testing.T) {
	got, err := Broadcast(3, []int{7})
	if err != nil || !reflect.DeepEqual(got, []int{7, 7, 7}) {
		t.Errorf("Broadcast single = %v, %v", got, err)
	}
	got, err = Broadcast(2, []int{1, 2})
	if err != nil || !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Broadcast exact = %v, %v", got, err)
	}
	if _, err := Broadcast(3, []int{1, 2}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Broadcast mismatch: err = %v", err)
	}
}

func TestFormatDense(t *testing.T) {
	dense := &Table{
		Columns: []string{"cell", "acacia", "ficus", "year"},
		Rows: [][]string{
			{"1", "2", "0", "1984"},
			{"2", "1", "4", "1984"},
		},
	}

	out, err := FormatDense([]*Table{dense}, 1, []int{2}, "")
	if err != nil {
		t.Fatalf("FormatDense: %v", err)
	}
	got := out[0]
	if want := []string{"cell", "year", "spp", "count"}; !reflect.DeepEqual(got.Columns, want) {
		t.Errorf("Columns = %q, want %q", got.Columns, want)
	}
	want := [][]string{
		{"1", "1984", "acacia", "2"},
		{"2", "1984", "acacia", "1"},
		{"2", "1984", "ficus", "4"},
	}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("Rows = %q, want %q", got.Rows, want)
	}

	if _, err := FormatDense([]*Table{dense}, 3, []int{2}, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("out of range species columns: err = %v", err)
	}
	if _, err := FormatDense([]*Table{dense, dense}, 1, []int{1, 1, 1}, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("numSpp length mismatch: err = %v", err)
	}
}

func TestDropMissing(t *testing.T) {
	tbl := &Table{
		Columns: []string{"gx", "gy", "spp"},
		Rows: [][]string{
			{"1", "2", "a"},
			{"", "2", "b"},
			{"3", "NaN", "c"},
			{"4", "5", ""},
		},
	}
	got, err := DropMissing(tbl, "gx", "gy")
	if err != nil {
		t.Fatalf("DropMissing: %v", err)
	}
	if got.Len() != 2 || got.Rows[0][2] != "a" || got.Rows[1][0] != "4" {
		t.Errorf("DropMissing rows = %q", got.Rows)
	}
	if tbl.Len() != 4 {
		t.Error("DropMissing must not modify its input")
	}
	if _, err := DropMissing(tbl, "gz"); err == nil {
		t.Error("unknown column should fail")
	}
}

func TestCreateIntCodes(t *testing.T) {
	got, err := CreateIntCodes([]string{"b", "a", "b"}, []string{"a", "b"}, []float64{10, 20})
	if err != nil {
		t.Fatalf("CreateIntCodes: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{20, 10, 20}) {
		t.Errorf("CreateIntCodes = %v", got)
	}

	tests := []struct {
		name   string
		values []string
		unique []string
		codes  []float64
	}{
		{"empty", nil, []string{"a"}, []float64{1}},
		{"length mismatch", []string{"a"}, []string{"a", "b"}, []float64{1}},
		{"unknown value", []string{"c"}, []string{"a"}, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CreateIntCodes(tt.values, tt.unique, tt.codes); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestFractionate(t *testing.T) {
	tbl := &Table{
		Columns: []string{"x", "y", "spp"},
		Rows: [][]string{
			{"1", "1", "a"},
			{"2", "3", "b"},
			{"4", "2", "c"},
		},
	}

	// Four cells of 0.5 m across a 2 m plot; labels 1..4 map onto 0, 0.5, 1, 1.5.
	spec := &GridSpec{Min: []float64{1, 1}, Max: []float64{4, 4}, Step: []float64{1, 1}}
	out, err := Fractionate([]*Table{tbl}, []float64{2, 2}, []float64{0.5, 0.5}, []string{"X", "y"}, spec)
	if err != nil {
		t.Fatalf("Fractionate: %v", err)
	}
	xs, _ := out[0].Floats("x")
	ys, _ := out[0].Floats("y")
	if !reflect.DeepEqual(xs, []float64{0, 0.5, 1.5}) {
		t.Errorf("x = %v", xs)
	}
	if !reflect.DeepEqual(ys, []float64{0, 1, 0.5}) {
		t.Errorf("y = %v", ys)
	}
	if tbl.Rows[0][0] != "1" {
		t.Error("Fractionate must not modify its input")
	}

	// Without a spec the distinct values present are the labels: x has 1, 2, 4.
	out, err = Fractionate([]*Table{tbl}, []float64{3}, []float64{1}, []string{"x"}, nil)
	if err != nil {
		t.Fatalf("Fractionate distinct: %v", err)
	}
	xs, _ = out[0].Floats("x")
	if !reflect.DeepEqual(xs, []float64{0, 1, 2}) {
		t.Errorf("distinct x = %v", xs)
	}

	if _, err := Fractionate([]*Table{tbl}, []float64{2}, []float64{0.5}, []string{"x"}, nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("label count mismatch: err = %v", err)
	}
}

func TestAddFieldsAndMerge(t *testing.T) {
	a := &Table{Columns: []string{"spp"}, Rows: [][]string{{"x"}}}
	b := &Table{Columns: []string{"spp"}, Rows: [][]string{{"y"}, {"z"}}}

	added, err := AddFields([]*Table{a, b}, map[string][]string{
		"year": {"1984", "1985"},
		"site": {"BCIS"},
	})
	if err != nil {
		t.Fatalf("AddFields: %v", err)
	}
	if want := []string{"site", "year", "spp"}; !reflect.DeepEqual(added[1].Columns, want) {
		t.Errorf("Columns = %q, want %q", added[1].Columns, want)
	}
	if want := []string{"BCIS", "1985", "z"}; !reflect.DeepEqual(added[1].Rows[1], want) {
		t.Errorf("row = %q, want %q", added[1].Rows[1], want)
	}

	merged, err := Merge(added)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Len() != 3 || merged.Rows[0][1] != "1984" {
		t.Errorf("merged rows = %q", merged.Rows)
	}

	if _, err := AddFields([]*Table{a, b}, map[string][]string{"year": {"1", "2", "3"}}); err == nil {
		t.Error("unbroadcastable field should fail")
	}
	if _, err := Merge([]*Table{a, added[0]}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("mismatched columns: err = %v", err)
	}
	if _, err := Merge(nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty merge: err = %v", err)
	}
}

func TestAbundances(t *testing.T) {
	tbl := &Table{
		Columns: []string{"spp", "count"},
		Rows: [][]string{
			{"ficus", "2"},
			{"acacia", "1"},
			{"ficus", "3"},
			{"piper", "0"},
		},
	}
	got, err := Abundances(tbl, "spp", "count")
	if err != nil {
		t.Fatalf("Abundances: %v", err)
	}
	want := Abundance{Species: []string{"ficus", "acacia"}, Counts: []int{5, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Abundances = %+v, want %+v", got, want)
	}
	if got.Total() != 6 {
		t.Errorf("Total = %d, want 6", got.Total())
	}

	perRow, err := Abundances(tbl, "spp", "")
	if err != nil {
		t.Fatalf("Abundances per row: %v", err)
	}
	if !reflect.DeepEqual(perRow.Counts, []int{2, 1, 1}) {
		t.Errorf("per-row counts = %v", perRow.Counts)
	}

	tbl.Rows[1][1] = "1.5"
	if _, err := Abundances(tbl, "spp", "count"); !errors.Is(err, errors.ErrCodeInvalidSample) {
		t.Errorf("fractional count: err = %v", err)
	}
}
