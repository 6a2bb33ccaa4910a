package table

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// reserved header names get a trailing underscore.
var reserved = map[string]string{
	"return": "return_",
	"file":   "file_",
	"print":  "print_",
}

const deletedHeaderChars = "~!@#$%^&*()-=+\\|]}[{';: /?.>,<\""

// FormatHeaders normalises column names: trimmed, lower-cased, spaces turned
// into underscores, punctuation removed. Blank names become "columnN" (N is
// the position), and repeats get "_1", "_2", … suffixes.
func FormatHeaders(headers []string) []string {
	names := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		h = strings.Map(func(r rune) rune {
			if strings.ContainsRune(deletedHeaderChars, r) {
				return -1
			}
			return r
		}, h)
		if h == "" {
			h = fmt.Sprintf("column%d", i)
		}
		if r, ok := reserved[h]; ok {
			h = r
		}
		if n := seen[h]; n > 0 {
			names[i] = fmt.Sprintf("%s_%d", h, n)
		} else {
			names[i] = h
		}
		seen[h]++
	}
	return names
}

// FormatKeys returns m with its keys normalised by FormatHeaders. Keys are
// formatted in sorted order, so colliding keys get deterministic suffixes.
func FormatKeys[V any](m map[string]V) map[string]V {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]V, len(m))
	for i, k := range FormatHeaders(keys) {
		out[k] = m[keys[i]]
	}
	return out
}

// DefaultGlob matches the year-suffixed files of an archival directory.
const DefaultGlob = "_????"

// GetFiles returns the files in dir matching prefix+glob+"."+ext, sorted.
// An empty prefix means the directory's base name, so BCIS/ yields
// BCIS_1984.csv and friends. Exactly num files must match.
func GetFiles(dir, prefix, glob, ext string, num int) ([]string, error) {
	if err := errors.ValidatePath(dir); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = filepath.Base(filepath.Clean(dir))
	}
	if glob == "" {
		glob = DefaultGlob
	}
	pattern := filepath.Join(dir, prefix+glob+"."+strings.TrimPrefix(ext, "."))

	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad file pattern %s", pattern)
	}
	if len(files) != num {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			"want exactly %d files matching %s, found %d", num, pattern, len(files))
	}
	sort.Strings(files)
	return files, nil
}
