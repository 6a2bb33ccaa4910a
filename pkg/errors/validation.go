package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// runNameRegex matches run names usable inside output identifiers.
var runNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateRunName validates a parameter-set run name.
// Run names become part of output identifiers and file names, so the rules are
// conservative:
//   - No empty names
//   - Maximum length of 128 characters
//   - Letters, digits, '.', '_' and '-' only, starting with a letter or digit
func ValidateRunName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "run name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "run name too long (max 128 characters)")
	}

	if !runNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid run name: %q", name)
	}

	return nil
}

// ValidatePath validates a data or output file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}
