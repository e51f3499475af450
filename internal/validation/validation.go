// Package validation provides input validation functions.
package validation

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

// MaxValueLength is the longest original value or pseudonym accepted, in bytes.
const MaxValueLength = 4096

var (
	// ErrValueEmpty is returned when an original value is empty.
	ErrValueEmpty = errors.New("value is required")
	// ErrValueTooLong is returned when a value exceeds MaxValueLength bytes.
	ErrValueTooLong = errors.New("value must be at most 4096 bytes")
	// ErrValueInvalidUTF8 is returned when a value is not valid UTF-8.
	ErrValueInvalidUTF8 = errors.New("value must be valid UTF-8")

	// ErrPseudonymEmpty is returned when a pseudonym is empty.
	ErrPseudonymEmpty = errors.New("pseudonym is required")

	// ErrFieldNameEmpty is returned when a field name is empty.
	ErrFieldNameEmpty = errors.New("field name is required")
	// ErrFieldNameInvalid is returned when a field name has unexpected characters.
	ErrFieldNameInvalid = errors.New("field name can only contain letters, numbers, underscores, dots, and hyphens")
)

var fieldNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// OriginalValue validates a value about to be pseudonymized.
// Rules: 1-4096 bytes of valid UTF-8. Whitespace is significant and kept.
func OriginalValue(v string) error {
	if v == "" {
		return ErrValueEmpty
	}
	if len(v) > MaxValueLength {
		return ErrValueTooLong
	}
	if !utf8.ValidString(v) {
		return ErrValueInvalidUTF8
	}
	return nil
}

// Pseudonym validates a pseudonym about to be looked up.
func Pseudonym(p string) error {
	if p == "" {
		return ErrPseudonymEmpty
	}
	if len(p) > MaxValueLength {
		return ErrValueTooLong
	}
	return nil
}

// FieldName validates a record field name given on the command line.
func FieldName(name string) error {
	if name == "" {
		return ErrFieldNameEmpty
	}
	if !fieldNameRegex.MatchString(name) {
		return ErrFieldNameInvalid
	}
	return nil
}
