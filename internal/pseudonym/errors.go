package pseudonym

import "errors"

var (
	// ErrInvalidInput is returned for an empty or malformed value or an
	// unknown value type. It indicates a caller bug and is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStore is returned when the mapping store fails or times out.
	// Callers decide whether to redact, abort, or retry.
	ErrStore = errors.New("mapping store error")

	// ErrSlotsExhausted is returned (wrapped in ErrStore) when every
	// disambiguated candidate for a value is already taken.
	ErrSlotsExhausted = errors.New("no free pseudonym slot")
)
