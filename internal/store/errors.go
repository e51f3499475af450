package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store operations.
var (
	ErrNotFound        = errors.New("not found")
	ErrMappingNotFound = fmt.Errorf("mapping %w", ErrNotFound)
	ErrMetaNotFound    = fmt.Errorf("namespace meta %w", ErrNotFound)

	// ErrPseudonymTaken is returned by PutIfAbsent when the pseudonym is
	// already mapped to a different original value of the same type.
	ErrPseudonymTaken = errors.New("pseudonym already in use")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
)
