// Package pseudonym implements deterministic, reversible pseudonymization
// of sensitive values backed by a durable mapping store.
package pseudonym

import (
	"fmt"
	"strings"
)

// ValueType is the semantic category of a sensitive value. Each type has its
// own pseudonym format and its own mapping namespace.
type ValueType string

// Supported value types.
const (
	TypeHostname ValueType = "hostname"
	TypeUsername ValueType = "username"
	TypeIP       ValueType = "ip"
	TypeEmail    ValueType = "email"
	TypeGeneric  ValueType = "generic"
)

// fallbackOrder is the fixed priority used when a deanonymize lookup misses
// under its hinted type.
var fallbackOrder = []ValueType{TypeHostname, TypeUsername, TypeIP, TypeEmail, TypeGeneric}

// ValueTypes returns every supported value type in fallback priority order.
func ValueTypes() []ValueType {
	out := make([]ValueType, len(fallbackOrder))
	copy(out, fallbackOrder)
	return out
}

// Valid reports whether t is one of the supported value types.
func (t ValueType) Valid() bool {
	for _, v := range fallbackOrder {
		if t == v {
			return true
		}
	}
	return false
}

func (t ValueType) String() string { return string(t) }

// ParseValueType parses a case-insensitive value type name.
func ParseValueType(s string) (ValueType, error) {
	t := ValueType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, s)
	}
	return t, nil
}
