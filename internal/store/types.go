package store

import "time"

// NamespaceMeta describes the mapping namespace held by a store.
type NamespaceMeta struct {
	Version        int       `json:"version"`
	NamespaceID    string    `json:"namespace_id"`
	KeyFingerprint string    `json:"key_fingerprint"`
	CreatedAt      time.Time `json:"created_at"`
}

// Mapping associates an original value with its pseudonym within a value type.
// Mappings are never updated or deleted once written.
type Mapping struct {
	Pseudonym string    `json:"pseudonym"`
	Original  string    `json:"original_value"`
	ValueType string    `json:"value_type"`
	CreatedAt time.Time `json:"created_at"`
}
