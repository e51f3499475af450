package store

import "context"

// Store defines the persistence contract for pseudonym mappings.
//
// Both (pseudonym, value_type) and (original_value, value_type) are unique.
// Implementations enforce that inside the backend itself, so several engine
// processes can share one store without coordinating.
type Store interface {
	// Namespace metadata
	GetMeta(ctx context.Context) (*NamespaceMeta, error)
	SetMeta(ctx context.Context, meta *NamespaceMeta) error

	// Mappings
	PutIfAbsent(ctx context.Context, m *Mapping) (bool, error)
	GetByPseudonym(ctx context.Context, pseudonym, valueType string) (*Mapping, error)
	GetByOriginal(ctx context.Context, original, valueType string) (*Mapping, error)
	CountByType(ctx context.Context) (map[string]int64, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
