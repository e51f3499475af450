package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/abdul-hamid-achik/tinymask/internal/database"
)

const (
	constraintPseudonym = "pseudonym_mappings_pseudonym_key"
	constraintOriginal  = "pseudonym_mappings_original_key"

	pgUniqueViolation = "23505"
)

// schemaStatements bootstrap the mapping tables. Both uniqueness rules live
// in the schema so concurrent writers from separate processes are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pseudonym_mappings (
		pseudonym      TEXT        NOT NULL,
		original_value TEXT        NOT NULL,
		value_type     TEXT        NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT ` + constraintPseudonym + ` UNIQUE (pseudonym, value_type),
		CONSTRAINT ` + constraintOriginal + ` UNIQUE (original_value, value_type)
	)`,
	`CREATE TABLE IF NOT EXISTS pseudonym_meta (
		id              SMALLINT    PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		version         INTEGER     NOT NULL,
		namespace_id    TEXT        NOT NULL,
		key_fingerprint TEXT        NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
}

// PostgresStore implements Store on a PostgreSQL table.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore bootstraps the schema if absent and returns a store that
// owns db. Closing the store closes the pool.
func NewPostgresStore(ctx context.Context, db *database.DB) (*PostgresStore, error) {
	err := db.Transaction(ctx, func(tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the underlying pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// Ping verifies the database connection is still alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetMeta returns the namespace metadata, or ErrMetaNotFound if not set.
func (s *PostgresStore) GetMeta(ctx context.Context) (*NamespaceMeta, error) {
	var meta NamespaceMeta
	err := s.db.Pool.QueryRow(ctx,
		`SELECT version, namespace_id, key_fingerprint, created_at FROM pseudonym_meta WHERE id = 1`,
	).Scan(&meta.Version, &meta.NamespaceID, &meta.KeyFingerprint, &meta.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMetaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}
	return &meta, nil
}

// SetMeta stores the namespace metadata.
func (s *PostgresStore) SetMeta(ctx context.Context, meta *NamespaceMeta) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO pseudonym_meta (id, version, namespace_id, key_fingerprint, created_at)
		 VALUES (1, $1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			namespace_id = EXCLUDED.namespace_id,
			key_fingerprint = EXCLUDED.key_fingerprint,
			created_at = EXCLUDED.created_at`,
		meta.Version, meta.NamespaceID, meta.KeyFingerprint, meta.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("set meta: %w", err)
	}
	return nil
}

// PutIfAbsent inserts a mapping. A conflict on the original-value constraint
// means another writer got there first and yields (false, nil); a conflict on
// the pseudonym constraint yields ErrPseudonymTaken.
func (s *PostgresStore) PutIfAbsent(ctx context.Context, m *Mapping) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx,
		`INSERT INTO pseudonym_mappings (pseudonym, original_value, value_type, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT ON CONSTRAINT `+constraintOriginal+` DO NOTHING`,
		m.Pseudonym, m.Original, m.ValueType, m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraintPseudonym {
			return false, ErrPseudonymTaken
		}
		return false, fmt.Errorf("insert mapping: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByPseudonym retrieves a mapping by pseudonym and value type.
func (s *PostgresStore) GetByPseudonym(ctx context.Context, pseudonym, valueType string) (*Mapping, error) {
	return s.getOne(ctx,
		`SELECT pseudonym, original_value, value_type, created_at
		 FROM pseudonym_mappings WHERE pseudonym = $1 AND value_type = $2`,
		pseudonym, valueType)
}

// GetByOriginal retrieves a mapping by original value and value type.
func (s *PostgresStore) GetByOriginal(ctx context.Context, original, valueType string) (*Mapping, error) {
	return s.getOne(ctx,
		`SELECT pseudonym, original_value, value_type, created_at
		 FROM pseudonym_mappings WHERE original_value = $1 AND value_type = $2`,
		original, valueType)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, args ...any) (*Mapping, error) {
	var m Mapping
	err := s.db.Pool.QueryRow(ctx, query, args...).Scan(&m.Pseudonym, &m.Original, &m.ValueType, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return &m, nil
}

// CountByType returns the number of mappings per value type.
func (s *PostgresStore) CountByType(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT value_type, COUNT(*) FROM pseudonym_mappings GROUP BY value_type`)
	if err != nil {
		return nil, fmt.Errorf("count mappings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			valueType string
			n         int64
		)
		if err := rows.Scan(&valueType, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[valueType] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count mappings: %w", err)
	}
	return counts, nil
}
