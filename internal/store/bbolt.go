package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names used in the bbolt database.
var (
	bucketMeta        = []byte("_meta")
	bucketByPseudonym = []byte("by_pseudonym")
	bucketByOriginal  = []byte("by_original")
)

const metaKey = "namespace_meta"

// keySep separates the value type from the value in composite keys. Value
// types never contain it, so the first occurrence is always the boundary.
const keySep = 0x00

// BoltStore implements Store using bbolt.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt database at the given path and
// ensures all required buckets exist. The file is created with 0600 permissions.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create all buckets if they do not exist.
	if err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{
			bucketMeta,
			bucketByPseudonym,
			bucketByOriginal,
		} {
			if _, bErr := tx.CreateBucketIfNotExists(b); bErr != nil {
				return fmt.Errorf("create bucket %s: %w", b, bErr)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is still open.
func (s *BoltStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketMeta) == nil {
			return fmt.Errorf("bucket %s missing", bucketMeta)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Namespace metadata
// ---------------------------------------------------------------------------

// GetMeta returns the namespace metadata, or ErrMetaNotFound if not set.
func (s *BoltStore) GetMeta(ctx context.Context) (*NamespaceMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var meta NamespaceMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get([]byte(metaKey))
		if v == nil {
			return ErrMetaNotFound
		}
		return json.Unmarshal(v, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// SetMeta stores the namespace metadata.
func (s *BoltStore) SetMeta(ctx context.Context, meta *NamespaceMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		return tx.Bucket(bucketMeta).Put([]byte(metaKey), data)
	})
}

// ---------------------------------------------------------------------------
// Mappings
// ---------------------------------------------------------------------------

// compositeKey builds "valueType\x00value".
func compositeKey(valueType, value string) []byte {
	k := make([]byte, 0, len(valueType)+1+len(value))
	k = append(k, valueType...)
	k = append(k, keySep)
	return append(k, value...)
}

// PutIfAbsent stores a new mapping. It returns false without writing when the
// original value already has a mapping of the same type, and ErrPseudonymTaken
// when the pseudonym belongs to a different original. Both checks and the
// writes happen in one bbolt write transaction.
func (s *BoltStore) PutIfAbsent(ctx context.Context, m *Mapping) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	inserted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		byOrig := tx.Bucket(bucketByOriginal)
		byPseud := tx.Bucket(bucketByPseudonym)

		origKey := compositeKey(m.ValueType, m.Original)
		if byOrig.Get(origKey) != nil {
			return nil
		}

		pseudKey := compositeKey(m.ValueType, m.Pseudonym)
		if byPseud.Get(pseudKey) != nil {
			return ErrPseudonymTaken
		}

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal mapping: %w", err)
		}
		if err := byPseud.Put(pseudKey, data); err != nil {
			return err
		}
		if err := byOrig.Put(origKey, []byte(m.Pseudonym)); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetByPseudonym retrieves a mapping by pseudonym and value type.
func (s *BoltStore) GetByPseudonym(ctx context.Context, pseudonym, valueType string) (*Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m Mapping
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketByPseudonym).Get(compositeKey(valueType, pseudonym))
		if v == nil {
			return ErrMappingNotFound
		}
		return json.Unmarshal(v, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByOriginal retrieves a mapping by original value and value type using
// the original-value index.
func (s *BoltStore) GetByOriginal(ctx context.Context, original, valueType string) (*Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m Mapping
	err := s.db.View(func(tx *bolt.Tx) error {
		pseudonym := tx.Bucket(bucketByOriginal).Get(compositeKey(valueType, original))
		if pseudonym == nil {
			return ErrMappingNotFound
		}
		v := tx.Bucket(bucketByPseudonym).Get(compositeKey(valueType, string(pseudonym)))
		if v == nil {
			return ErrMappingNotFound
		}
		return json.Unmarshal(v, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountByType returns the number of mappings per value type.
func (s *BoltStore) CountByType(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketByPseudonym).ForEach(func(k, _ []byte) error {
			i := bytes.IndexByte(k, keySep)
			if i < 0 {
				return fmt.Errorf("malformed mapping key %q", k)
			}
			counts[string(k[:i])]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
