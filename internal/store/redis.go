package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// putIfAbsentScript performs both uniqueness checks and both writes
// atomically on the Redis server.
//
// KEYS[1] original hash, KEYS[2] pseudonym hash, KEYS[3] type set
// ARGV[1] original, ARGV[2] pseudonym, ARGV[3] mapping JSON, ARGV[4] type
// Returns 1 when inserted, 0 when the original exists, -1 when the
// pseudonym is taken.
var putIfAbsentScript = redis.NewScript(`
	if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 1 then
		return 0
	end
	if redis.call("HEXISTS", KEYS[2], ARGV[2]) == 1 then
		return -1
	end
	redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
	redis.call("HSET", KEYS[2], ARGV[2], ARGV[3])
	redis.call("SADD", KEYS[3], ARGV[4])
	return 1
`)

// RedisStore implements Store with one pair of hashes per value type.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a store using client. Keys are namespaced by prefix.
// Closing the store closes the client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) metaKey() string { return s.prefix + "meta" }
func (s *RedisStore) typesKey() string { return s.prefix + "types" }
func (s *RedisStore) originalKey(valueType string) string { return s.prefix + "original:" + valueType }
func (s *RedisStore) pseudonymKey(valueType string) string { return s.prefix + "pseudonym:" + valueType }

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetMeta returns the namespace metadata, or ErrMetaNotFound if not set.
func (s *RedisStore) GetMeta(ctx context.Context) (*NamespaceMeta, error) {
	data, err := s.client.Get(ctx, s.metaKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMetaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}
	var meta NamespaceMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return &meta, nil
}

// SetMeta stores the namespace metadata.
func (s *RedisStore) SetMeta(ctx context.Context, meta *NamespaceMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := s.client.Set(ctx, s.metaKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("set meta: %w", err)
	}
	return nil
}

// PutIfAbsent stores a new mapping via a server-side script.
func (s *RedisStore) PutIfAbsent(ctx context.Context, m *Mapping) (bool, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("marshal mapping: %w", err)
	}

	keys := []string{s.originalKey(m.ValueType), s.pseudonymKey(m.ValueType), s.typesKey()}
	result, err := putIfAbsentScript.Run(ctx, s.client, keys, m.Original, m.Pseudonym, data, m.ValueType).Int()
	if err != nil {
		return false, fmt.Errorf("insert mapping: %w", err)
	}

	switch result {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, ErrPseudonymTaken
	}
}

// GetByPseudonym retrieves a mapping by pseudonym and value type.
func (s *RedisStore) GetByPseudonym(ctx context.Context, pseudonym, valueType string) (*Mapping, error) {
	data, err := s.client.HGet(ctx, s.pseudonymKey(valueType), pseudonym).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}
	return &m, nil
}

// GetByOriginal retrieves a mapping by original value and value type.
func (s *RedisStore) GetByOriginal(ctx context.Context, original, valueType string) (*Mapping, error) {
	pseudonym, err := s.client.HGet(ctx, s.originalKey(valueType), original).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return s.GetByPseudonym(ctx, pseudonym, valueType)
}

// CountByType returns the number of mappings per value type.
func (s *RedisStore) CountByType(ctx context.Context) (map[string]int64, error) {
	types, err := s.client.SMembers(ctx, s.typesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(types))
	for _, t := range types {
		cmds[t] = pipe.HLen(ctx, s.pseudonymKey(t))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("count mappings: %w", err)
	}

	counts := make(map[string]int64, len(types))
	for t, cmd := range cmds {
		counts[t] = cmd.Val()
	}
	return counts, nil
}
