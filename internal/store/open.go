package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abdul-hamid-achik/tinymask/internal/config"
	"github.com/abdul-hamid-achik/tinymask/internal/database"
)

// Open connects to the backend selected in cfg.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendBolt:
		return NewBoltStore(cfg.Store.Path)

	case config.BackendPostgres:
		db, err := database.New(ctx, &cfg.Database, cfg.Store.Timeout)
		if err != nil {
			return nil, err
		}
		s, err := NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil

	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opt.PoolSize = cfg.Redis.PoolSize
		opt.MinIdleConns = cfg.Redis.MinIdleConns
		// Retries could replay a script whose reply was lost; callers own retries.
		opt.MaxRetries = cfg.Redis.MaxRetries
		if opt.MaxRetries == 0 {
			opt.MaxRetries = -1
		}

		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.Prefix), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Store.Backend)
}
