package storage

import (
	"context"
	"fmt"

	"github.com/vampirenirmal/codeorc/internal/config"
	"github.com/vampirenirmal/codeorc/internal/core"
)

// Open builds the backend named by cfg. The returned close function releases
// connections held by the backend and is never nil.
func Open(ctx context.Context, cfg config.StorageConfig) (core.Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), noop, nil
	case "filesystem":
		return NewFileSystem(cfg.Dir), noop, nil
	case "redis":
		r, err := NewRedis(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
