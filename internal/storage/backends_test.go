package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/codeorc/internal/config"
	"github.com/vampirenirmal/codeorc/internal/core"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, "codeorc:", 0)
	t.Cleanup(func() { r.Close() })
	return mr, r
}

func setupTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]core.Storage {
	_, r := setupTestRedis(t)
	return map[string]core.Storage{
		"filesystem": NewFileSystem(t.TempDir()),
		"memory":     NewMemory(),
		"redis":      r,
		"sqlite":     setupTestSQLite(t),
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, "runs/r1.json", []byte(`{"run_id":"r1"}`)))
			assert.True(t, store.Exists(ctx, "runs/r1.json"))

			data, err := store.Load(ctx, "runs/r1.json")
			require.NoError(t, err)
			assert.JSONEq(t, `{"run_id":"r1"}`, string(data))

			require.NoError(t, store.Save(ctx, "runs/r1.json", []byte(`{"run_id":"r1","v":2}`)))
			data, err = store.Load(ctx, "runs/r1.json")
			require.NoError(t, err)
			assert.JSONEq(t, `{"run_id":"r1","v":2}`, string(data))
		})
	}
}

func TestBackendsNotFound(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Load(ctx, "runs/missing.json")
			assert.True(t, IsNotFound(err), "load: %v", err)
			assert.False(t, store.Exists(ctx, "runs/missing.json"))

			err = store.Delete(ctx, "runs/missing.json")
			assert.True(t, IsNotFound(err), "delete: %v", err)
		})
	}
}

func TestBackendsListUsesPathSemantics(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, p := range []string{"runs/b.json", "runs/a.json", "runs/nested/c.json", "analysis/x.json"} {
				require.NoError(t, store.Save(ctx, p, []byte("{}")))
			}

			got, err := store.List(ctx, "runs/*.json")
			require.NoError(t, err)
			assert.Equal(t, []string{"runs/a.json", "runs/b.json"}, got)

			require.NoError(t, store.Delete(ctx, "runs/a.json"))
			got, err = store.List(ctx, "runs/*.json")
			require.NoError(t, err)
			assert.Equal(t, []string{"runs/b.json"}, got)
		})
	}
}

func TestMemoryCopiesData(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, m.Save(ctx, "k", buf))
	buf[0] = 'x'

	data, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	data[1] = 'y'
	again, _ := m.Load(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestRedisPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, "codeorc:", time.Minute)
	defer r.Close()
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "analysis/fp.json", []byte("{}")))
	assert.True(t, mr.Exists("codeorc:analysis/fp.json"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, r.Exists(ctx, "analysis/fp.json"))
}

func TestNewRedisPingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisConfig{Addr: addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to redis")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    any
		wantErr bool
	}{
		{name: "memory", cfg: config.StorageConfig{Backend: "memory"}, want: &Memory{}},
		{name: "filesystem", cfg: config.StorageConfig{Backend: "filesystem", Dir: t.TempDir()}, want: &FileSystem{}},
		{name: "redis", cfg: config.StorageConfig{Backend: "redis", Redis: config.RedisConfig{Addr: mr.Addr()}}, want: &Redis{}},
		{name: "sqlite", cfg: config.StorageConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{DSN: ":memory:"}}, want: &SQLite{}},
		{name: "unknown", cfg: config.StorageConfig{Backend: "s3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn, err := Open(ctx, tt.cfg)
			require.NotNil(t, closeFn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
			assert.NoError(t, closeFn())
		})
	}
}
