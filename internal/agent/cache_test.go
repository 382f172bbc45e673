package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/codeorc/internal/storage"
)

func TestResponseCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := storage.NewMemory()
	cache := NewResponseCache(store, time.Hour, func() time.Time { return now })

	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", "cached answer"))
	assert.True(t, store.Exists(ctx, "responses/k.json"))

	got, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "cached answer", got)

	now = now.Add(2 * time.Hour)
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok, "entry older than the ttl must miss")

	require.NoError(t, store.Save(ctx, "responses/bad.json", []byte("not json")))
	_, ok = cache.Get(ctx, "bad")
	assert.False(t, ok)
}

func TestResponseKey(t *testing.T) {
	a := responseKey("m", "sys", "user")
	assert.Equal(t, a, responseKey("m", "sys", "user"))
	assert.NotEqual(t, a, responseKey("other", "sys", "user"))
	assert.NotEqual(t, responseKey("m", "ab", "c"), responseKey("m", "a", "bc"))
	assert.Len(t, a, 64)
}

func TestCachedCompleter(t *testing.T) {
	ctx := context.Background()
	calls := 0
	inner := CompleterFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		if user == "fail" {
			return "", errors.New("boom")
		}
		return "answer to " + user, nil
	})

	c := WithCache(inner, "model", NewResponseCache(storage.NewMemory(), 0, nil))

	for i := 0; i < 3; i++ {
		got, err := c.CompleteWithSystem(ctx, "sys", "q")
		require.NoError(t, err)
		assert.Equal(t, "answer to q", got)
	}
	assert.Equal(t, 1, calls)

	_, err := c.CompleteWithSystem(ctx, "sys", "fail")
	assert.Error(t, err)
	_, err = c.CompleteWithSystem(ctx, "sys", "fail")
	assert.Error(t, err)
	assert.Equal(t, 3, calls, "errors are not cached")
}
