package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vampirenirmal/codeorc/internal/core"
)

// ResponseCache persists completions keyed by a hash of model and prompts.
type ResponseCache struct {
	storage core.Storage
	ttl     time.Duration
	now     core.Clock
	logger  *slog.Logger
}

type CachedResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

func NewResponseCache(storage core.Storage, ttl time.Duration, now core.Clock) *ResponseCache {
	if now == nil {
		now = time.Now
	}
	return &ResponseCache{
		storage: storage,
		ttl:     ttl,
		now:     now,
		logger:  slog.Default().With("component", "response_cache"),
	}
}

func responsePath(key string) string {
	return fmt.Sprintf("responses/%s.json", key)
}

func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	data, err := c.storage.Load(ctx, responsePath(key))
	if err != nil {
		c.logger.Debug("cache miss - not found", "key", key)
		return "", false
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("cache miss - invalid data", "key", key, "error", err)
		return "", false
	}

	if age := c.now().Sub(cached.Timestamp); c.ttl > 0 && age > c.ttl {
		c.logger.Debug("cache miss - expired", "key", key, "age", age, "ttl", c.ttl)
		return "", false
	}

	c.logger.Debug("cache hit", "key", key, "response_length", len(cached.Response))
	return cached.Response, true
}

func (c *ResponseCache) Set(ctx context.Context, key, response string) error {
	data, err := json.Marshal(CachedResponse{Response: response, Timestamp: c.now()})
	if err != nil {
		return fmt.Errorf("marshaling cached response: %w", err)
	}
	if err := c.storage.Save(ctx, responsePath(key), data); err != nil {
		return fmt.Errorf("saving cached response: %w", err)
	}
	return nil
}

func responseKey(scope, systemPrompt, userPrompt string) string {
	h := sha256.New()
	for _, part := range []string{scope, systemPrompt, userPrompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CachedCompleter answers repeated prompts from a ResponseCache.
type CachedCompleter struct {
	Completer
	scope  string
	cache  *ResponseCache
	logger *slog.Logger
}

// WithCache wraps client. scope separates entries of different models.
func WithCache(client Completer, scope string, cache *ResponseCache) *CachedCompleter {
	return &CachedCompleter{
		Completer: client,
		scope:     scope,
		cache:     cache,
		logger:    slog.Default().With("component", "cached_completer"),
	}
}

func (c *CachedCompleter) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	key := responseKey(c.scope, systemPrompt, userPrompt)
	if response, ok := c.cache.Get(ctx, key); ok {
		return response, nil
	}

	response, err := c.Completer.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, response); err != nil {
		c.logger.Warn("failed to cache response", "key", key, "error", err)
	}
	return response, nil
}
