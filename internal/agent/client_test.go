package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, fn generateFunc, opts ...Option) *OllamaClient {
	t.Helper()
	opts = append([]Option{withGenerateFunc(fn), WithBackoff(time.Millisecond), WithRateLimit(6000, 100)}, opts...)
	c, err := NewOllamaClient("http://localhost:11434", "test-model", opts...)
	require.NoError(t, err)
	return c
}

func TestNewOllamaClient(t *testing.T) {
	_, err := NewOllamaClient("http://localhost:11434", "")
	assert.Error(t, err)

	_, err = NewOllamaClient("://bad", "m")
	assert.Error(t, err)

	c, err := NewOllamaClient("http://localhost:11434", "qwen")
	require.NoError(t, err)
	assert.Equal(t, "qwen", c.Model())
}

func TestCompleteWithSystem(t *testing.T) {
	t.Run("passes prompts through", func(t *testing.T) {
		var gotModel, gotSystem, gotPrompt string
		c := newTestClient(t, func(model, system, prompt string) (string, bool, error) {
			gotModel, gotSystem, gotPrompt = model, system, prompt
			return "answer", true, nil
		})

		resp, err := c.CompleteWithSystem(context.Background(), "sys", "user")
		require.NoError(t, err)
		assert.Equal(t, "answer", resp)
		assert.Equal(t, "test-model", gotModel)
		assert.Equal(t, "sys", gotSystem)
		assert.Equal(t, "user", gotPrompt)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(model, system, prompt string) (string, bool, error) {
			switch calls.Add(1) {
			case 1:
				return "", false, errors.New("connection refused")
			case 2:
				return "partial", false, nil
			case 3:
				return "   ", true, nil
			}
			return "ok", true, nil
		})

		resp, err := c.CompleteWithSystem(context.Background(), "", "p")
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
		assert.Equal(t, int32(4), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(model, system, prompt string) (string, bool, error) {
			calls.Add(1)
			return "", true, nil
		}, WithRetry(2))

		_, err := c.CompleteWithSystem(context.Background(), "", "p")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyResponse)
		assert.Contains(t, err.Error(), "max retries exceeded")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("incomplete response", func(t *testing.T) {
		c := newTestClient(t, func(model, system, prompt string) (string, bool, error) {
			return "half", false, nil
		}, WithRetry(0))

		_, err := c.CompleteWithSystem(context.Background(), "", "p")
		assert.ErrorIs(t, err, ErrIncompleteResponse)
	})

	t.Run("context cancellation abandons the request", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		c := newTestClient(t, func(model, system, prompt string) (string, bool, error) {
			<-release
			return "late", true, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := c.CompleteWithSystem(ctx, "", "p")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("cancelled before start", func(t *testing.T) {
		c := newTestClient(t, func(model, system, prompt string) (string, bool, error) {
			return "ok", true, nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.CompleteWithSystem(ctx, "", "p")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
