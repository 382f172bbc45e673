package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/JexSrs/go-ollama"
	"golang.org/x/time/rate"
)

var (
	// ErrEmptyResponse is returned when the model finished without output.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrIncompleteResponse is returned when the model did not report done.
	ErrIncompleteResponse = errors.New("model response not finished")
)

// generateFunc performs one blocking completion request.
type generateFunc func(model, system, prompt string) (response string, done bool, err error)

// OllamaClient is a Completer backed by an Ollama server. Requests are rate
// limited and retried with a linear backoff.
type OllamaClient struct {
	host       string
	model      string
	generate   generateFunc
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type Option func(*OllamaClient)

func WithRetry(maxRetries int) Option {
	return func(c *OllamaClient) {
		c.maxRetries = maxRetries
	}
}

// WithBackoff sets the delay unit between attempts; attempt n waits n units.
func WithBackoff(d time.Duration) Option {
	return func(c *OllamaClient) {
		c.backoff = d
	}
}

func WithRateLimit(requestsPerMinute int, burst int) Option {
	return func(c *OllamaClient) {
		if requestsPerMinute > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *OllamaClient) {
		c.logger = logger.With("component", "ollama_client")
	}
}

func withGenerateFunc(fn generateFunc) Option {
	return func(c *OllamaClient) {
		c.generate = fn
	}
}

func NewOllamaClient(host, model string, opts ...Option) (*OllamaClient, error) {
	ollamaURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if model == "" {
		return nil, errors.New("ollama model is required")
	}

	client := ollama.New(*ollamaURL)
	c := &OllamaClient{
		host:  host,
		model: model,
		generate: func(model, system, prompt string) (string, bool, error) {
			res, err := client.Generate(
				client.Generate.WithModel(model),
				client.Generate.WithSystem(system),
				client.Generate.WithPrompt(prompt),
			)
			if err != nil {
				return "", false, err
			}
			return res.Response, res.Done, nil
		},
		maxRetries: 3,
		backoff:    time.Second,
		limiter:    rate.NewLimiter(rate.Limit(0.5), 5), // Default: 30 req/min
		logger:     slog.Default().With("component", "ollama_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("ollama client initialized",
		"host", c.host,
		"model", c.model,
		"max_retries", c.maxRetries,
		"rate_limit", fmt.Sprintf("%v req/s", c.limiter.Limit()))

	return c, nil
}

func (c *OllamaClient) Model() string { return c.model }

func (c *OllamaClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	requestID := fmt.Sprintf("ollama_%d", time.Now().UnixNano())
	startTime := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Debug("retry backoff",
				"request_id", requestID,
				"attempt", attempt,
				"backoff", backoff)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		attemptStart := time.Now()
		response, err := c.attempt(ctx, systemPrompt, userPrompt)
		if err == nil {
			c.logger.Info("completion received",
				"request_id", requestID,
				"attempt", attempt,
				"duration_ms", time.Since(attemptStart).Milliseconds(),
				"response_length", len(response),
				"total_duration_ms", time.Since(startTime).Milliseconds())
			return response, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return "", err
		}

		c.logger.Warn("completion failed, will retry",
			"request_id", requestID,
			"attempt", attempt,
			"error", err)
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// attempt runs one request. The client library takes no context, so the
// call runs in its own goroutine and is abandoned when ctx ends.
func (c *OllamaClient) attempt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	type result struct {
		response string
		done     bool
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		response, done, err := c.generate(c.model, systemPrompt, userPrompt)
		ch <- result{response, done, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		switch {
		case r.err != nil:
			return "", fmt.Errorf("ollama generate: %w", r.err)
		case !r.done:
			return "", ErrIncompleteResponse
		case strings.TrimSpace(r.response) == "":
			return "", ErrEmptyResponse
		}
		return r.response, nil
	}
}

func isRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
