package agent

import (
	"fmt"
	"log/slog"

	"github.com/vampirenirmal/codeorc/internal/config"
	"github.com/vampirenirmal/codeorc/internal/core"
)

// prompts is shared by every generator built here, so a prompt file is read
// and parsed once per process.
var prompts = NewPromptCache()

// NewGenerator builds the generator selected by cfg.Generation.Generator.
// When store is non-nil, model answers are cached in it for the analysis
// cache TTL.
func NewGenerator(cfg *config.Config, store core.Storage, logger *slog.Logger) (core.Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Generation.Generator {
	case "template":
		gen, err := NewTemplateGenerator()
		if err != nil {
			return nil, err
		}
		return gen, nil

	case "ollama":
		client, err := NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Model,
			WithRateLimit(cfg.Ollama.RateLimit.RequestsPerMinute, cfg.Ollama.RateLimit.BurstSize),
			WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("creating ollama client: %w", err)
		}

		var completer Completer = client
		if store != nil {
			completer = WithCache(client, client.Model(), NewResponseCache(store, cfg.Analysis.CacheTTL, nil))
		}

		opts := []GeneratorOption{
			WithSystemPrompt(cfg.Ollama.System),
			WithGeneratorLogger(logger),
		}
		if cfg.Ollama.PromptTemplate != "" {
			tmpl, err := prompts.LoadTemplate("module", cfg.Ollama.PromptTemplate)
			if err != nil {
				return nil, fmt.Errorf("loading prompt template: %w", err)
			}
			opts = append(opts, WithPromptTemplate(tmpl))
		}

		gen, err := NewLLMGenerator(completer, opts...)
		if err != nil {
			return nil, err
		}
		logger.Info("using ollama generator", "host", cfg.Ollama.Host, "model", cfg.Ollama.Model)
		return gen, nil

	default:
		return nil, fmt.Errorf("unknown generator %q", cfg.Generation.Generator)
	}
}
