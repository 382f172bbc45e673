// Package agent provides the code-producing collaborators behind
// core.Generator: a deterministic template generator and a model-backed
// generator that talks to Ollama.
package agent

import "context"

// Completer returns a model completion for a system and a user prompt.
type Completer interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f CompleterFunc) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
