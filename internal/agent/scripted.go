package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

// ScriptedCompleter answers prompts from canned responses. It records every
// call and is used for dry runs and tests.
type ScriptedCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	fallback  string
	calls     []Call
}

// Call is one recorded completion request.
type Call struct {
	System string
	User   string
}

func NewScriptedCompleter() *ScriptedCompleter {
	return &ScriptedCompleter{
		responses: make(map[string]string),
		errors:    make(map[string]error),
	}
}

// Respond answers any user prompt containing substr with response.
func (s *ScriptedCompleter) Respond(substr, response string) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[substr] = response
	return s
}

// Fail makes any user prompt containing substr return err.
func (s *ScriptedCompleter) Fail(substr string, err error) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[substr] = err
	return s
}

// Default answers prompts nothing else matched.
func (s *ScriptedCompleter) Default(response string) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = response
	return s
}

func (s *ScriptedCompleter) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{System: systemPrompt, User: userPrompt})

	// Longest match wins so overlapping keys resolve deterministically.
	var errKey string
	for k := range s.errors {
		if strings.Contains(userPrompt, k) && len(k) > len(errKey) {
			errKey = k
		}
	}
	if errKey != "" {
		return "", s.errors[errKey]
	}

	var key string
	found := false
	for k := range s.responses {
		if strings.Contains(userPrompt, k) && (!found || len(k) > len(key)) {
			key, found = k, true
		}
	}
	if found {
		return s.responses[key], nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", fmt.Errorf("no scripted response for prompt (%d bytes)", len(userPrompt))
}

// Calls returns a copy of the recorded requests.
func (s *ScriptedCompleter) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// ScriptedGenerator returns fixed outputs per module id.
type ScriptedGenerator struct {
	mu      sync.Mutex
	outputs map[string]generation.ModuleOutput
	errors  map[string]error
	seen    []string
}

func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{
		outputs: make(map[string]generation.ModuleOutput),
		errors:  make(map[string]error),
	}
}

func (g *ScriptedGenerator) Output(id string, out generation.ModuleOutput) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[id] = out
	return g
}

func (g *ScriptedGenerator) Fail(id string, err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errors[id] = err
	return g
}

func (g *ScriptedGenerator) Generate(ctx context.Context, mod generation.ModuleDefinition, pc generation.ProjectContext) (generation.ModuleOutput, error) {
	if err := ctx.Err(); err != nil {
		return generation.ModuleOutput{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = append(g.seen, mod.ID)

	if err, ok := g.errors[mod.ID]; ok {
		return generation.ModuleOutput{}, err
	}
	out, ok := g.outputs[mod.ID]
	if !ok {
		return generation.ModuleOutput{}, fmt.Errorf("no scripted output for module %s", mod.ID)
	}
	return out, nil
}

// Seen lists module ids in the order Generate was called.
func (g *ScriptedGenerator) Seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.seen...)
}
