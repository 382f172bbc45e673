package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

const defaultSystemPrompt = "You are a senior TypeScript engineer. You write small, well-tested modules and answer with JSON only."

const defaultPrompt = `Generate the module "{{.Module.ID}}"{{if .Module.Name}} ({{.Module.Name}}){{end}}.

Files to produce:
{{range .Module.Files}}- {{.Path}} ({{.Type}}){{if .Requires.Imports}} imports: {{join .Requires.Imports ", "}}{{end}}{{if .Requires.Exports}} exports: {{join .Requires.Exports ", "}}{{end}}{{if .Requires.Types}} types: {{join .Requires.Types ", "}}{{end}}
{{end}}
{{- if .Module.Dependencies}}
Modules already generated that this one depends on:
{{range .Dependencies}}- {{.ID}}{{if .Exports}} exports: {{join .Exports ", "}}{{end}}{{if .Types}} types: {{join .Types ", "}}{{end}}
{{end}}{{end}}
Project context:
{{json .Context}}

Answer with a single JSON object of the form
{"files": {"<path>": "<file content>"}, "sharedState": {"<key>": "<value>"}}
and include every file listed above.`

var (
	// ErrNoFiles is returned when a model answer contains no files.
	ErrNoFiles = errors.New("model answer contains no files")
	// ErrMalformedAnswer is returned when no JSON object can be found.
	ErrMalformedAnswer = errors.New("model answer is not a JSON object")
)

// promptData is what prompt templates are executed with.
type promptData struct {
	Module       generation.ModuleDefinition
	Dependencies []dependencyView
	Context      generation.ProjectContext
}

type dependencyView struct {
	ID      string
	Exports []string
	Types   []string
}

// LLMGenerator asks a Completer to write each module.
type LLMGenerator struct {
	completer Completer
	prompt    *template.Template
	system    string
	logger    *slog.Logger
}

type GeneratorOption func(*LLMGenerator)

func WithPromptTemplate(tmpl *template.Template) GeneratorOption {
	return func(g *LLMGenerator) { g.prompt = tmpl }
}

func WithSystemPrompt(system string) GeneratorOption {
	return func(g *LLMGenerator) {
		if system != "" {
			g.system = system
		}
	}
}

func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *LLMGenerator) { g.logger = logger.With("component", "llm_generator") }
}

func NewLLMGenerator(completer Completer, opts ...GeneratorOption) (*LLMGenerator, error) {
	tmpl, err := parsePrompt("module", defaultPrompt)
	if err != nil {
		return nil, err
	}
	g := &LLMGenerator{
		completer: completer,
		prompt:    tmpl,
		system:    defaultSystemPrompt,
		logger:    slog.Default().With("component", "llm_generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *LLMGenerator) Generate(ctx context.Context, mod generation.ModuleDefinition, pc generation.ProjectContext) (generation.ModuleOutput, error) {
	prompt, err := g.render(mod, pc)
	if err != nil {
		return generation.ModuleOutput{}, err
	}

	g.logger.Debug("requesting module", "module", mod.ID, "prompt_length", len(prompt))
	answer, err := g.completer.CompleteWithSystem(ctx, g.system, prompt)
	if err != nil {
		return generation.ModuleOutput{}, fmt.Errorf("completing module %s: %w", mod.ID, err)
	}

	out, err := parseModuleOutput(answer)
	if err != nil {
		return generation.ModuleOutput{}, fmt.Errorf("parsing answer for module %s: %w", mod.ID, err)
	}
	if missing := missingFiles(mod, out); len(missing) > 0 {
		return generation.ModuleOutput{}, fmt.Errorf("answer for module %s omits %s", mod.ID, strings.Join(missing, ", "))
	}
	return out, nil
}

func (g *LLMGenerator) render(mod generation.ModuleDefinition, pc generation.ProjectContext) (string, error) {
	data := promptData{Module: mod, Context: pc}
	for _, dep := range mod.Dependencies {
		api := pc.APISchema[dep]
		data.Dependencies = append(data.Dependencies, dependencyView{ID: dep, Exports: api.Exports, Types: api.Types})
	}

	var buf bytes.Buffer
	if err := g.prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt for module %s: %w", mod.ID, err)
	}
	return buf.String(), nil
}

// parseModuleOutput extracts the JSON object from a model answer, tolerating
// markdown fences and chatter around it.
func parseModuleOutput(answer string) (generation.ModuleOutput, error) {
	s := strings.TrimSpace(answer)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:nl]), "{") {
			s = s[nl+1:]
		}
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return generation.ModuleOutput{}, ErrMalformedAnswer
	}

	var out generation.ModuleOutput
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return generation.ModuleOutput{}, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}
	if len(out.Files) == 0 {
		return generation.ModuleOutput{}, ErrNoFiles
	}
	return out, nil
}

func missingFiles(mod generation.ModuleDefinition, out generation.ModuleOutput) []string {
	var missing []string
	for _, f := range mod.Files {
		if _, ok := out.Files[f.Path]; !ok {
			missing = append(missing, f.Path)
		}
	}
	sort.Strings(missing)
	return missing
}
