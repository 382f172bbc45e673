package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"
)

// promptFuncs are available to every prompt template.
var promptFuncs = template.FuncMap{
	"join": strings.Join,
	"json": func(v any) (string, error) {
		data, err := json.MarshalIndent(v, "", "  ")
		return string(data), err
	},
}

// PromptCache caches parsed prompt templates to avoid repeated file reads
type PromptCache struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	raw       map[string]string
}

func NewPromptCache() *PromptCache {
	return &PromptCache{
		templates: make(map[string]*template.Template),
		raw:       make(map[string]string),
	}
}

// LoadPrompt loads a prompt from file or cache
func (pc *PromptCache) LoadPrompt(path string) (string, error) {
	pc.mu.RLock()
	if content, ok := pc.raw[path]; ok {
		pc.mu.RUnlock()
		return content, nil
	}
	pc.mu.RUnlock()

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}

	pc.mu.Lock()
	pc.raw[path] = string(content)
	pc.mu.Unlock()

	return string(content), nil
}

// LoadTemplate loads and parses a template from file or cache
func (pc *PromptCache) LoadTemplate(name, path string) (*template.Template, error) {
	pc.mu.RLock()
	if tmpl, ok := pc.templates[path]; ok {
		pc.mu.RUnlock()
		return tmpl, nil
	}
	pc.mu.RUnlock()

	content, err := pc.LoadPrompt(path)
	if err != nil {
		return nil, err
	}

	tmpl, err := parsePrompt(name, content)
	if err != nil {
		return nil, err
	}

	pc.mu.Lock()
	pc.templates[path] = tmpl
	pc.mu.Unlock()

	return tmpl, nil
}

// Clear removes all cached prompts and templates
func (pc *PromptCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.templates = make(map[string]*template.Template)
	pc.raw = make(map[string]string)
}

// Stats returns cache statistics
func (pc *PromptCache) Stats() (templates int, raw int) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	return len(pc.templates), len(pc.raw)
}

func parsePrompt(name, content string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(promptFuncs).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return tmpl, nil
}
