package agent

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

var fileTemplates = map[generation.FileType]string{
	generation.FileComponent: `{{template "header" .}}{{template "imports" .}}
export interface {{.Name}}Props {
  children?: unknown
}

export function {{.Name}}(props: {{.Name}}Props) {
  return null
}
{{template "exports" .}}`,

	generation.FileHook: `{{template "header" .}}{{template "imports" .}}
export function {{.Name}}() {
  return {}
}
{{template "exports" .}}`,

	generation.FileUtil: `{{template "header" .}}{{template "imports" .}}{{template "exports" .}}`,

	generation.FileTypeDecl: `{{template "header" .}}{{range .Types}}
export type {{.}} = Record<string, unknown>
{{end}}`,

	generation.FileTest: `{{template "header" .}}import { describe, it, expect } from 'vitest'
{{if .Subject}}import * as subject from '{{.Subject}}'
{{end}}
describe('{{.Module.ID}}', () => {
  it('loads', () => {
    expect({{if .Subject}}subject{{else}}true{{end}}).toBeTruthy()
  })
})
`,
}

const sharedTemplates = `
{{define "header"}}// Module {{.Module.ID}}{{if .Module.Name}}: {{.Module.Name}}{{end}}
{{range .Dependencies}}// depends on {{.ID}}{{if .Exports}} ({{join .Exports ", "}}){{end}}
{{end}}{{end}}
{{define "imports"}}{{range .Packages}}import '{{.}}'
{{end}}{{end}}
{{define "exports"}}{{range .Exports}}
export const {{.}} = undefined as unknown
{{end}}{{range .Types}}
export type {{.}} = Record<string, unknown>
{{end}}{{end}}
`

type fileData struct {
	Module       generation.ModuleDefinition
	File         generation.FileSpec
	Name         string
	Dependencies []dependencyView
	Packages     []string
	Exports      []string
	Types        []string
	// Subject is the relative import of the file a test exercises
	Subject string
}

// TemplateGenerator writes skeleton files from built-in templates. Declared
// file content is used verbatim. It needs no model and is deterministic.
type TemplateGenerator struct {
	templates map[generation.FileType]*template.Template
}

func NewTemplateGenerator() (*TemplateGenerator, error) {
	base, err := template.New("shared").Funcs(promptFuncs).Parse(sharedTemplates)
	if err != nil {
		return nil, fmt.Errorf("parsing shared templates: %w", err)
	}

	g := &TemplateGenerator{templates: make(map[generation.FileType]*template.Template, len(fileTemplates))}
	for kind, text := range fileTemplates {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		tmpl, err := clone.New(string(kind)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", kind, err)
		}
		g.templates[kind] = tmpl
	}
	return g, nil
}

func (g *TemplateGenerator) Generate(ctx context.Context, mod generation.ModuleDefinition, pc generation.ProjectContext) (generation.ModuleOutput, error) {
	out := generation.ModuleOutput{
		Files:       make(map[string]string, len(mod.Files)),
		SharedState: map[string]string{"module." + mod.ID: fmt.Sprintf("%d files", len(mod.Files))},
	}

	var deps []dependencyView
	for _, dep := range mod.Dependencies {
		api := pc.APISchema[dep]
		deps = append(deps, dependencyView{ID: dep, Exports: api.Exports, Types: api.Types})
	}

	for _, f := range mod.Files {
		if err := ctx.Err(); err != nil {
			return generation.ModuleOutput{}, err
		}
		if f.Content != "" {
			out.Files[f.Path] = f.Content
			continue
		}

		kind := f.Type
		if kind == "" {
			kind = generation.ClassifyPath(f.Path)
		}
		tmpl, ok := g.templates[kind]
		if !ok {
			return generation.ModuleOutput{}, fmt.Errorf("no template for file type %q (%s)", kind, f.Path)
		}

		name := identifier(f.Path)
		data := fileData{
			Module:       mod,
			File:         f,
			Name:         name,
			Dependencies: deps,
			Packages:     externalPackages(f.Requires.Imports),
			Exports:      f.Requires.Exports,
			Types:        f.Requires.Types,
		}
		if kind == generation.FileComponent || kind == generation.FileHook {
			data.Exports = without(f.Requires.Exports, name)
		}
		if kind == generation.FileTest {
			data.Subject = testSubject(f, mod.Files)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return generation.ModuleOutput{}, fmt.Errorf("rendering %s: %w", f.Path, err)
		}
		out.Files[f.Path] = buf.String()
	}
	return out, nil
}

func externalPackages(imports []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, spec := range imports {
		if pkg, ok := generation.ExternalPackage(spec); ok && !seen[pkg] {
			seen[pkg] = true
			out = append(out, pkg)
		}
	}
	sort.Strings(out)
	return out
}

func without(list []string, drop string) []string {
	var out []string
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

// testSubject finds the module file the test file is named after.
func testSubject(test generation.FileSpec, files []generation.FileSpec) string {
	for _, f := range files {
		if f.Path == test.Path || !generation.IsTestFor(test.Path, f.Path) {
			continue
		}
		rel := relativeImport(path.Dir(test.Path), f.Path)
		return strings.TrimSuffix(rel, path.Ext(rel))
	}
	return ""
}

func relativeImport(fromDir, target string) string {
	from := strings.Split(path.Clean(fromDir), "/")
	to := strings.Split(path.Clean(target), "/")
	if fromDir == "." || fromDir == "" {
		from = nil
	}

	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var parts []string
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	rel := strings.Join(parts, "/")
	if !strings.HasPrefix(rel, "..") {
		rel = "./" + rel
	}
	return rel
}

// identifier turns a file path into an exported TypeScript identifier:
// "src/user-card.tsx" becomes "UserCard", "useCart.ts" stays "useCart".
func identifier(p string) string {
	base := path.Base(p)
	for strings.Contains(base, ".") {
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	if strings.HasPrefix(base, "use") && len(base) > 3 && unicode.IsUpper(rune(base[3])) {
		return base
	}

	var b strings.Builder
	upper := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Module"
	}
	return b.String()
}
