package depgraph

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

// importRef is one module specifier found in a file.
type importRef struct {
	Spec string
	Kind string
}

var (
	// import x from '…', import { a, b } from '…', import type { T } from '…'
	fromImport = regexp.MustCompile(`\bimport\s+(type\s+)?[^'";]*?\s*from\s*['"]([^'"\n]+)['"]`)
	// import '…'
	sideEffectImport = regexp.MustCompile(`\bimport\s*['"]([^'"\n]+)['"]`)
	// export * from '…', export { a } from '…', export type { T } from '…'
	reexport = regexp.MustCompile(`\bexport\s+(?:type\s+)?(?:\*(?:\s+as\s+[\w$]+)?|\{[^}]*\})\s*from\s*['"]([^'"\n]+)['"]`)
	// require('…')
	requireCall = regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
	// import('…')
	dynamicImport = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
)

// parseImports returns the specifiers referenced by content, deduplicated per
// (spec, kind) and sorted.
func parseImports(content string) []importRef {
	code := analysis.StripComments(content)
	seen := make(map[importRef]bool)
	var refs []importRef
	add := func(spec, kind string) {
		ref := importRef{Spec: strings.TrimSpace(spec), Kind: kind}
		if ref.Spec == "" || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	for _, m := range fromImport.FindAllStringSubmatch(code, -1) {
		if m[1] != "" {
			add(m[2], domain.EdgeType)
		} else {
			add(m[2], domain.EdgeStatic)
		}
	}
	for _, m := range sideEffectImport.FindAllStringSubmatch(code, -1) {
		add(m[1], domain.EdgeStatic)
	}
	for _, m := range reexport.FindAllStringSubmatch(code, -1) {
		add(m[1], domain.EdgeReexport)
	}
	for _, m := range requireCall.FindAllStringSubmatch(code, -1) {
		add(m[1], domain.EdgeStatic)
	}
	for _, m := range dynamicImport.FindAllStringSubmatch(code, -1) {
		add(m[1], domain.EdgeDynamic)
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Spec != refs[j].Spec {
			return refs[i].Spec < refs[j].Spec
		}
		return refs[i].Kind < refs[j].Kind
	})
	return refs
}

var resolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".d.ts"}

// aliasRoots are tried, in order, for "@/x" and "~/x" specifiers.
var aliasRoots = []string{"src", ""}

// resolve maps spec, imported from the file at from, to a known file. Bare
// package specifiers never resolve.
func resolve(from, spec string, known map[string]bool) (string, bool) {
	var bases []string
	switch {
	case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == "..":
		bases = []string{path.Join(path.Dir(from), spec)}
	case strings.HasPrefix(spec, "/"):
		bases = []string{strings.TrimPrefix(path.Clean(spec), "/")}
	case strings.HasPrefix(spec, "@/") || strings.HasPrefix(spec, "~/"):
		for _, root := range aliasRoots {
			bases = append(bases, path.Join(root, spec[2:]))
		}
	default:
		return "", false
	}

	for _, base := range bases {
		if p, ok := resolveBase(base, known); ok {
			return p, true
		}
	}
	return "", false
}

func resolveBase(base string, known map[string]bool) (string, bool) {
	if known[base] {
		return base, true
	}
	// TypeScript ESM imports name the emitted ".js" file.
	if ext := path.Ext(base); ext == ".js" || ext == ".jsx" {
		stem := strings.TrimSuffix(base, ext)
		for _, alt := range []string{".ts", ".tsx"} {
			if known[stem+alt] {
				return stem + alt, true
			}
		}
	}
	for _, ext := range resolveExtensions {
		if known[base+ext] {
			return base + ext, true
		}
	}
	for _, ext := range resolveExtensions {
		if p := path.Join(base, "index"+ext); known[p] {
			return p, true
		}
	}
	return "", false
}

// Specifiers lists the distinct module specifiers content imports, sorted.
func Specifiers(content string) []string {
	var out []string
	for _, ref := range parseImports(content) {
		if n := len(out); n == 0 || out[n-1] != ref.Spec {
			out = append(out, ref.Spec)
		}
	}
	return out
}
