package heuristics

import (
	"context"
	"log/slog"
	"regexp"
	"sort"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	"github.com/vampirenirmal/codeorc/internal/analysis/depgraph"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

type patternRule struct {
	name    string
	pattern *regexp.Regexp
	// saturation is the number of files at which confidence reaches 1
	saturation int
}

var patternRules = []patternRule{
	{name: "react-hooks", pattern: regexp.MustCompile(`\buse(?:State|Effect|Memo|Callback|Reducer|Ref)\s*\(`), saturation: 3},
	{name: "custom-hook", pattern: regexp.MustCompile(`(?m)^\s*export\s+(?:default\s+)?(?:function|const)\s+use[A-Z]\w*`), saturation: 2},
	{name: "context-provider", pattern: regexp.MustCompile(`\bcreateContext\s*\(`), saturation: 1},
	{name: "async-await", pattern: regexp.MustCompile(`\basync\b[^;{]*\{[\s\S]*?\bawait\b`), saturation: 3},
	{name: "error-boundary", pattern: regexp.MustCompile(`\bcomponentDidCatch\b|\bgetDerivedStateFromError\b`), saturation: 1},
	{name: "data-fetching", pattern: regexp.MustCompile(`\bfetch\s*\(|\baxios\.|\buseQuery\s*\(`), saturation: 2},
	{name: "state-store", pattern: regexp.MustCompile(`\bcreateSlice\s*\(|\bconfigureStore\s*\(|\bcreate\s*\(\s*\(\s*set\b`), saturation: 1},
	{name: "form-validation", pattern: regexp.MustCompile(`\buseForm\s*\(|\bz\.object\s*\(|\byup\.object\s*\(`), saturation: 1},
}

type suggestionRule struct {
	kind    string
	pattern *regexp.Regexp
	impact  domain.Severity
	message string
}

var suggestionRules = []suggestionRule{
	{
		kind:    "effect-dependencies",
		pattern: regexp.MustCompile(`useEffect\s*\(\s*(?:async\s*)?\(\s*\)\s*=>\s*\{[^}]*\}\s*\)`),
		impact:  domain.SeverityMedium,
		message: "useEffect without a dependency array runs after every render",
	},
	{
		kind:    "debug-logging",
		pattern: regexp.MustCompile(`\bconsole\.(?:log|debug)\s*\(`),
		impact:  domain.SeverityLow,
		message: "remove debug logging before shipping",
	},
	{
		kind:    "memoize-callback",
		pattern: regexp.MustCompile(`\bon[A-Z]\w*=\{\s*\([^)]*\)\s*=>`),
		impact:  domain.SeverityLow,
		message: "inline handlers create a new function on every render; consider useCallback",
	},
}

const splitFileLines = 300

// Context is the default ContextAnalyzer. It recognises common idioms,
// proposes optimizations and lists the external packages in use.
type Context struct {
	logger *slog.Logger
}

func NewContext(logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{logger: logger.With("analyzer", "context")}
}

func (c *Context) Name() string { return "context" }

func (c *Context) Analyze(ctx context.Context, src analysis.Source) (domain.ContextAnalysis, error) {
	locations := make(map[string][]string)
	deps := make(map[string]bool)
	suggestions := []domain.Suggestion{}

	for _, f := range src.Files {
		if err := ctx.Err(); err != nil {
			return domain.ContextAnalysis{}, err
		}
		if !isScript(f.Path) {
			continue
		}
		code := analysis.StripComments(f.Content)

		for _, spec := range depgraph.Specifiers(f.Content) {
			if pkg, ok := generation.ExternalPackage(spec); ok {
				deps[pkg] = true
			}
		}
		for _, p := range patternRules {
			if p.pattern.MatchString(code) {
				locations[p.name] = append(locations[p.name], f.Path)
			}
		}
		if isTest(f.Path) {
			continue
		}
		for _, r := range suggestionRules {
			for _, loc := range r.pattern.FindAllStringIndex(code, -1) {
				suggestions = append(suggestions, domain.Suggestion{
					Kind:     r.kind,
					Message:  r.message,
					Impact:   r.impact,
					Location: locationOf(f.Path, code, loc[0]),
				})
			}
		}
		if countLines(f.Content) > splitFileLines {
			suggestions = append(suggestions, domain.Suggestion{
				Kind:     "split-file",
				Message:  "file is long; split it into smaller modules",
				Impact:   domain.SeverityMedium,
				Location: f.Path,
			})
		}
	}

	if src.Context != nil {
		for _, pkg := range src.Context.Dependencies.External {
			deps[pkg] = true
		}
	}

	out := domain.ContextAnalysis{
		Patterns:     []domain.Pattern{},
		Suggestions:  suggestions,
		Dependencies: make([]string, 0, len(deps)),
	}
	for _, p := range patternRules {
		locs := locations[p.name]
		if len(locs) == 0 {
			continue
		}
		out.Patterns = append(out.Patterns, domain.Pattern{
			Name:       p.name,
			Confidence: min(1, float64(len(locs))/float64(p.saturation)),
			Locations:  locs,
		})
	}
	for pkg := range deps {
		out.Dependencies = append(out.Dependencies, pkg)
	}
	sort.Strings(out.Dependencies)
	sort.SliceStable(out.Suggestions, func(i, j int) bool {
		return out.Suggestions[i].Location < out.Suggestions[j].Location
	})

	c.logger.Debug("context analysis done", "patterns", len(out.Patterns), "suggestions", len(out.Suggestions))
	return out, nil
}
