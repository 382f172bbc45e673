package heuristics

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

var hotspotRules = []rule{
	{
		id:       "await-in-loop",
		severity: domain.SeverityHigh,
		pattern:  regexp.MustCompile(`\b(?:for|while)\s*\([^)]*\)\s*\{[^}]*\bawait\b`),
		message:  "sequential await inside a loop; batch with Promise.all",
	},
	{
		id:       "deep-clone-json",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`JSON\.parse\s*\(\s*JSON\.stringify\s*\(`),
		message:  "JSON round-trip deep clone is slow for large objects",
	},
	{
		id:       "nested-iteration",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`\.(?:map|filter|forEach|find)\s*\([^)]*=>[^;]*\.(?:map|filter|forEach|find|includes|indexOf)\s*\(`),
		message:  "nested array iteration is quadratic; index by key first",
	},
	{
		id:       "sync-io",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`\b(?:readFileSync|writeFileSync|execSync)\s*\(`),
		message:  "synchronous I/O blocks the event loop",
	},
	{
		id:       "dom-query-in-component",
		severity: domain.SeverityLow,
		pattern:  regexp.MustCompile(`\bdocument\.(?:querySelector|getElementById)\w*\s*\(`),
		message:  "direct DOM queries bypass the renderer; use a ref",
	},
}

var (
	jsxElement = regexp.MustCompile(`<[A-Za-z][\w.]*[\s/>]`)
	listRender = regexp.MustCompile(`\.map\s*\(\s*(?:\([^)]*\)|[\w$]+)\s*=>\s*\(?\s*<`)
)

const (
	largeFileLines = 500
	// Bundles above budget lose budgetPenalty points per budgetStep.
	bundleBudget  = 250 * 1024
	budgetStep    = 100 * 1024
	budgetPenalty = 10.0
)

// Performance is the default PerformanceAnalyzer.
type Performance struct {
	logger *slog.Logger
}

func NewPerformance(logger *slog.Logger) *Performance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Performance{logger: logger.With("analyzer", "performance")}
}

func (p *Performance) Name() string { return "performance" }

func (p *Performance) Analyze(ctx context.Context, src analysis.Source) (domain.PerformanceMetrics, error) {
	shipped := func(path string) bool { return isScript(path) && !isTest(path) }

	findings, err := scan(ctx, src, hotspotRules, shipped)
	if err != nil {
		return domain.PerformanceMetrics{}, err
	}

	out := domain.PerformanceMetrics{Hotspots: make([]domain.Hotspot, 0, len(findings))}
	for _, f := range findings {
		out.Hotspots = append(out.Hotspots, domain.Hotspot{Location: f.Location, Reason: f.Message, Severity: f.Severity})
	}

	for _, f := range src.Files {
		if isTest(f.Path) {
			continue
		}
		out.BundleSizeBytes += len(f.Content)
		if !isScript(f.Path) {
			continue
		}
		if countLines(f.Content) > largeFileLines {
			out.Hotspots = append(out.Hotspots, domain.Hotspot{
				Location: f.Path,
				Reason:   "large module increases parse time",
				Severity: domain.SeverityMedium,
			})
			findings = append(findings, domain.Finding{Severity: domain.SeverityMedium})
		}
		if generation.ClassifyPath(f.Path) == generation.FileComponent {
			code := analysis.StripComments(f.Content)
			// List rendering multiplies the cost of the elements inside it.
			out.RenderComplexity += len(jsxElement.FindAllStringIndex(code, -1)) +
				2*len(listRender.FindAllStringIndex(code, -1))
		}
	}

	score := scoreFrom(findings)
	if over := out.BundleSizeBytes - bundleBudget; over > 0 {
		score -= budgetPenalty * float64((over+budgetStep-1)/budgetStep)
	}
	out.Score = clamp100(score)

	p.logger.Debug("performance analysis done", "hotspots", len(out.Hotspots), "bundle_bytes", out.BundleSizeBytes)
	return out, nil
}
