package heuristics

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

func lacks(attrs ...string) func(string) bool {
	return func(m string) bool {
		for _, a := range attrs {
			if strings.Contains(m, a) {
				return false
			}
		}
		return true
	}
}

var accessibilityRules = []rule{
	{
		id:       "img-alt",
		severity: domain.SeverityHigh,
		pattern:  regexp.MustCompile(`<img\b[^>]*>`),
		check:    lacks("alt="),
		message:  "image without alt text",
	},
	{
		id:       "click-events-have-key-events",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`<(?:div|span|li)\b[^>]*\bonClick=[^>]*>`),
		check:    lacks("onKeyDown", "onKeyUp", "onKeyPress"),
		message:  "clickable non-interactive element is not keyboard accessible",
	},
	{
		id:       "interactive-role",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`<(?:div|span|li)\b[^>]*\bonClick=[^>]*>`),
		check:    lacks("role="),
		message:  "clickable non-interactive element needs a role",
	},
	{
		id:       "anchor-has-href",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`<a\b[^>]*>`),
		check:    lacks("href="),
		message:  "anchor without href; use a button",
	},
	{
		id:       "control-has-label",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`<(?:input|select|textarea)\b[^>]*>`),
		check:    lacks("aria-label", "aria-labelledby", "id=", `type="hidden"`, `type='hidden'`),
		message:  "form control without an accessible label",
	},
	{
		id:       "button-has-name",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`<button\b[^>]*>\s*</button>`),
		check:    lacks("aria-label", "title="),
		message:  "button without an accessible name",
	},
	{
		id:       "no-positive-tabindex",
		severity: domain.SeverityLow,
		pattern:  regexp.MustCompile(`(?i)tabindex=(?:\{\s*|["'])[1-9]`),
		message:  "positive tabIndex disrupts focus order",
	},
	{
		id:       "no-autofocus",
		severity: domain.SeverityLow,
		pattern:  regexp.MustCompile(`\bautoFocus\b|\bautofocus\b`),
		message:  "autofocus can disorient screen reader users",
	},
}

// Accessibility is the default AccessibilityAnalyzer. It only looks at
// markup-bearing files.
type Accessibility struct {
	logger *slog.Logger
}

func NewAccessibility(logger *slog.Logger) *Accessibility {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessibility{logger: logger.With("analyzer", "accessibility")}
}

func (a *Accessibility) Name() string { return "accessibility" }

func (a *Accessibility) Analyze(ctx context.Context, src analysis.Source) (domain.AccessibilityReport, error) {
	findings, err := scan(ctx, src, accessibilityRules, func(p string) bool { return isMarkup(p) && !isTest(p) })
	if err != nil {
		return domain.AccessibilityReport{}, err
	}
	a.logger.Debug("accessibility scan done", "violations", len(findings))
	return domain.AccessibilityReport{Violations: findings, Score: scoreFrom(findings)}, nil
}
