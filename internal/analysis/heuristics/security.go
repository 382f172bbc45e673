package heuristics

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

var securityRules = []rule{
	{
		id:       "no-eval",
		severity: domain.SeverityCritical,
		pattern:  regexp.MustCompile(`\beval\s*\(`),
		message:  "eval executes arbitrary code",
	},
	{
		id:       "hardcoded-secret",
		severity: domain.SeverityCritical,
		pattern:  regexp.MustCompile(`(?i)\b(?:api[_-]?key|secret|password|passwd|access[_-]?token|private[_-]?key)\b\s*[:=]\s*['"][^'"\s]{8,}['"]`),
		message:  "credential committed in source",
	},
	{
		id:       "no-new-function",
		severity: domain.SeverityHigh,
		pattern:  regexp.MustCompile(`\bnew\s+Function\s*\(`),
		message:  "Function constructor executes arbitrary code",
	},
	{
		id:       "dangerous-html",
		severity: domain.SeverityHigh,
		pattern:  regexp.MustCompile(`\bdangerouslySetInnerHTML\b|\.(?:innerHTML|outerHTML)\s*=[^=]`),
		message:  "raw HTML injection enables XSS",
	},
	{
		id:       "shell-injection",
		severity: domain.SeverityHigh,
		pattern:  regexp.MustCompile("\\b(?:exec|execSync|spawn)\\s*\\(\\s*`[^`]*\\$\\{"),
		message:  "interpolated shell command",
	},
	{
		id:       "document-write",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`\bdocument\.write(?:ln)?\s*\(`),
		message:  "document.write can inject markup",
	},
	{
		id:       "token-in-storage",
		severity: domain.SeverityMedium,
		pattern:  regexp.MustCompile(`(?i)\b(?:localStorage|sessionStorage)\.setItem\s*\(\s*['"][^'"]*(?:token|jwt|session)[^'"]*['"]`),
		message:  "tokens in web storage are readable by any script",
	},
	{
		id:       "insecure-transport",
		severity: domain.SeverityLow,
		pattern:  regexp.MustCompile(`['"]http://[^'"\s]+['"]`),
		check: func(m string) bool {
			return !strings.Contains(m, "://localhost") && !strings.Contains(m, "://127.0.0.1")
		},
		message: "plain HTTP endpoint",
	},
	{
		id:       "reverse-tabnabbing",
		severity: domain.SeverityLow,
		pattern:  regexp.MustCompile(`<a\b[^>]*target=["']_blank["'][^>]*>`),
		check:    func(m string) bool { return !strings.Contains(m, "noopener") && !strings.Contains(m, "noreferrer") },
		message:  `target="_blank" without rel="noopener"`,
	},
}

// Security is the default SecurityScanner. Test files are not scanned.
type Security struct {
	logger *slog.Logger
}

func NewSecurity(logger *slog.Logger) *Security {
	if logger == nil {
		logger = slog.Default()
	}
	return &Security{logger: logger.With("analyzer", "security")}
}

func (s *Security) Name() string { return "security" }

func (s *Security) Analyze(ctx context.Context, src analysis.Source) (domain.SecurityReport, error) {
	findings, err := scan(ctx, src, securityRules, func(p string) bool { return !isTest(p) })
	if err != nil {
		return domain.SecurityReport{}, err
	}
	s.logger.Debug("security scan done", "vulnerabilities", len(findings))
	return domain.SecurityReport{Vulnerabilities: findings}, nil
}
