// Package heuristics holds the default, pattern-based analyzers. Each one
// scans file text with regular expressions and never builds a syntax tree.
package heuristics

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

// rule flags every match of pattern. When check is set a match only counts
// if check returns true for the matched text.
type rule struct {
	id       string
	severity domain.Severity
	pattern  *regexp.Regexp
	check    func(match string) bool
	message  string
}

// penalty is what one finding of a given severity costs a 0-100 score.
var penalty = map[domain.Severity]float64{
	domain.SeverityLow:      2,
	domain.SeverityMedium:   5,
	domain.SeverityHigh:     10,
	domain.SeverityCritical: 20,
}

// scan applies rules to every file accepted by include and returns findings
// ordered by location.
func scan(ctx context.Context, src analysis.Source, rules []rule, include func(string) bool) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	for _, f := range src.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if include != nil && !include(f.Path) {
			continue
		}
		code := analysis.StripComments(f.Content)
		for _, r := range rules {
			for _, loc := range r.pattern.FindAllStringIndex(code, -1) {
				if r.check != nil && !r.check(code[loc[0]:loc[1]]) {
					continue
				}
				findings = append(findings, domain.Finding{
					Rule:     r.id,
					Severity: r.severity,
					Location: locationOf(f.Path, code, loc[0]),
					Message:  r.message,
				})
			}
		}
	}
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Location != findings[j].Location {
			return findings[i].Location < findings[j].Location
		}
		return findings[i].Rule < findings[j].Rule
	})
	return findings, nil
}

// locationOf formats offset in code as "path:line".
func locationOf(p, code string, offset int) string {
	return fmt.Sprintf("%s:%d", p, strings.Count(code[:offset], "\n")+1)
}

func scoreFrom(findings []domain.Finding) float64 {
	score := 100.0
	for _, f := range findings {
		score -= penalty[f.Severity]
	}
	return max(0, score)
}

func isTest(p string) bool {
	return generation.ClassifyPath(p) == generation.FileTest
}

func isMarkup(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".tsx", ".jsx", ".html", ".vue", ".svelte":
		return true
	}
	return false
}

func isScript(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".vue", ".svelte":
		return true
	}
	return false
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}
