package analysis

import (
	"math"
	"sort"

	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

// QualityWeights weighs the sub-scores that make up the overall quality score.
// Only sub-scores that are available for a given result take part.
type QualityWeights struct {
	Maintainability float64 `yaml:"maintainability" validate:"gte=0"`
	Reliability     float64 `yaml:"reliability" validate:"gte=0"`
	Security        float64 `yaml:"security" validate:"gte=0"`
	Coverage        float64 `yaml:"coverage" validate:"gte=0"`
	Documentation   float64 `yaml:"documentation" validate:"gte=0"`
}

func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Maintainability: 0.25,
		Reliability:     0.20,
		Security:        0.25,
		Coverage:        0.15,
		Documentation:   0.15,
	}
}

// SeverityWeights maps a vulnerability severity to its contribution to the
// risk score.
type SeverityWeights map[domain.Severity]float64

func DefaultSeverityWeights() SeverityWeights {
	return SeverityWeights{
		domain.SeverityLow:      1,
		domain.SeverityMedium:   5,
		domain.SeverityHigh:     15,
		domain.SeverityCritical: 30,
	}
}

const maxRisk = 100

// RiskScore sums the weight of every vulnerability, capped at 100. Unknown
// severities count as medium.
func RiskScore(vulns []domain.Finding, weights SeverityWeights) float64 {
	var total float64
	for _, v := range vulns {
		w, ok := weights[v.Severity]
		if !ok {
			w = weights[domain.SeverityMedium]
		}
		total += w
	}
	return math.Min(total, maxRisk)
}

// subScores is what the aggregator knows after all analyzers settled.
type subScores struct {
	semantic   *domain.QualityIndicators
	risk       *float64
	contextCov *float64
}

// qualityIndicators fills each available sub-score and their weighted mean.
func qualityIndicators(s subScores, w QualityWeights) domain.QualityIndicators {
	var (
		out          domain.QualityIndicators
		sum, weights float64
	)
	add := func(score, weight float64) {
		if weight <= 0 {
			return
		}
		sum += clamp(score) * weight
		weights += weight
	}

	if s.semantic != nil {
		out.Maintainability = clamp(s.semantic.Maintainability)
		out.Reliability = clamp(s.semantic.Reliability)
		out.Documentation = clamp(s.semantic.Documentation)
		add(out.Maintainability, w.Maintainability)
		add(out.Reliability, w.Reliability)
		add(out.Documentation, w.Documentation)
	}
	if s.risk != nil {
		out.Security = clamp(100 - *s.risk)
		add(out.Security, w.Security)
	}
	switch {
	case s.contextCov != nil:
		out.Coverage = clamp(*s.contextCov * 100)
		add(out.Coverage, w.Coverage)
	case s.semantic != nil:
		out.Coverage = clamp(s.semantic.Coverage)
		add(out.Coverage, w.Coverage)
	}

	if weights > 0 {
		out.Overall = sum / weights
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// moduleAnalysis summarises a generation run's project context.
func moduleAnalysis(pc generation.ProjectContext) *domain.ModuleAnalysis {
	ids := make(map[string]bool)
	for id := range pc.Dependencies.Internal {
		ids[id] = true
	}
	for id := range pc.APISchema {
		ids[id] = true
	}
	for id := range pc.TestCoverage {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	out := &domain.ModuleAnalysis{
		Modules:          make([]domain.ModuleSummary, 0, len(sorted)),
		ExternalPackages: append([]string{}, pc.Dependencies.External...),
	}
	for _, id := range sorted {
		out.Modules = append(out.Modules, domain.ModuleSummary{
			ModuleID:     id,
			Dependencies: append([]string{}, pc.Dependencies.Internal[id]...),
			Exports:      append([]string(nil), pc.APISchema[id].Exports...),
			Coverage:     pc.TestCoverage[id],
		})
	}
	if avg, ok := pc.AverageCoverage(); ok {
		out.AverageCoverage = avg
	}
	return out
}
