package analysis

import (
	"context"
	"fmt"

	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

// CodeAnalyzer produces the semantic section: structure, complexity and the
// analyzer's own quality sub-scores.
type CodeAnalyzer interface {
	Analyze(ctx context.Context, src Source) (domain.SemanticAnalysis, error)
}

type ContextAnalyzer interface {
	Analyze(ctx context.Context, src Source) (domain.ContextAnalysis, error)
}

type DependencyGraphBuilder interface {
	Analyze(ctx context.Context, src Source) (domain.DependencyGraphResult, error)
}

type PerformanceAnalyzer interface {
	Analyze(ctx context.Context, src Source) (domain.PerformanceMetrics, error)
}

// SecurityScanner reports vulnerabilities. RiskScore is filled in by the
// aggregator and is ignored if set here.
type SecurityScanner interface {
	Analyze(ctx context.Context, src Source) (domain.SecurityReport, error)
}

type AccessibilityAnalyzer interface {
	Analyze(ctx context.Context, src Source) (domain.AccessibilityReport, error)
}

// Named is implemented by analyzers that want a stable name in diagnostics.
type Named interface {
	Name() string
}

// Ports is the set of analyzers an Aggregator fans out to. A nil port is
// skipped and its section stays empty without a diagnostic.
type Ports struct {
	Code          CodeAnalyzer
	Context       ContextAnalyzer
	Graph         DependencyGraphBuilder
	Performance   PerformanceAnalyzer
	Security      SecurityScanner
	Accessibility AccessibilityAnalyzer
}

func analyzerName(port any) string {
	if n, ok := port.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", port)
}
