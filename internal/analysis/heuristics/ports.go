package heuristics

import (
	"log/slog"

	"github.com/vampirenirmal/codeorc/internal/analysis"
)

// Ports returns the default analyzers around the given graph builder.
func Ports(graph analysis.DependencyGraphBuilder, logger *slog.Logger) analysis.Ports {
	return analysis.Ports{
		Code:          NewSemantic(logger),
		Context:       NewContext(logger),
		Graph:         graph,
		Performance:   NewPerformance(logger),
		Security:      NewSecurity(logger),
		Accessibility: NewAccessibility(logger),
	}
}
