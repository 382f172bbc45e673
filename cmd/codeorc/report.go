package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed, color.Bold)
	warning = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
)

func statusColor(s generation.Status) *color.Color {
	switch s {
	case generation.StatusCompleted:
		return success
	case generation.StatusFailed:
		return failure
	case generation.StatusCancelled:
		return warning
	default:
		return faint
	}
}

func severityColor(s domain.Severity) *color.Color {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh:
		return failure
	case domain.SeverityMedium:
		return warning
	default:
		return faint
	}
}

// printRun summarises a run state.
func printRun(w io.Writer, state generation.GenerationState) {
	fmt.Fprintf(w, "%s %s\n", heading.Sprint("Run"), state.RunID)
	fmt.Fprintf(w, "  status:    %s\n", statusColor(state.Status).Sprint(state.Status))
	fmt.Fprintf(w, "  modules:   %d/%d completed\n", len(state.CompletedModules), len(state.ModuleDefinitions))
	fmt.Fprintf(w, "  files:     %d\n", len(state.GeneratedFiles))
	if state.CurrentModule != "" && state.Status != generation.StatusCompleted {
		fmt.Fprintf(w, "  stopped at: %s\n", state.CurrentModule)
	}

	ids := make([]string, 0, len(state.FailedModules))
	for id := range state.FailedModules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s %s: %s\n", failure.Sprint("✗"), id, state.FailedModules[id])
	}

	if avg, ok := state.ProjectContext.AverageCoverage(); ok {
		fmt.Fprintf(w, "  coverage:  %.0f%%\n", avg*100)
	}
}

// printRunLine is the one-line form used by "runs".
func printRunLine(w io.Writer, state generation.GenerationState) {
	fmt.Fprintf(w, "%s  %-10s %d/%d modules  %d files\n",
		state.RunID,
		statusColor(state.Status).Sprint(state.Status),
		len(state.CompletedModules), len(state.ModuleDefinitions),
		len(state.GeneratedFiles))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAnalysis renders the merged report section by section.
func printAnalysis(w io.Writer, r *domain.AnalysisResult, verbose bool) {
	q := r.SemanticAnalysis.QualityIndicators
	fmt.Fprintf(w, "%s %s\n", heading.Sprint("Analysis"), faint.Sprint(r.Fingerprint[:min(12, len(r.Fingerprint))]))
	fmt.Fprintf(w, "  quality:        %s\n", scoreColor(q.Overall).Sprintf("%.0f", q.Overall))
	fmt.Fprintf(w, "    maintainability %.0f  reliability %.0f  security %.0f  coverage %.0f  documentation %.0f\n",
		q.Maintainability, q.Reliability, q.Security, q.Coverage, q.Documentation)

	st := r.SemanticAnalysis.CodeStructure
	cx := r.SemanticAnalysis.Complexity
	fmt.Fprintf(w, "  structure:      %d files, %d lines, %d functions, %d exports\n", st.Files, st.Lines, st.Functions, st.Exports)
	fmt.Fprintf(w, "  complexity:     cyclomatic %d, cognitive %d, max nesting %d\n", cx.Cyclomatic, cx.Cognitive, cx.MaxNestingDepth)

	g := r.DependencyGraph
	fmt.Fprintf(w, "  dependencies:   %d nodes, %d edges, cohesion %.2f\n", g.Metrics.NodeCount, g.Metrics.EdgeCount, g.Metrics.DependencyCohesion)
	for _, c := range g.Cycles {
		fmt.Fprintf(w, "    %s cycle %s\n", severityColor(c.Severity).Sprint(c.Severity), strings.Join(c.Nodes, " → "))
	}

	if len(r.ContextAnalysis.Patterns) > 0 {
		names := make([]string, 0, len(r.ContextAnalysis.Patterns))
		for _, p := range r.ContextAnalysis.Patterns {
			names = append(names, p.Name)
		}
		fmt.Fprintf(w, "  patterns:       %s\n", strings.Join(names, ", "))
	}

	p := r.PerformanceMetrics
	fmt.Fprintf(w, "  performance:    %s (%d bytes, render %d)\n", scoreColor(p.Score).Sprintf("%.0f", p.Score), p.BundleSizeBytes, p.RenderComplexity)
	fmt.Fprintf(w, "  security risk:  %s\n", riskColor(r.SecurityReport.RiskScore).Sprintf("%.0f", r.SecurityReport.RiskScore))
	fmt.Fprintf(w, "  accessibility:  %s\n", scoreColor(r.AccessibilityReport.Score).Sprintf("%.0f", r.AccessibilityReport.Score))

	if verbose {
		printFindings(w, "hotspots", hotspotFindings(p.Hotspots))
		printFindings(w, "vulnerabilities", r.SecurityReport.Vulnerabilities)
		printFindings(w, "violations", r.AccessibilityReport.Violations)
		for _, s := range r.ContextAnalysis.Suggestions {
			fmt.Fprintf(w, "    suggestion %s: %s\n", s.Kind, s.Message)
		}
	}

	if m := r.ModuleAnalysis; m != nil {
		fmt.Fprintf(w, "  modules:        %d, average coverage %.0f%%\n", len(m.Modules), m.AverageCoverage*100)
	}

	for _, d := range r.Diagnostics {
		fmt.Fprintf(w, "  %s %s (%s): %s\n", warning.Sprint("degraded"), d.Section, d.Analyzer, d.Message)
	}
}

func printFindings(w io.Writer, title string, findings []domain.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for _, f := range findings {
		fmt.Fprintf(w, "    %s %-28s %s %s\n",
			severityColor(f.Severity).Sprintf("%-8s", f.Severity), f.Rule, f.Location, faint.Sprint(f.Message))
	}
}

func hotspotFindings(hs []domain.Hotspot) []domain.Finding {
	out := make([]domain.Finding, 0, len(hs))
	for _, h := range hs {
		out = append(out, domain.Finding{Rule: "hotspot", Severity: h.Severity, Location: h.Location, Message: h.Reason})
	}
	return out
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= 80:
		return success
	case score >= 50:
		return warning
	default:
		return failure
	}
}

func riskColor(risk float64) *color.Color {
	switch {
	case risk >= 50:
		return failure
	case risk > 0:
		return warning
	default:
		return success
	}
}
