package analysis

// Clone returns a deep copy so cached results can be handed out without
// exposing shared slices to callers.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r

	out.ContextAnalysis.Patterns = make([]Pattern, len(r.ContextAnalysis.Patterns))
	for i, p := range r.ContextAnalysis.Patterns {
		p.Locations = append([]string(nil), p.Locations...)
		out.ContextAnalysis.Patterns[i] = p
	}
	out.ContextAnalysis.Suggestions = append([]Suggestion{}, r.ContextAnalysis.Suggestions...)
	out.ContextAnalysis.Dependencies = append([]string{}, r.ContextAnalysis.Dependencies...)

	out.DependencyGraph.Nodes = append([]GraphNode{}, r.DependencyGraph.Nodes...)
	out.DependencyGraph.Edges = append([]GraphEdge{}, r.DependencyGraph.Edges...)
	out.DependencyGraph.Cycles = make([]GraphCycle, len(r.DependencyGraph.Cycles))
	for i, c := range r.DependencyGraph.Cycles {
		c.Nodes = append([]string(nil), c.Nodes...)
		c.Component = append([]string(nil), c.Component...)
		out.DependencyGraph.Cycles[i] = c
	}

	out.PerformanceMetrics.Hotspots = append([]Hotspot{}, r.PerformanceMetrics.Hotspots...)
	out.SecurityReport.Vulnerabilities = append([]Finding{}, r.SecurityReport.Vulnerabilities...)
	out.AccessibilityReport.Violations = append([]Finding{}, r.AccessibilityReport.Violations...)
	out.Diagnostics = append([]Diagnostic{}, r.Diagnostics...)

	if r.ModuleAnalysis != nil {
		ma := *r.ModuleAnalysis
		ma.Modules = make([]ModuleSummary, len(r.ModuleAnalysis.Modules))
		for i, m := range r.ModuleAnalysis.Modules {
			m.Dependencies = append([]string(nil), m.Dependencies...)
			m.Exports = append([]string(nil), m.Exports...)
			ma.Modules[i] = m
		}
		ma.ExternalPackages = append([]string{}, r.ModuleAnalysis.ExternalPackages...)
		out.ModuleAnalysis = &ma
	}
	return out
}
