package analysis

import "time"

// Severity ranks findings and dependency cycles
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Section names used as stable keys for diagnostics and merge order
const (
	SectionSemantic      = "semanticAnalysis"
	SectionContext       = "contextAnalysis"
	SectionGraph         = "dependencyGraph"
	SectionPerformance   = "performanceMetrics"
	SectionSecurity      = "securityReport"
	SectionAccessibility = "accessibilityReport"
)

// SectionOrder is the fixed order sections are merged and reported in.
var SectionOrder = []string{
	SectionSemantic,
	SectionContext,
	SectionGraph,
	SectionPerformance,
	SectionSecurity,
	SectionAccessibility,
}

// CodeStructure counts the structural elements found in the source
type CodeStructure struct {
	Files        int `json:"files"`
	Lines        int `json:"lines"`
	Functions    int `json:"functions"`
	Classes      int `json:"classes"`
	Components   int `json:"components"`
	Imports      int `json:"imports"`
	Exports      int `json:"exports"`
	CommentLines int `json:"commentLines"`
}

// Complexity holds control-flow metrics
type Complexity struct {
	Cyclomatic      int     `json:"cyclomatic"`
	Cognitive       int     `json:"cognitive"`
	MaxNestingDepth int     `json:"maxNestingDepth"`
	AveragePerFunc  float64 `json:"averagePerFunction"`
}

// QualityIndicators are 0-100 sub-scores plus their weighted overall score
type QualityIndicators struct {
	Maintainability float64 `json:"maintainability"`
	Reliability     float64 `json:"reliability"`
	Security        float64 `json:"security"`
	Coverage        float64 `json:"coverage"`
	Documentation   float64 `json:"documentation"`
	Overall         float64 `json:"overall"`
}

// SemanticAnalysis is the code analyzer's section
type SemanticAnalysis struct {
	CodeStructure     CodeStructure     `json:"codeStructure"`
	Complexity        Complexity        `json:"complexity"`
	QualityIndicators QualityIndicators `json:"qualityIndicators"`
}

// Pattern is a recognised idiom in the source
type Pattern struct {
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Locations  []string `json:"locations,omitempty"`
}

// Suggestion is an optimization hint
type Suggestion struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Impact   Severity `json:"impact"`
	Location string   `json:"location,omitempty"`
}

// ContextAnalysis is the context analyzer's section
type ContextAnalysis struct {
	Patterns     []Pattern    `json:"patterns"`
	Suggestions  []Suggestion `json:"suggestions"`
	Dependencies []string     `json:"dependencies"`
}

// GraphNode is one source unit in the dependency graph
type GraphNode struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Complexity  int    `json:"complexity"`
	ImportCount int    `json:"importCount"`
}

// Edge relation types
const (
	EdgeStatic   = "static"
	EdgeDynamic  = "dynamic"
	EdgeType     = "type"
	EdgeReexport = "reexport"
)

// GraphEdge is a resolved import from Source to Target
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphCycle is a circular dependency. Nodes is an ordered cycle path,
// Component is the full strongly connected component it belongs to.
type GraphCycle struct {
	Nodes     []string `json:"nodes"`
	Component []string `json:"component"`
	Severity  Severity `json:"severity"`
}

// GraphMetrics summarises the graph
type GraphMetrics struct {
	NodeCount            int     `json:"nodeCount"`
	EdgeCount            int     `json:"edgeCount"`
	AverageDegree        float64 `json:"averageDegree"`
	CyclomaticComplexity int     `json:"cyclomaticComplexity"`
	DependencyCohesion   float64 `json:"dependencyCohesion"`
}

// DependencyGraphResult is the dependency graph builder's section
type DependencyGraphResult struct {
	Nodes   []GraphNode  `json:"nodes"`
	Edges   []GraphEdge  `json:"edges"`
	Cycles  []GraphCycle `json:"cycles"`
	Metrics GraphMetrics `json:"metrics"`
}

// Hotspot is a location with a likely runtime cost
type Hotspot struct {
	Location string   `json:"location"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// PerformanceMetrics is the performance analyzer's section
type PerformanceMetrics struct {
	BundleSizeBytes  int       `json:"bundleSizeBytes"`
	RenderComplexity int       `json:"renderComplexity"`
	Hotspots         []Hotspot `json:"hotspots"`
	Score            float64   `json:"score"`
}

// Finding is a single security or accessibility rule violation
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Location string   `json:"location"`
	Message  string   `json:"message"`
}

// SecurityReport is the security scanner's section. RiskScore is derived by the aggregator.
type SecurityReport struct {
	Vulnerabilities []Finding `json:"vulnerabilities"`
	RiskScore       float64   `json:"riskScore"`
}

// AccessibilityReport is the accessibility analyzer's section
type AccessibilityReport struct {
	Violations []Finding `json:"violations"`
	Score      float64   `json:"score"`
}

// ModuleSummary describes one generated module inside moduleAnalysis
type ModuleSummary struct {
	ModuleID     string   `json:"moduleId"`
	Dependencies []string `json:"dependencies"`
	Exports      []string `json:"exports,omitempty"`
	Coverage     float64  `json:"coverage"`
}

// ModuleAnalysis is present when the analysed source came out of a generation run
type ModuleAnalysis struct {
	Modules          []ModuleSummary `json:"modules"`
	ExternalPackages []string        `json:"externalPackages"`
	AverageCoverage  float64         `json:"averageCoverage"`
}

// Diagnostic records an analyzer that failed and whose section was degraded
type Diagnostic struct {
	Section  string    `json:"section"`
	Analyzer string    `json:"analyzer"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// AnalysisResult is the merged report for one source fingerprint
type AnalysisResult struct {
	Fingerprint         string                `json:"fingerprint"`
	SemanticAnalysis    SemanticAnalysis      `json:"semanticAnalysis"`
	ContextAnalysis     ContextAnalysis       `json:"contextAnalysis"`
	DependencyGraph     DependencyGraphResult `json:"dependencyGraph"`
	PerformanceMetrics  PerformanceMetrics    `json:"performanceMetrics"`
	SecurityReport      SecurityReport        `json:"securityReport"`
	AccessibilityReport AccessibilityReport   `json:"accessibilityReport"`
	ModuleAnalysis      *ModuleAnalysis       `json:"moduleAnalysis,omitempty"`
	Diagnostics         []Diagnostic          `json:"diagnostics"`
	GeneratedAt         time.Time             `json:"generatedAt"`
}

// Degraded reports whether any section fell back to its default value.
func (r *AnalysisResult) Degraded() bool {
	return len(r.Diagnostics) > 0
}

// DiagnosticFor returns the diagnostic recorded for section, if any.
func (r *AnalysisResult) DiagnosticFor(section string) (Diagnostic, bool) {
	for _, d := range r.Diagnostics {
		if d.Section == section {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// CachedAnalysis is a result with its validity window
type CachedAnalysis struct {
	Result    AnalysisResult `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// ValidAt reports whether the entry may still be served at now.
func (c CachedAnalysis) ValidAt(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}
