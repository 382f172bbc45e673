package heuristics

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	"github.com/vampirenirmal/codeorc/internal/analysis/depgraph"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

var (
	functionDecl = regexp.MustCompile(`\bfunction\b`)
	arrowFunc    = regexp.MustCompile(`=>`)
	methodDecl   = regexp.MustCompile(`(?m)^\s*(?:(?:public|private|protected|static|async|get|set)\s+)*([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*(?::\s*[^{]+)?\{`)
	classDecl    = regexp.MustCompile(`\bclass\s+[A-Za-z_$]`)
	exportStmt   = regexp.MustCompile(`(?m)^\s*export\b`)

	emptyCatch = regexp.MustCompile(`catch\s*(?:\([^)]*\))?\s*\{\s*\}`)
	anyType    = regexp.MustCompile(`:\s*any\b|\bas\s+any\b`)
	tsSuppress = regexp.MustCompile(`@ts-(?:ignore|nocheck)`)
)

var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "function": true, "return": true,
}

const (
	complexityBudget = 5
	nestingBudget    = 4
	longFileLines    = 400
	// A comment ratio of 1:4 earns full documentation marks.
	documentationRatio = 4
)

// CyclomaticComplexity is the decision-point count of content plus one.
func CyclomaticComplexity(content string) int {
	return analysis.DecisionPoints(content) + 1
}

// Semantic is the default CodeAnalyzer.
type Semantic struct {
	logger *slog.Logger
}

func NewSemantic(logger *slog.Logger) *Semantic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Semantic{logger: logger.With("analyzer", "semantic")}
}

func (s *Semantic) Name() string { return "semantic" }

func (s *Semantic) Analyze(ctx context.Context, src analysis.Source) (domain.SemanticAnalysis, error) {
	var (
		st        domain.CodeStructure
		cx        domain.Complexity
		codeLines int
		longFiles int
		swallowed int
		loose     int
		sources   []string
		tests     []string
	)

	st.Files = len(src.Files)
	for _, f := range src.Files {
		if err := ctx.Err(); err != nil {
			return domain.SemanticAnalysis{}, err
		}

		lines := countLines(f.Content)
		st.Lines += lines
		if !isScript(f.Path) {
			continue
		}
		if isTest(f.Path) {
			tests = append(tests, f.Path)
		} else {
			sources = append(sources, f.Path)
		}
		if generation.ClassifyPath(f.Path) == generation.FileComponent {
			st.Components++
		}
		if lines > longFileLines {
			longFiles++
		}

		comments := analysis.CommentLines(f.Content)
		st.CommentLines += comments
		codeLines += lines - comments

		code := analysis.StripComments(f.Content)
		st.Functions += countFunctions(code)
		st.Classes += len(classDecl.FindAllStringIndex(code, -1))
		st.Imports += len(depgraph.Specifiers(f.Content))
		st.Exports += len(exportStmt.FindAllStringIndex(code, -1))

		cx.Cyclomatic += analysis.DecisionPoints(f.Content)
		cognitive, depth := nestingProfile(code)
		cx.Cognitive += cognitive
		cx.MaxNestingDepth = max(cx.MaxNestingDepth, depth)

		swallowed += len(emptyCatch.FindAllStringIndex(code, -1))
		loose += len(anyType.FindAllStringIndex(code, -1)) + len(tsSuppress.FindAllStringIndex(f.Content, -1))
	}

	// Every function contributes its own entry path.
	cx.Cyclomatic += st.Functions
	if st.Functions > 0 {
		cx.AveragePerFunc = float64(cx.Cyclomatic) / float64(st.Functions)
	}

	q := domain.QualityIndicators{
		Maintainability: clamp100(100 -
			max(0, cx.AveragePerFunc-complexityBudget)*5 -
			float64(max(0, cx.MaxNestingDepth-nestingBudget))*5 -
			float64(longFiles)*5),
		Reliability: clamp100(100 - float64(swallowed)*10 - float64(loose)*3),
		Coverage:    estimateCoverage(sources, tests),
	}
	if codeLines > 0 {
		q.Documentation = clamp100(float64(st.CommentLines) / float64(codeLines) * 100 * documentationRatio)
	}

	s.logger.Debug("semantic analysis done", "files", st.Files, "functions", st.Functions, "cyclomatic", cx.Cyclomatic)
	return domain.SemanticAnalysis{CodeStructure: st, Complexity: cx, QualityIndicators: q}, nil
}

func countFunctions(code string) int {
	n := len(functionDecl.FindAllStringIndex(code, -1)) + len(arrowFunc.FindAllStringIndex(code, -1))
	for _, m := range methodDecl.FindAllStringSubmatch(code, -1) {
		if !controlKeywords[m[1]] {
			n++
		}
	}
	return n
}

// nestingProfile walks braces outside of string literals. It returns a
// cognitive score, where each decision point costs one plus its nesting
// level, and the deepest brace nesting seen.
func nestingProfile(code string) (cognitive, maxDepth int) {
	depthAt := make([]int, len(code)+1)
	depth := 0
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '{':
			depth++
			maxDepth = max(maxDepth, depth)
		case c == '}':
			depth = max(0, depth-1)
		}
		depthAt[i] = depth
	}

	for _, loc := range decisionKeyword.FindAllStringIndex(code, -1) {
		// The enclosing function body is level zero.
		cognitive += 1 + max(0, depthAt[loc[0]]-1)
	}
	return cognitive, maxDepth
}

var decisionKeyword = regexp.MustCompile(`\b(?:if|for|while|case|catch)\b|&&|\|\|`)

func estimateCoverage(sources, tests []string) float64 {
	if len(sources) == 0 {
		return 0
	}
	covered := 0
	for _, s := range sources {
		for _, t := range tests {
			if generation.IsTestFor(t, s) {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(sources)) * 100
}

func clamp100(v float64) float64 {
	return max(0, min(100, v))
}
