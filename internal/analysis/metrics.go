package analysis

import (
	"regexp"
	"strings"
)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)

	// Branching keywords and short-circuit operators each add one path.
	decisionPoint = regexp.MustCompile(`\b(?:if|for|while|case|catch)\b|&&|\|\||\?\?|\?\s*[^.:?\s]`)
)

// StripComments blanks block comments and whole-line "//" comments while
// keeping every newline, so offsets still map to the original line numbers.
// Trailing line comments are left alone so URLs inside strings survive.
func StripComments(content string) string {
	out := blockComment.ReplaceAllStringFunc(content, func(c string) string {
		return strings.Repeat("\n", strings.Count(c, "\n"))
	})
	return lineComment.ReplaceAllString(out, "")
}

// DecisionPoints counts branching constructs in ES-style source.
func DecisionPoints(content string) int {
	return len(decisionPoint.FindAllStringIndex(StripComments(content), -1))
}

// CommentLines counts lines that are, or belong to, a comment.
func CommentLines(content string) int {
	n := 0
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		switch {
		case inBlock:
			n++
			if strings.Contains(t, "*/") {
				inBlock = false
			}
		case strings.HasPrefix(t, "//"):
			n++
		case strings.HasPrefix(t, "/*"):
			n++
			inBlock = !strings.Contains(t, "*/")
		}
	}
	return n
}
