// Package analysis fans source code out to independent analyzers and merges
// their sections into one cached report.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

// SourceFile is one file handed to the analyzers
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Source is the input of an analysis. Fingerprint identifies it in the cache;
// when empty it is derived from the files and the project context.
type Source struct {
	Fingerprint string
	Files       []SourceFile
	Context     *generation.ProjectContext
}

// NewSource builds a source from a path to content map. Files are sorted by path.
func NewSource(files map[string]string) Source {
	out := make([]SourceFile, 0, len(files))
	for p, content := range files {
		out = append(out, SourceFile{Path: p, Content: content})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return Source{Files: out}
}

// SourceFromState returns the generated files of a run together with a copy of
// its project context.
func SourceFromState(state generation.GenerationState) Source {
	src := NewSource(state.GeneratedFiles)
	pc := state.ProjectContext.Clone()
	src.Context = &pc
	return src
}

// Empty reports whether there is nothing to analyze.
func (s Source) Empty() bool {
	for _, f := range s.Files {
		if strings.TrimSpace(f.Content) != "" {
			return false
		}
	}
	return true
}

// Key returns the explicit fingerprint or computes one.
func (s Source) Key() string {
	if s.Fingerprint != "" {
		return s.Fingerprint
	}
	return Fingerprint(s)
}

// Text concatenates all file contents in path order.
func (s Source) Text() string {
	var b strings.Builder
	for _, f := range s.sortedFiles() {
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// clone gives each analyzer its own copy so none can disturb another.
func (s Source) clone() Source {
	out := Source{Fingerprint: s.Fingerprint, Files: append([]SourceFile(nil), s.Files...)}
	if s.Context != nil {
		pc := s.Context.Clone()
		out.Context = &pc
	}
	return out
}

func (s Source) sortedFiles() []SourceFile {
	files := append([]SourceFile(nil), s.Files...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// Fingerprint is the hex SHA-256 over the sorted path/content pairs, plus the
// project context when one is attached.
func Fingerprint(s Source) string {
	h := sha256.New()
	for _, f := range s.sortedFiles() {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write([]byte(f.Content))
		h.Write([]byte{0})
	}
	if s.Context != nil {
		if data, err := json.Marshal(s.Context); err == nil {
			h.Write([]byte("context\x00"))
			h.Write(data)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
