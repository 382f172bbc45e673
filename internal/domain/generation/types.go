package generation

import (
	"sort"
	"time"
)

// FileType classifies a generated artifact
type FileType string

const (
	FileComponent FileType = "component"
	FileHook      FileType = "hook"
	FileUtil      FileType = "util"
	FileTest      FileType = "test"
	FileTypeDecl  FileType = "type"
)

// Requirements lists what a file needs from, and offers to, its peers
type Requirements struct {
	Imports []string `json:"imports,omitempty" yaml:"imports"`
	Exports []string `json:"exports,omitempty" yaml:"exports"`
	Types   []string `json:"types,omitempty" yaml:"types"`
}

// FileSpec describes a single file a module produces
type FileSpec struct {
	Path     string       `json:"path" yaml:"path" validate:"required"`
	Type     FileType     `json:"type" yaml:"type" validate:"required,oneof=component hook util test type"`
	Content  string       `json:"content,omitempty" yaml:"content"`
	Requires Requirements `json:"requires" yaml:"requires"`
}

// ModuleDefinition is one unit of generation work
type ModuleDefinition struct {
	ID           string     `json:"id" yaml:"id" validate:"required"`
	Name         string     `json:"name" yaml:"name"`
	Dependencies []string   `json:"dependencies" yaml:"dependencies" validate:"dive,required"`
	Files        []FileSpec `json:"files" yaml:"files" validate:"dive"`
	Order        int        `json:"order" yaml:"order"`
}

// ModuleOutput is what a generator hands back for one module
type ModuleOutput struct {
	Files       map[string]string `json:"files"`
	SharedState map[string]string `json:"sharedState,omitempty"`
}

// Structure holds produced artifact paths grouped by file type
type Structure struct {
	Components []string `json:"components"`
	Hooks      []string `json:"hooks"`
	Utils      []string `json:"utils"`
	Tests      []string `json:"tests"`
	Types      []string `json:"types"`
}

// Add records path under the list for kind, keeping the list sorted and unique.
func (s *Structure) Add(kind FileType, path string) {
	var list *[]string
	switch kind {
	case FileComponent:
		list = &s.Components
	case FileHook:
		list = &s.Hooks
	case FileTest:
		list = &s.Tests
	case FileTypeDecl:
		list = &s.Types
	default:
		list = &s.Utils
	}
	*list = insertSorted(*list, path)
}

// Dependencies tracks what modules actually used
type Dependencies struct {
	Internal map[string][]string `json:"internal"`
	External []string            `json:"external"`
}

// AddExternal records an external package name, keeping External sorted and unique.
func (d *Dependencies) AddExternal(pkg string) {
	d.External = insertSorted(d.External, pkg)
}

// APIEntry is the public surface a module declared
type APIEntry struct {
	Exports []string `json:"exports,omitempty"`
	Types   []string `json:"types,omitempty"`
}

// ProjectContext is the project-wide state accumulated while modules complete.
// It is owned by the generation state machine; everyone else works on a Clone.
type ProjectContext struct {
	Structure    Structure           `json:"structure"`
	Dependencies Dependencies        `json:"dependencies"`
	SharedState  map[string]string   `json:"sharedState"`
	APISchema    map[string]APIEntry `json:"apiSchema"`
	TestCoverage map[string]float64  `json:"testCoverage"`
}

// NewProjectContext returns an empty context with all maps allocated.
func NewProjectContext() ProjectContext {
	return ProjectContext{
		Dependencies: Dependencies{Internal: make(map[string][]string)},
		SharedState:  make(map[string]string),
		APISchema:    make(map[string]APIEntry),
		TestCoverage: make(map[string]float64),
	}
}

// Clone returns a deep copy that shares no memory with c.
func (c ProjectContext) Clone() ProjectContext {
	out := NewProjectContext()
	out.Structure = Structure{
		Components: cloneStrings(c.Structure.Components),
		Hooks:      cloneStrings(c.Structure.Hooks),
		Utils:      cloneStrings(c.Structure.Utils),
		Tests:      cloneStrings(c.Structure.Tests),
		Types:      cloneStrings(c.Structure.Types),
	}
	for id, deps := range c.Dependencies.Internal {
		out.Dependencies.Internal[id] = cloneStrings(deps)
	}
	out.Dependencies.External = cloneStrings(c.Dependencies.External)
	for k, v := range c.SharedState {
		out.SharedState[k] = v
	}
	for id, api := range c.APISchema {
		out.APISchema[id] = APIEntry{Exports: cloneStrings(api.Exports), Types: cloneStrings(api.Types)}
	}
	for id, cov := range c.TestCoverage {
		out.TestCoverage[id] = cov
	}
	return out
}

// AverageCoverage returns the mean test coverage fraction over recorded modules.
func (c ProjectContext) AverageCoverage() (float64, bool) {
	if len(c.TestCoverage) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range c.TestCoverage {
		sum += v
	}
	return sum / float64(len(c.TestCoverage)), true
}

// Status is the lifecycle state of a generation run
type Status string

const (
	StatusIdle       Status = "idle"
	StatusScheduling Status = "scheduling"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// HistoryEntry is one append-only record in a run's generation log
type HistoryEntry struct {
	ModuleID      string    `json:"moduleId"`
	Timestamp     time.Time `json:"timestamp"`
	ContextDigest string    `json:"contextDigest"`
}

// GenerationState is the serializable record of a single generation run
type GenerationState struct {
	RunID             string                      `json:"runId"`
	Status            Status                      `json:"status"`
	CurrentModule     string                      `json:"currentModule,omitempty"`
	CompletedModules  []string                    `json:"completedModules"`
	FailedModules     map[string]string           `json:"failedModules,omitempty"`
	ModuleDefinitions map[string]ModuleDefinition `json:"moduleDefinitions"`
	GeneratedFiles    map[string]string           `json:"generatedFiles"`
	ProjectContext    ProjectContext              `json:"projectContext"`
	GenerationHistory []HistoryEntry              `json:"generationHistory"`
}

// NewGenerationState returns an idle state for the given run.
func NewGenerationState(runID string, modules map[string]ModuleDefinition) GenerationState {
	defs := make(map[string]ModuleDefinition, len(modules))
	for id, m := range modules {
		defs[id] = m
	}
	return GenerationState{
		RunID:             runID,
		Status:            StatusIdle,
		CompletedModules:  []string{},
		FailedModules:     make(map[string]string),
		ModuleDefinitions: defs,
		GeneratedFiles:    make(map[string]string),
		ProjectContext:    NewProjectContext(),
		GenerationHistory: []HistoryEntry{},
	}
}

// IsCompleted reports whether id finished successfully in this run.
func (s GenerationState) IsCompleted(id string) bool {
	for _, done := range s.CompletedModules {
		if done == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state.
func (s GenerationState) Clone() GenerationState {
	out := s
	out.CompletedModules = cloneStrings(s.CompletedModules)
	if out.CompletedModules == nil {
		out.CompletedModules = []string{}
	}
	out.FailedModules = make(map[string]string, len(s.FailedModules))
	for k, v := range s.FailedModules {
		out.FailedModules[k] = v
	}
	out.ModuleDefinitions = make(map[string]ModuleDefinition, len(s.ModuleDefinitions))
	for k, v := range s.ModuleDefinitions {
		out.ModuleDefinitions[k] = v
	}
	out.GeneratedFiles = make(map[string]string, len(s.GeneratedFiles))
	for k, v := range s.GeneratedFiles {
		out.GeneratedFiles[k] = v
	}
	out.ProjectContext = s.ProjectContext.Clone()
	out.GenerationHistory = append([]HistoryEntry{}, s.GenerationHistory...)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
