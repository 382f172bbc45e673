package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
	"github.com/vampirenirmal/codeorc/internal/resolver"
)

// Machine drives one generation run, module by module, in resolver order.
// It is the only writer of the run's GenerationState; Snapshot hands out copies.
type Machine struct {
	generator     Generator
	logger        *slog.Logger
	checkpoint    *CheckpointManager
	clock         Clock
	moduleTimeout time.Duration
	runID         string

	started atomic.Bool
	mu      sync.RWMutex
	state   generation.GenerationState
}

type MachineOption func(*Machine)

func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCheckpoints saves the run state after every step.
func WithCheckpoints(cm *CheckpointManager) MachineOption {
	return func(m *Machine) {
		m.checkpoint = cm
	}
}

func WithMachineClock(clock Clock) MachineOption {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithModuleTimeout bounds a single Generate call. Zero disables the bound.
func WithModuleTimeout(d time.Duration) MachineOption {
	return func(m *Machine) {
		m.moduleTimeout = d
	}
}

func WithRunID(runID string) MachineOption {
	return func(m *Machine) {
		if runID != "" {
			m.runID = runID
		}
	}
}

func NewMachine(generator Generator, opts ...MachineOption) *Machine {
	m := &Machine{
		generator: generator,
		logger:    slog.Default().With("component", "generation"),
		clock:     time.Now,
		runID:     uuid.New().String(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = generation.NewGenerationState(m.runID, nil)
	return m
}

func (m *Machine) RunID() string {
	return m.runID
}

// Status returns the current lifecycle state.
func (m *Machine) Status() generation.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Status
}

// Snapshot returns a deep copy of the run state. It is safe to call while the
// run is in progress.
func (m *Machine) Snapshot() generation.GenerationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Run schedules modules and generates them one at a time. On failure or
// cancellation the returned state holds everything committed so far.
func (m *Machine) Run(ctx context.Context, modules map[string]generation.ModuleDefinition) (generation.GenerationState, error) {
	if !m.started.CompareAndSwap(false, true) {
		return m.Snapshot(), ErrAlreadyStarted
	}

	m.mu.Lock()
	m.state = generation.NewGenerationState(m.runID, modules)
	m.mu.Unlock()
	m.setStatus(generation.StatusScheduling)

	order, err := resolver.Resolve(modules)
	if err != nil {
		m.setStatus(generation.StatusFailed)
		m.save(ctx)
		m.logger.Error("scheduling failed", "run_id", m.runID, "error", err)
		return m.Snapshot(), fmt.Errorf("scheduling modules: %w", err)
	}

	m.logger.Info("generation started", "run_id", m.runID, "modules", len(order))
	return m.generate(ctx, order)
}

// Resume continues a checkpointed run, generating only modules that have not
// completed. Modules that failed earlier are retried.
func (m *Machine) Resume(ctx context.Context, saved generation.GenerationState) (generation.GenerationState, error) {
	if saved.Status == generation.StatusCompleted {
		return saved.Clone(), ErrNothingToResume
	}
	if !m.started.CompareAndSwap(false, true) {
		return m.Snapshot(), ErrAlreadyStarted
	}

	state := saved.Clone()
	normalize(&state)
	if state.RunID == "" {
		state.RunID = m.runID
	}
	m.runID = state.RunID

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	m.setStatus(generation.StatusScheduling)

	order, err := resolver.Resolve(state.ModuleDefinitions)
	if err != nil {
		m.setStatus(generation.StatusFailed)
		m.save(ctx)
		return m.Snapshot(), fmt.Errorf("scheduling modules: %w", err)
	}

	remaining := make([]string, 0, len(order))
	for _, id := range order {
		if !state.IsCompleted(id) {
			remaining = append(remaining, id)
		}
	}

	m.logger.Info("generation resumed",
		"run_id", m.runID,
		"completed", len(state.CompletedModules),
		"remaining", len(remaining))
	return m.generate(ctx, remaining)
}

func (m *Machine) generate(ctx context.Context, order []string) (generation.GenerationState, error) {
	m.setStatus(generation.StatusGenerating)

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return m.cancel(ctx, err)
		}

		m.mu.Lock()
		m.state.CurrentModule = id
		module := m.state.ModuleDefinitions[id]
		project := m.state.ProjectContext.Clone()
		m.mu.Unlock()

		start := m.clock()
		output, err := m.generateModule(ctx, module, project)
		if err != nil {
			if ctx.Err() != nil {
				return m.cancel(ctx, ctx.Err())
			}
			if errors.Is(err, context.Canceled) {
				return m.cancel(ctx, err)
			}
			return m.fail(ctx, id, err)
		}

		digest := m.commit(module, output)
		m.save(ctx)
		m.logger.Info("module generated",
			"run_id", m.runID,
			"module", id,
			"files", len(output.Files),
			"duration", m.clock().Sub(start),
			"digest", digest)
	}

	m.mu.Lock()
	m.state.CurrentModule = ""
	m.state.Status = generation.StatusCompleted
	m.mu.Unlock()
	m.save(ctx)

	m.logger.Info("generation completed", "run_id", m.runID)
	return m.Snapshot(), nil
}

func (m *Machine) generateModule(ctx context.Context, module generation.ModuleDefinition, project generation.ProjectContext) (generation.ModuleOutput, error) {
	if m.moduleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.moduleTimeout)
		defer cancel()
	}
	return m.generator.Generate(ctx, module, project)
}

func (m *Machine) cancel(ctx context.Context, cause error) (generation.GenerationState, error) {
	m.setStatus(generation.StatusCancelled)
	m.save(ctx)
	m.logger.Warn("generation cancelled", "run_id", m.runID, "cause", cause)
	return m.Snapshot(), cancelled(cause)
}

func (m *Machine) fail(ctx context.Context, id string, err error) (generation.GenerationState, error) {
	genErr := NewModuleGenerationError(id, err)

	m.mu.Lock()
	m.state.FailedModules[id] = genErr.Message
	m.state.Status = generation.StatusFailed
	m.mu.Unlock()
	m.save(ctx)

	m.logger.Error("module generation failed", "run_id", m.runID, "module", id, "error", err)
	return m.Snapshot(), genErr
}

func (m *Machine) setStatus(status generation.Status) {
	m.mu.Lock()
	m.state.Status = status
	m.mu.Unlock()
	m.logger.Debug("status changed", "run_id", m.runID, "status", status)
}

// save writes a checkpoint when configured. It ignores caller cancellation so
// a cancelled run still records where it stopped. A failed write is logged and
// the run carries on.
func (m *Machine) save(ctx context.Context) {
	if m.checkpoint == nil {
		return
	}
	if err := m.checkpoint.Save(context.WithoutCancel(ctx), m.Snapshot()); err != nil {
		m.logger.Warn("checkpoint write failed", "run_id", m.runID, "error", err)
	}
}

// commit merges a module's output into the run state and returns the digest
// of the resulting project context.
func (m *Machine) commit(module generation.ModuleDefinition, output generation.ModuleOutput) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := &m.state
	pc := &state.ProjectContext

	declared := make(map[string]generation.FileType, len(module.Files))
	for _, f := range module.Files {
		declared[f.Path] = f.Type
	}

	paths := make([]string, 0, len(output.Files))
	for p := range output.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	kinds := make(map[string]generation.FileType, len(paths))
	for _, p := range paths {
		state.GeneratedFiles[p] = output.Files[p]
		kind, ok := declared[p]
		if !ok || kind == "" {
			kind = generation.ClassifyPath(p)
		}
		kinds[p] = kind
		pc.Structure.Add(kind, p)
	}

	internal := make(map[string]bool)
	for _, dep := range module.Dependencies {
		internal[dep] = true
	}
	var api generation.APIEntry
	for _, f := range module.Files {
		for _, imp := range f.Requires.Imports {
			if _, isModule := state.ModuleDefinitions[imp]; isModule {
				if imp != module.ID {
					internal[imp] = true
				}
				continue
			}
			if pkg, ok := generation.ExternalPackage(imp); ok {
				pc.Dependencies.AddExternal(pkg)
			}
		}
		api.Exports = append(api.Exports, f.Requires.Exports...)
		api.Types = append(api.Types, f.Requires.Types...)
	}
	used := make([]string, 0, len(internal))
	for dep := range internal {
		used = append(used, dep)
	}
	sort.Strings(used)
	pc.Dependencies.Internal[module.ID] = used

	if len(api.Exports) > 0 || len(api.Types) > 0 {
		pc.APISchema[module.ID] = generation.APIEntry{
			Exports: dedupe(api.Exports),
			Types:   dedupe(api.Types),
		}
	}

	for k, v := range output.SharedState {
		pc.SharedState[k] = v
	}

	pc.TestCoverage[module.ID] = coverage(paths, kinds)

	state.CompletedModules = append(state.CompletedModules, module.ID)
	delete(state.FailedModules, module.ID)

	digest := contextDigest(*pc)
	state.GenerationHistory = append(state.GenerationHistory, generation.HistoryEntry{
		ModuleID:      module.ID,
		Timestamp:     m.clock(),
		ContextDigest: digest,
	})
	return digest
}

// coverage is the fraction of non-test files that have a matching test file
// among the same module's output.
func coverage(paths []string, kinds map[string]generation.FileType) float64 {
	var sources, tests []string
	for _, p := range paths {
		if kinds[p] == generation.FileTest {
			tests = append(tests, p)
		} else {
			sources = append(sources, p)
		}
	}
	if len(sources) == 0 {
		return 0
	}

	covered := 0
	for _, src := range sources {
		for _, t := range tests {
			if generation.IsTestFor(t, src) {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(sources))
}

func contextDigest(pc generation.ProjectContext) string {
	data, err := json.Marshal(pc)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
