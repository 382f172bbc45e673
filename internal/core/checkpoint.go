package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

const runsPrefix = "runs/"

// CheckpointManager persists generation state snapshots, one record per run.
type CheckpointManager struct {
	storage Storage
}

func NewCheckpointManager(storage Storage) *CheckpointManager {
	return &CheckpointManager{
		storage: storage,
	}
}

func runPath(runID string) string {
	return fmt.Sprintf("%s%s.json", runsPrefix, runID)
}

// Save overwrites the checkpoint for state.RunID.
func (cm *CheckpointManager) Save(ctx context.Context, state generation.GenerationState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	return cm.storage.Save(ctx, runPath(state.RunID), data)
}

func (cm *CheckpointManager) Load(ctx context.Context, runID string) (generation.GenerationState, error) {
	data, err := cm.storage.Load(ctx, runPath(runID))
	if err != nil {
		return generation.GenerationState{}, fmt.Errorf("loading checkpoint: %w", err)
	}

	var state generation.GenerationState
	if err := json.Unmarshal(data, &state); err != nil {
		return generation.GenerationState{}, fmt.Errorf("unmarshaling checkpoint: %w", err)
	}
	normalize(&state)
	return state, nil
}

// List returns every readable checkpoint sorted by run id. Records that fail
// to load or decode are skipped.
func (cm *CheckpointManager) List(ctx context.Context) ([]generation.GenerationState, error) {
	files, err := cm.storage.List(ctx, runsPrefix+"*.json")
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	sort.Strings(files)

	var states []generation.GenerationState
	for _, file := range files {
		data, err := cm.storage.Load(ctx, file)
		if err != nil {
			continue
		}

		var state generation.GenerationState
		if err := json.Unmarshal(data, &state); err != nil {
			continue
		}
		if state.RunID == "" {
			state.RunID = strings.TrimSuffix(strings.TrimPrefix(file, runsPrefix), ".json")
		}
		normalize(&state)
		states = append(states, state)
	}

	return states, nil
}

func (cm *CheckpointManager) Delete(ctx context.Context, runID string) error {
	return cm.storage.Delete(ctx, runPath(runID))
}

// normalize allocates maps that JSON leaves nil so a loaded state can be
// mutated like a fresh one.
func normalize(state *generation.GenerationState) {
	if state.CompletedModules == nil {
		state.CompletedModules = []string{}
	}
	if state.FailedModules == nil {
		state.FailedModules = make(map[string]string)
	}
	if state.ModuleDefinitions == nil {
		state.ModuleDefinitions = make(map[string]generation.ModuleDefinition)
	}
	if state.GeneratedFiles == nil {
		state.GeneratedFiles = make(map[string]string)
	}
	if state.GenerationHistory == nil {
		state.GenerationHistory = []generation.HistoryEntry{}
	}
	pc := &state.ProjectContext
	if pc.Dependencies.Internal == nil {
		pc.Dependencies.Internal = make(map[string][]string)
	}
	if pc.SharedState == nil {
		pc.SharedState = make(map[string]string)
	}
	if pc.APISchema == nil {
		pc.APISchema = make(map[string]generation.APIEntry)
	}
	if pc.TestCoverage == nil {
		pc.TestCoverage = make(map[string]float64)
	}
}
