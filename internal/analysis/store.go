package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/core"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

const reportsPrefix = "analysis/"

// ReportStore persists cached analyses so a result outlives the process.
type ReportStore struct {
	storage core.Storage
}

func NewReportStore(storage core.Storage) *ReportStore {
	return &ReportStore{storage: storage}
}

func reportPath(fp string) string {
	return fmt.Sprintf("%s%s.json", reportsPrefix, fp)
}

func (s *ReportStore) Save(ctx context.Context, fp string, entry domain.CachedAnalysis) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return s.storage.Save(ctx, reportPath(fp), data)
}

func (s *ReportStore) Load(ctx context.Context, fp string) (domain.CachedAnalysis, error) {
	data, err := s.storage.Load(ctx, reportPath(fp))
	if err != nil {
		return domain.CachedAnalysis{}, fmt.Errorf("loading report: %w", err)
	}

	var entry domain.CachedAnalysis
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.CachedAnalysis{}, fmt.Errorf("unmarshaling report: %w", err)
	}
	return entry, nil
}

// Exists reports whether a record for fp is stored, valid or not.
func (s *ReportStore) Exists(ctx context.Context, fp string) bool {
	return s.storage.Exists(ctx, reportPath(fp))
}

// List returns the stored fingerprints in sorted order.
func (s *ReportStore) List(ctx context.Context) ([]string, error) {
	files, err := s.storage.List(ctx, reportsPrefix+"*.json")
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	fps := make([]string, 0, len(files))
	for _, f := range files {
		fps = append(fps, strings.TrimSuffix(strings.TrimPrefix(f, reportsPrefix), ".json"))
	}
	sort.Strings(fps)
	return fps, nil
}

func (s *ReportStore) Delete(ctx context.Context, fp string) error {
	return s.storage.Delete(ctx, reportPath(fp))
}
