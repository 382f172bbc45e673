package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOutputPath(t *testing.T) {
	now := time.Date(2025, 7, 16, 15, 30, 0, 0, time.UTC)
	runID := "82f06b15-1111-2222-3333-444455556666"

	assert.Equal(t, "runs/"+runID, RunOutputPath(runID, "", OutputRunID, now))
	assert.Equal(t, "runs/2025-07-16_1530_82f06b15", RunOutputPath(runID, "", OutputTimestamp, now))
	assert.Equal(t, "runs/2025-07-16_1530_web-shop-v2_82f06b15", RunOutputPath(runID, "Web Shop (v2)", OutputDescriptive, now))
	assert.Equal(t, "runs/2025-07-16_1530_short", RunOutputPath("short", "", OutputTimestamp, now))
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Hello World", 30, "hello-world"},
		{"a/b\\c:d", 30, "a-b-c-d"},
		{"***", 30, "output"},
		{"--lead and trail--", 30, "lead-and-trail"},
		{"abcdefghij-klmnop", 11, "abcdefghij"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeForFilename(tt.in, tt.max), tt.in)
	}
}

func TestParseOutputNaming(t *testing.T) {
	n, err := ParseOutputNaming("Descriptive")
	require.NoError(t, err)
	assert.Equal(t, OutputDescriptive, n)

	_, err = ParseOutputNaming("random")
	assert.Error(t, err)
}

func TestWriteRunOutput(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Date(2025, 7, 16, 15, 30, 0, 0, time.UTC)

	files := map[string]string{
		"src/b.ts": "export const b = 1",
		"src/a.ts": "export const a = 1",
	}
	require.NoError(t, WriteRunOutput(ctx, store, "runs/r1", "r1", files, now))

	got, err := store.List(ctx, "runs/r1/src/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/r1/src/a.ts", "runs/r1/src/b.ts"}, got)

	manifest, err := store.Load(ctx, "runs/r1/MANIFEST.md")
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "**Run ID**: r1")
	assert.Contains(t, string(manifest), "- src/a.ts\n- src/b.ts\n")
}
