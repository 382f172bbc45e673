package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/vampirenirmal/codeorc/internal/core"
)

// OutputNaming decides how a run's output directory is named.
type OutputNaming int

const (
	// OutputRunID uses the full run id (default)
	OutputRunID OutputNaming = iota
	// OutputTimestamp uses timestamp + short run id
	OutputTimestamp
	// OutputDescriptive uses timestamp + sanitized label + short run id
	OutputDescriptive
)

// ParseOutputNaming maps a flag value to a naming strategy.
func ParseOutputNaming(s string) (OutputNaming, error) {
	switch strings.ToLower(s) {
	case "", "id":
		return OutputRunID, nil
	case "timestamp":
		return OutputTimestamp, nil
	case "descriptive":
		return OutputDescriptive, nil
	default:
		return 0, fmt.Errorf("unknown output naming %q", s)
	}
}

// RunOutputPath returns the directory, relative to the output store, that
// receives the files of one run.
func RunOutputPath(runID, label string, naming OutputNaming, now time.Time) string {
	shortID := runID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	switch naming {
	case OutputTimestamp:
		// Format: 2025-07-16_1530_82f06b15
		return filepath.ToSlash(filepath.Join("runs", fmt.Sprintf("%s_%s", now.Format("2006-01-02_1504"), shortID)))
	case OutputDescriptive:
		// Format: 2025-07-16_1530_web-shop_82f06b15
		return filepath.ToSlash(filepath.Join("runs", fmt.Sprintf("%s_%s_%s", now.Format("2006-01-02_1504"), sanitizeForFilename(label, 30), shortID)))
	default:
		return filepath.ToSlash(filepath.Join("runs", runID))
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// sanitizeForFilename converts a string to a safe filename component
func sanitizeForFilename(s string, maxLen int) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "-", "/", "-", "\\", "-", ":", "-", ".", "-", "_", "-").Replace(s)
	s = unsafeFilenameChars.ReplaceAllString(s, "")

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	if s == "" {
		s = "output"
	}
	return s
}

// WriteRunOutput saves every generated file under dir plus a MANIFEST.md that
// lists them. Paths are validated by the store.
func WriteRunOutput(ctx context.Context, store core.Storage, dir, runID string, files map[string]string, now time.Time) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := store.Save(ctx, dir+"/"+p, []byte(files[p])); err != nil {
			return fmt.Errorf("writing %s: %w", p, err)
		}
	}
	return store.Save(ctx, dir+"/MANIFEST.md", runManifest(runID, paths, now))
}

func runManifest(runID string, paths []string, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run Manifest\n\n**Run ID**: %s\n**Date**: %s\n**Files**: %d\n\n## Output Files\n\n",
		runID, now.Format("2006-01-02 15:04:05"), len(paths))
	for _, p := range paths {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	return []byte(b.String())
}
