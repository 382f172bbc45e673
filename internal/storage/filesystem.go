package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystem stores each record as a file below baseDir.
type FileSystem struct {
	baseDir string
}

func NewFileSystem(baseDir string) *FileSystem {
	return &FileSystem{
		baseDir: filepath.Clean(baseDir),
	}
}

// sanitizePath validates and cleans the path to prevent directory traversal
func (f *FileSystem) sanitizePath(p string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(p))

	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: contains parent directory reference", ErrInvalidPath)
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: absolute paths not allowed", ErrInvalidPath)
	}

	fullPath := filepath.Join(f.baseDir, cleaned)

	// Guards against anything Clean and Join did not catch.
	if !strings.HasPrefix(fullPath, f.baseDir+string(filepath.Separator)) && fullPath != f.baseDir {
		return "", fmt.Errorf("%w: outside base directory", ErrInvalidPath)
	}

	return fullPath, nil
}

// Save writes through a temporary file and a rename so readers never observe
// a half-written record.
func (f *FileSystem) Save(ctx context.Context, p string, data []byte) error {
	fullPath, err := f.sanitizePath(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("renaming file: %w", err)
	}

	return nil
}

func (f *FileSystem) Load(ctx context.Context, p string) ([]byte, error) {
	fullPath, err := f.sanitizePath(p)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return data, nil
}

// List returns slash-separated paths relative to baseDir, sorted.
func (f *FileSystem) List(ctx context.Context, pattern string) ([]string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(pattern))
	if strings.Contains(cleaned, "..") {
		return nil, fmt.Errorf("%w: pattern contains parent directory reference", ErrInvalidPath)
	}
	if filepath.IsAbs(cleaned) {
		return nil, fmt.Errorf("%w: absolute patterns not allowed", ErrInvalidPath)
	}

	matches, err := filepath.Glob(filepath.Join(f.baseDir, cleaned))
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	results := make([]string, 0, len(matches))
	for _, match := range matches {
		if !strings.HasPrefix(match, f.baseDir+string(filepath.Separator)) {
			continue
		}
		if strings.HasPrefix(filepath.Base(match), ".tmp-") {
			continue
		}

		rel, err := filepath.Rel(f.baseDir, match)
		if err != nil {
			continue
		}
		results = append(results, filepath.ToSlash(rel))
	}
	sort.Strings(results)

	return results, nil
}

func (f *FileSystem) Exists(ctx context.Context, p string) bool {
	fullPath, err := f.sanitizePath(p)
	if err != nil {
		return false
	}

	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

func (f *FileSystem) Delete(ctx context.Context, p string) error {
	fullPath, err := f.sanitizePath(p)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return fmt.Errorf("deleting file: %w", err)
	}

	return nil
}
