// Package storage provides the path-keyed record stores behind checkpoints
// and persisted analysis reports.
package storage

import (
	"errors"
	"path"
	"sort"

	"github.com/vampirenirmal/codeorc/internal/core"
)

var (
	// ErrNotFound is returned by Load and Delete for a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidPath is returned for paths that escape the store's namespace.
	ErrInvalidPath = errors.New("invalid path")
)

var (
	_ core.Storage = (*FileSystem)(nil)
	_ core.Storage = (*Memory)(nil)
	_ core.Storage = (*Redis)(nil)
	_ core.Storage = (*SQLite)(nil)
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// matchAll filters keys with path.Match semantics, where "*" does not cross
// "/", and returns them sorted. Backends whose native globbing is looser
// narrow their results through it.
func matchAll(pattern string, keys []string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
