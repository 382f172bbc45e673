package core

import (
	"context"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

// Generator produces the files for one module. It receives a copy of the
// project context as it stood after the previous module completed.
type Generator interface {
	Generate(ctx context.Context, module generation.ModuleDefinition, project generation.ProjectContext) (generation.ModuleOutput, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, module generation.ModuleDefinition, project generation.ProjectContext) (generation.ModuleOutput, error)

func (f GeneratorFunc) Generate(ctx context.Context, module generation.ModuleDefinition, project generation.ProjectContext) (generation.ModuleOutput, error) {
	return f(ctx, module, project)
}

// Storage is a path-keyed record store. Load of a missing path returns an
// error matching storage.ErrNotFound.
type Storage interface {
	Save(ctx context.Context, path string, data []byte) error
	Load(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, pattern string) ([]string, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
}
