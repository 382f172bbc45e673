package main

import (
	"fmt"
	"os"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

func loadModules(path string) (map[string]generation.ModuleDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module definitions: %w", err)
	}
	return generation.ParseDefinitions(data)
}
