package generation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefinitionFile is the on-disk layout of a generation batch
type DefinitionFile struct {
	Modules []ModuleDefinition `yaml:"modules" validate:"required,min=1,dive"`
}

// ParseDefinitions decodes and validates a YAML module batch, keyed by module id.
func ParseDefinitions(data []byte) (map[string]ModuleDefinition, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing module definitions: %w", err)
	}

	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("validating module definitions: %w", err)
	}

	modules := make(map[string]ModuleDefinition, len(file.Modules))
	for _, m := range file.Modules {
		if _, dup := modules[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %q", m.ID)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		modules[m.ID] = m
	}
	return modules, nil
}
