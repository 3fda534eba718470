package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zachwill/ralph/internal/models"
)

// RegistryFile represents the .ralph/models.toml file:
//
//	[[providers]]
//	name = "ollama"
//	env = ["OLLAMA_API_KEY"]
//
//	[[models]]
//	id = "qwen3-coder"
//	provider = "ollama"
//	aliases = ["qwen"]
type RegistryFile struct {
	Providers []models.Provider `toml:"providers"`
	Models    []models.Model    `toml:"models"`
}

// RegistryPath returns the path of the model registry file under basePath.
func RegistryPath(basePath string) string {
	return filepath.Join(basePath, Dir, "models.toml")
}

// LoadRegistry returns the built-in model registry extended with
// .ralph/models.toml when that file exists.
func LoadRegistry(basePath string) (*models.Registry, error) {
	registry := models.NewRegistry()

	file, err := LoadRegistryFile(RegistryPath(basePath))
	if err != nil {
		if os.IsNotExist(err) {
			return registry, nil
		}
		return nil, err
	}

	for _, p := range file.Providers {
		registry.AddProvider(p)
	}
	for _, m := range file.Models {
		registry.AddModel(m)
	}
	return registry, nil
}

// LoadRegistryFile parses a model registry file. Unknown keys are rejected
// so typos do not silently drop a model.
func LoadRegistryFile(path string) (*RegistryFile, error) {
	var file RegistryFile
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, ValidationError{Field: "models.toml", Message: "unknown keys: " + strings.Join(keys, ", ")}
	}

	for i, p := range file.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return nil, ValidationError{Field: fmt.Sprintf("providers[%d].name", i), Message: "required field is empty"}
		}
	}
	for i, m := range file.Models {
		if m.ID == "" {
			return nil, ValidationError{Field: fmt.Sprintf("models[%d].id", i), Message: "required field is empty"}
		}
		if m.Provider == "" {
			return nil, ValidationError{Field: fmt.Sprintf("models[%d].provider", i), Message: "required field is empty"}
		}
	}
	return &file, nil
}
