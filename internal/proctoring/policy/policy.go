// Package policy loads the default proctoring policy from a YAML, TOML or
// JSON file and reloads it when the file changes.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"proctor/internal/proctoring/models"
)

// Load reads path over the reference policy, so a file only needs the keys
// it changes. The format follows the file extension. The result is
// validated.
func Load(path string) (models.ProctoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ProctoringConfig{}, fmt.Errorf("read policy: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data in the format named by ext (".yaml", ".yml", ".toml"
// or ".json") over the reference policy.
func Parse(data []byte, ext string) (models.ProctoringConfig, error) {
	cfg := models.DefaultConfig()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return models.ProctoringConfig{}, fmt.Errorf("decode YAML policy: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return models.ProctoringConfig{}, fmt.Errorf("decode TOML policy: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return models.ProctoringConfig{}, fmt.Errorf("decode JSON policy: %w", err)
		}
	default:
		return models.ProctoringConfig{}, fmt.Errorf("unsupported policy format %q", ext)
	}
	if err := cfg.Validate(); err != nil {
		return models.ProctoringConfig{}, err
	}
	return cfg, nil
}
