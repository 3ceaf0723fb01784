package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"pulseline/internal/health"
)

// Config models pulseline.yml.
type Config struct {
	Project struct {
		ID string `yaml:"id" json:"id"`
	} `yaml:"project" json:"project"`
	Scoring health.Weights `yaml:"scoring" json:"scoring"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.ID == "" {
		return fmt.Errorf("config.project.id is required")
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("config.scoring: %w", err)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "pulseline.yml")
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	var cfg Config
	cfg.Project.ID = projectID
	cfg.Scoring = health.DefaultWeights()
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Scoring fields
// left out of the document keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Config{Scoring: health.DefaultWeights()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the workspace config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML for a project.
func GenerateDefault(projectID string) string {
	out, _ := yaml.Marshal(Default(projectID))
	return string(out)
}
