package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the top-level shape of an agents.yaml file.
type document struct {
	Agents []Definition `yaml:"agents"`
}

// LoadYAML reads an agents.yaml file and builds a Registry from it.
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agents: read %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("agents: parse %s: %w", path, err)
	}
	return NewRegistry(doc.Agents)
}
