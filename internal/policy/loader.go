package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func LoadPolicy(path string) (*PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, errors.New("unsupported policy version")
	}

	if cfg.Pipelines == nil {
		cfg.Pipelines = make(map[string]PipelineConfig)
	}

	return &cfg, nil
}

// LoadOptional loads the policy at path. A missing file is not an error and
// yields a nil config, which every resolver treats as "defaults".
func LoadOptional(path string) (*PolicyConfig, error) {
	cfg, err := LoadPolicy(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load policy %s: %w", path, err)
	}
	return cfg, nil
}
