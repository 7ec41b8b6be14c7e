// Package config loads engine configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ausentia/veredicto/pkg/veredicto/cbr"
	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
)

// Engine holds the inference-loop settings.
type Engine struct {
	MaxIterations      int      `yaml:"max_iterations"`
	AllowRefire        bool     `yaml:"allow_refire"`
	RequiredAttributes []string `yaml:"required_attributes"`
}

// Retrieval holds the case-based reasoning settings.
type Retrieval struct {
	MinSimilarity  float64            `yaml:"min_similarity"`
	TopK           int                `yaml:"top_k"`
	FeatureWeights map[string]float64 `yaml:"feature_weights"`
}

// Config is the full engine configuration.
type Config struct {
	RulesPath string    `yaml:"rules_path"`
	CasesPath string    `yaml:"cases_path"`
	Engine    Engine    `yaml:"engine"`
	Retrieval Retrieval `yaml:"retrieval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine: Engine{MaxIterations: 100},
		Retrieval: Retrieval{
			MinSimilarity:  cbr.DefaultMinSimilarity,
			TopK:           cbr.DefaultTopK,
			FeatureWeights: cbr.DefaultWeights(),
		},
	}
}

// Load reads a YAML configuration file. Omitted fields keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w: %v", path, internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks bounds on the loaded values.
func (c Config) Validate() error {
	if c.Engine.MaxIterations < 0 {
		return fmt.Errorf("engine.max_iterations negative: %w", internalerr.ErrInvalidConfig)
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval.min_similarity outside [0,1]: %w", internalerr.ErrInvalidConfig)
	}
	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval.top_k negative: %w", internalerr.ErrInvalidConfig)
	}
	if len(c.Retrieval.FeatureWeights) > 0 {
		if err := cbr.Weights(c.Retrieval.FeatureWeights).Validate(); err != nil {
			return err
		}
	}
	return nil
}
