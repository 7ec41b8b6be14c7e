package rules

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileMetadata describes a rule file, maintained on save.
type FileMetadata struct {
	Version     int    `yaml:"version"`
	LastUpdated string `yaml:"last_updated,omitempty"`
	TotalRules  int    `yaml:"total_rules"`
}

type ruleFile struct {
	Metadata FileMetadata `yaml:"metadata"`
	Rules    []Rule       `yaml:"rules"`
}

// LoadFile reads a YAML rule file and compiles it into a snapshot. Any
// invalid rule rejects the whole file; a partially valid rule set never
// reaches the engine.
func LoadFile(path string) (*Snapshot, FileMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, FileMetadata{}, err
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, FileMetadata{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	snap, err := NewSnapshot(rf.Rules)
	if err != nil {
		return nil, FileMetadata{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return snap, rf.Metadata, nil
}

// SaveFile writes a validated rule set back to YAML, bumping the version and
// refreshing the bookkeeping metadata. The rules are validated before
// anything touches disk.
func SaveFile(path string, list []Rule, meta FileMetadata) error {
	snap, err := NewSnapshot(list)
	if err != nil {
		return err
	}

	meta.Version++
	meta.LastUpdated = time.Now().UTC().Format("2006-01-02")
	meta.TotalRules = snap.Len()

	out, err := yaml.Marshal(ruleFile{Metadata: meta, Rules: snap.Raw()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
