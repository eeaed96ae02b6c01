package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	dataprofiler "github.com/proflow/dataprofiler"
)

// loadRunConfig reads path as YAML into a RunConfig seeded with the
// documented defaults, so a config file only needs to set the fields it
// wants to override.
func loadRunConfig(path string) (dataprofiler.RunConfig, error) {
	cfg := dataprofiler.DefaultRunConfig()
	if path == "" {
		return cfg, nil
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// typeOverrideRules is the declarative, read-once-at-startup shape of an
// operator-supplied --type-overrides file: column name to pinned type
// name, applied to the Profile artifact's display only (§6, Non-goal
// preserved — the profiler still computes every candidate flag itself).
type typeOverrideRules struct {
	Columns map[string]string `toml:"columns"`
}

func loadTypeOverrides(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	var rules typeOverrideRules
	if _, err := toml.DecodeFile(path, &rules); err != nil {
		return nil, fmt.Errorf("parsing type overrides %s: %w", path, err)
	}
	return rules.Columns, nil
}

// applyTypeOverrides rewrites the displayed Type field of every column
// named in overrides, without touching anything the profiler computed.
func applyTypeOverrides(prof *dataprofiler.Profile, overrides map[string]string) {
	if len(overrides) == 0 {
		return
	}
	for i, c := range prof.Columns {
		if t, ok := overrides[c.Name]; ok {
			prof.Columns[i].Type = t
		}
	}
}
