// Package config loads the global presetmd configuration. The loaded value
// is passed explicitly into the engine; there is no process-wide cache, and
// re-reading the file is the only way to pick up changes.
package config

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

const DefaultRootDocument = "CLAUDE.md"

type Config struct {
	// DefaultSourceCollections lists collection repository URLs used to
	// derive a selection for projects that never ran an explicit select.
	DefaultSourceCollections []string `yaml:"default_source_collections"`

	// DefaultMembers holds fragment names or glob patterns matched against
	// each default collection's available fragments.
	DefaultMembers []string `yaml:"default_members"`

	// RootDocument is the managed file name inside each project root.
	RootDocument string `yaml:"root_document"`
}

func Default() Config {
	return Config{RootDocument: DefaultRootDocument}
}

// Load reads the config file at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.RootDocument == "" {
		cfg.RootDocument = DefaultRootDocument
	}
	return cfg, nil
}

// MatchMembers filters a collection's available fragment names through the
// configured default member patterns. Order follows the pattern list, then
// the available list; duplicates are dropped.
func (c Config) MatchMembers(available []string) ([]string, error) {
	matched := make([]string, 0, len(available))
	seen := make(map[string]bool, len(available))

	for _, pattern := range c.DefaultMembers {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid default member pattern %q: %w", pattern, err)
		}
		for _, name := range available {
			if seen[name] || !g.Match(name) {
				continue
			}
			seen[name] = true
			matched = append(matched, name)
		}
	}
	return matched, nil
}
