package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// resolveExternalPath returns path as-is if absolute, otherwise joins it with root.
func resolveExternalPath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// loadToolFiles reads each file in ToolFiles as map[string]string and merges
// it into c.Tools. A tool pinned in more than one place is an error.
func (c *Config) loadToolFiles(root string) error {
	if len(c.ToolFiles) == 0 {
		return nil
	}

	if c.Tools == nil {
		c.Tools = map[string]string{}
	}

	sources := make(map[string]string, len(c.Tools))
	for name := range c.Tools {
		sources[name] = "inline config"
	}

	for _, relPath := range c.ToolFiles {
		data, err := os.ReadFile(resolveExternalPath(root, relPath))
		if err != nil {
			return fmt.Errorf("load tool file %q: %w", relPath, err)
		}

		var pins map[string]string
		if err := yaml.Unmarshal(data, &pins); err != nil {
			return fmt.Errorf("parse tool file %q: %w", relPath, err)
		}

		for name, version := range pins {
			if existing, ok := sources[name]; ok {
				return fmt.Errorf("tool %q pinned in both %s and %q", name, existing, relPath)
			}
			sources[name] = relPath
			c.Tools[name] = version
		}
	}

	return nil
}
