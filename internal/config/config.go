package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = ".setup-clojure.yaml"

// Config captures which tools to install and how.
type Config struct {
	// Tools maps a tool input name to its version token.
	Tools map[string]string `yaml:"tools"`
	// ToolFiles lists extra YAML files holding tool pins, relative to the
	// config file.
	ToolFiles       []string    `yaml:"tool_files,omitempty"`
	GitHubToken     string      `yaml:"github-token,omitempty"`
	InvalidateCache bool        `yaml:"invalidate-cache,omitempty"`
	Cache           CacheConfig `yaml:"cache,omitempty"`
}

// CacheConfig selects the persistent cache backend. At most one of Dir and
// Bucket may be set.
type CacheConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Region string `yaml:"region,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// Default returns an empty configuration.
func Default() Config {
	return Config{Tools: map[string]string{}}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration. Tool files are merged into Tools.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Tools == nil {
		cfg.Tools = map[string]string{}
	}
	if err := cfg.loadToolFiles(filepath.Dir(path)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge returns c with every non-empty setting of over applied on top.
// Tool pins in over replace those in c one by one.
func (c Config) Merge(over Config) Config {
	out := c
	out.Tools = make(map[string]string, len(c.Tools)+len(over.Tools))
	for name, v := range c.Tools {
		out.Tools[name] = v
	}
	for name, v := range over.Tools {
		if strings.TrimSpace(v) != "" {
			out.Tools[name] = v
		}
	}
	if over.GitHubToken != "" {
		out.GitHubToken = over.GitHubToken
	}
	if over.InvalidateCache {
		out.InvalidateCache = true
	}
	if over.Cache.Dir != "" {
		out.Cache.Dir = over.Cache.Dir
	}
	if over.Cache.Bucket != "" {
		out.Cache.Bucket = over.Cache.Bucket
	}
	if over.Cache.Region != "" {
		out.Cache.Region = over.Cache.Region
	}
	if over.Cache.Prefix != "" {
		out.Cache.Prefix = over.Cache.Prefix
	}
	return out
}
