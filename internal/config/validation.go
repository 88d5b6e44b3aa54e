package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"setupclojure/internal/tools"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate runs every check against the config.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateTools()...)
	results = append(results, c.validateCache()...)
	return results
}

// Err folds the error-level findings of Validate into one error, or nil.
func (c Config) Err() error {
	var result *multierror.Error
	for _, r := range c.Validate() {
		if r.Level == "error" {
			result = multierror.Append(result, fmt.Errorf("%s", r.Message))
		}
	}
	return result.ErrorOrNil()
}

func (c Config) validateTools() []ValidationResult {
	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []ValidationResult
	for _, name := range names {
		if name == ToolsDepsInput {
			continue
		}
		if _, ok := tools.Definition(name); !ok {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("unknown tool %q (known tools: %s)", name, strings.Join(tools.KnownTools(), ", ")),
			})
			continue
		}
		if strings.TrimSpace(c.Tools[name]) == "" {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("tool %q has no version and will be skipped", name),
			})
		}
	}
	if c.Tools[ToolsDepsInput] != "" {
		msg := fmt.Sprintf("%q is deprecated, use \"cli\"", ToolsDepsInput)
		if c.Tools["cli"] != "" {
			msg = fmt.Sprintf("%q is ignored because \"cli\" is also set", ToolsDepsInput)
		}
		results = append(results, ValidationResult{Level: "warning", Message: msg})
	}
	return results
}

func (c Config) validateCache() []ValidationResult {
	var results []ValidationResult
	if c.Cache.Dir != "" && c.Cache.Bucket != "" {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "cache: dir and bucket are mutually exclusive",
		})
	}
	if c.Cache.Bucket == "" && (c.Cache.Region != "" || c.Cache.Prefix != "") {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "cache: region and prefix are ignored without a bucket",
		})
	}
	return results
}
