package config

import (
	"fmt"

	"setupclojure/internal/tools"
)

// ToolsDepsInput is the deprecated input that requests the Clojure CLI.
const ToolsDepsInput = "tools-deps"

// InputNames lists the tool inputs read from the workflow, in tool order.
func InputNames() []string {
	return append(tools.KnownTools(), ToolsDepsInput)
}

// FromInputs builds a config from workflow inputs. getInput returns the
// trimmed value of one input, empty when unset.
func FromInputs(getInput func(string) string) (Config, error) {
	cfg := Default()
	for _, name := range InputNames() {
		if v := getInput(name); v != "" {
			cfg.Tools[name] = v
		}
	}
	cfg.GitHubToken = getInput("github-token")

	invalidate, err := ParseBool("invalidate-cache", getInput("invalidate-cache"))
	if err != nil {
		return Config{}, err
	}
	cfg.InvalidateCache = invalidate
	return cfg, nil
}

// ParseBool accepts the YAML 1.2 core schema booleans. An empty value is false.
func ParseBool(name, value string) (bool, error) {
	switch value {
	case "":
		return false, nil
	case "true", "True", "TRUE":
		return true, nil
	case "false", "False", "FALSE":
		return false, nil
	}
	return false, &tools.ConfigurationError{
		Message: fmt.Sprintf("Input does not meet YAML 1.2 \"Core Schema\" specification: %s\n"+
			"Support boolean input list: `true | True | TRUE | false | False | FALSE`", name),
	}
}
