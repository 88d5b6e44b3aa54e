package tools

import (
	"path/filepath"
	"slices"

	"setupclojure/internal/platform"
)

// ToolDefinition contains everything the installer needs to manage a tool.
type ToolDefinition struct {
	// Name is the action input that requests the tool.
	Name string
	// Display is the human name used in messages.
	Display string
	// Identifier keys the tool cache and the persistent cache.
	Identifier string
	// Repo is the GitHub owner/repo whose latest release names the newest
	// version. Empty when "latest" is a symbolic ref handled by the layout.
	Repo string
	// LatestAttempts bounds metadata lookups for "latest".
	LatestAttempts int
	// Unsupported lists platforms the tool refuses to install on.
	Unsupported []platform.Platform
	// Executable is the cached file name for raw-binary artifacts.
	Executable string
	// Command is the main executable a user runs once the tool is on PATH.
	Command string

	Locate func(version string, p platform.Platform, a platform.Arch) (Artifact, error)

	layout   layoutFunc
	env      func(root, version string, p platform.Platform) map[string]string
	binDir   func(root string, p platform.Platform) string
	uncached func(p platform.Platform) bool
}

// Supports reports whether the tool can be installed on p.
func (d ToolDefinition) Supports(p platform.Platform) bool {
	return !slices.Contains(d.Unsupported, p)
}

// Cached reports whether installs on p go through the tool cache.
func (d ToolDefinition) Cached(p platform.Platform) bool {
	return d.uncached == nil || !d.uncached(p)
}

// BinDir returns the directory that must be on PATH for an install rooted at root.
func (d ToolDefinition) BinDir(root string, p platform.Platform) string {
	if d.binDir == nil {
		return root
	}
	return d.binDir(root, p)
}

// Env returns the variables exported for an install rooted at root.
func (d ToolDefinition) Env(root, version string, p platform.Platform) map[string]string {
	if d.env == nil {
		return nil
	}
	return d.env(root, version, p)
}

func binSubdir(root string, _ platform.Platform) string {
	return filepath.Join(root, "bin")
}

// toolOrder is the order tools are planned and reported in.
var toolOrder = []string{"lein", "boot", "cli", "bb", "clj-kondo", "cljfmt", "cljstyle", "zprint"}

var toolDefinitions = map[string]ToolDefinition{
	"lein": {
		Name:       "lein",
		Display:    "Leiningen",
		Identifier: "Leiningen",
		Command:    "lein",
		Locate:     locateLeiningen,
		layout:     layoutLeiningen,
		binDir:     binSubdir,
		env: func(root, _ string, _ platform.Platform) map[string]string {
			return map[string]string{"LEIN_HOME": root}
		},
	},
	"boot": {
		Name:       "boot",
		Display:    "Boot",
		Identifier: "Boot",
		Command:    "boot",
		Locate:     locateBoot,
		layout:     layoutBoot,
		binDir:     binSubdir,
		env: func(root, version string, _ platform.Platform) map[string]string {
			env := map[string]string{"BOOT_HOME": root}
			if !IsLatest(version) {
				env["BOOT_VERSION"] = version
			}
			return env
		},
	},
	"cli": {
		Name:           "cli",
		Display:        "Clojure CLI",
		Identifier:     "ClojureToolsDeps",
		Command:        "clojure",
		Repo:           "clojure/brew-install",
		LatestAttempts: 2,
		Locate:         locateClojureCLI,
		layout:         layoutClojureCLI,
		binDir: func(root string, p platform.Platform) string {
			if p.IsWindows() {
				return root
			}
			return filepath.Join(root, "bin")
		},
		env: func(root, _ string, p platform.Platform) map[string]string {
			if p.IsWindows() {
				return map[string]string{"CLOJURE_INSTALL_DIR": root}
			}
			return map[string]string{"CLOJURE_INSTALL_DIR": filepath.Join(root, "lib", "clojure")}
		},
		uncached: func(p platform.Platform) bool { return p.IsWindows() },
	},
	"bb": {
		Name:           "bb",
		Display:        "Babashka",
		Identifier:     "Babashka",
		Command:        "bb",
		Repo:           "babashka/babashka",
		LatestAttempts: 2,
		Locate:         locateBabashka,
	},
	"clj-kondo": {
		Name:           "clj-kondo",
		Display:        "clj-kondo",
		Identifier:     "clj-kondo",
		Command:        "clj-kondo",
		Repo:           "clj-kondo/clj-kondo",
		LatestAttempts: 2,
		Locate:         locateCljKondo,
	},
	"cljfmt": {
		Name:           "cljfmt",
		Display:        "cljfmt",
		Identifier:     "cljfmt",
		Command:        "cljfmt",
		Repo:           "weavejester/cljfmt",
		LatestAttempts: 2,
		Locate:         locateCljfmt,
	},
	"cljstyle": {
		Name:           "cljstyle",
		Display:        "cljstyle",
		Identifier:     "cljstyle",
		Command:        "cljstyle",
		Repo:           "greglook/cljstyle",
		LatestAttempts: 2,
		Unsupported:    []platform.Platform{platform.Windows},
		Locate:         locateCljstyle,
	},
	"zprint": {
		Name:           "zprint",
		Display:        "zprint",
		Identifier:     "zprint",
		Command:        "zprint",
		Repo:           "kkinnear/zprint",
		LatestAttempts: 4,
		Executable:     "zprint",
		Locate:         locateZprint,
	},
}

// KnownTools returns the managed tool names in install order.
func KnownTools() []string {
	return slices.Clone(toolOrder)
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}
