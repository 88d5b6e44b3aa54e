package tools

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"setupclojure/internal/platform"
)

// Status describes what is known locally about one managed tool.
type Status struct {
	Tool       string         `json:"tool"`
	Identifier string         `json:"identifier"`
	Cached     []string       `json:"cached,omitempty"`
	SystemPath string         `json:"system_path,omitempty"`
	Last       *ManifestEntry `json:"last,omitempty"`
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// Detect reports, for every managed tool, the complete tool-cache versions for
// arch, the executable found on PATH and the last recorded install.
func Detect(c *DirCache, m *ManifestStore, arch platform.Arch) ([]Status, error) {
	var last map[string]ManifestEntry
	if m != nil {
		manifest, err := m.Load()
		if err != nil {
			return nil, err
		}
		last = manifest.Entries
	}

	statuses := make([]Status, 0, len(toolOrder))
	for _, name := range toolOrder {
		def := toolDefinitions[name]
		versions, err := c.Versions(def.Identifier, arch)
		if err != nil {
			return nil, err
		}
		st := Status{Tool: name, Identifier: def.Identifier, Cached: versions}
		if def.Command != "" {
			if path, err := lookPath(def.Command); err == nil {
				st.SystemPath = path
			}
		}
		if entry, ok := last[name]; ok {
			st.Last = &entry
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Versions lists the complete entries of tool for arch, newest name first.
func (c *DirCache) Versions(tool string, arch platform.Arch) ([]string, error) {
	infos, err := afero.ReadDir(c.FS, filepath.Join(c.Root, tool))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var versions []string
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		if _, ok := c.Find(tool, info.Name(), arch); ok {
			versions = append(versions, info.Name())
		}
	}
	sort.SliceStable(versions, func(i, j int) bool { return versions[i] > versions[j] })
	return versions, nil
}
