package setup

import (
	"fmt"
	"sort"

	"setupclojure/internal/platform"
	"setupclojure/internal/tools"
)

// ToolsDepsAlias is the deprecated input name for the Clojure CLI.
const ToolsDepsAlias = "tools-deps"

// NoToolsMessage is the failure reported when nothing was requested.
const NoToolsMessage = "You must specify at least one clojure tool."

// Inputs maps an input name to its requested version token. An empty token
// means the tool was not requested.
type Inputs map[string]string

// Plan turns inputs into install requests in tool order. It fails before any
// work is started when a requested tool cannot run on p or when nothing was
// requested at all.
func Plan(inputs Inputs, token string, p platform.Platform) ([]tools.Request, error) {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == ToolsDepsAlias {
			continue
		}
		if _, ok := tools.Definition(name); !ok {
			return nil, &tools.ConfigurationError{Message: fmt.Sprintf("unknown tool %q", name)}
		}
	}

	versions := make(map[string]string, len(inputs))
	for name, version := range inputs {
		if version != "" && name != ToolsDepsAlias {
			versions[name] = version
		}
	}
	if alias := inputs[ToolsDepsAlias]; alias != "" && versions["cli"] == "" {
		versions["cli"] = alias
	}

	var reqs []tools.Request
	for _, name := range tools.KnownTools() {
		version, ok := versions[name]
		if !ok {
			continue
		}
		def, _ := tools.Definition(name)
		if !def.Supports(p) {
			return nil, tools.UnsupportedOn(def, p)
		}
		reqs = append(reqs, tools.Request{Tool: name, Version: version, Auth: token})
	}
	if len(reqs) == 0 {
		return nil, &tools.ConfigurationError{Message: NoToolsMessage}
	}
	return reqs, nil
}
