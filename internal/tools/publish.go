package tools

import "sort"

// Publisher exports environment for later steps of the job.
type Publisher interface {
	SetEnv(name, value string)
	AddPath(dir string)
}

// Publish exports every variable of h in name order, then puts its bin
// directory on PATH.
func Publish(p Publisher, h Handle) {
	names := make([]string, 0, len(h.Env))
	for name := range h.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.SetEnv(name, h.Env[name])
	}
	if h.BinDir != "" {
		p.AddPath(h.BinDir)
	}
}
