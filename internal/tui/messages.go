package tui

import "time"

// ToolUpdateMsg updates a single tool row. Empty fields are left unchanged.
type ToolUpdateMsg struct {
	Tool    string
	Status  string
	Version string
	Source  string
	Path    string
	Elapsed time.Duration
}

// WorkDoneMsg signals that every install has finished.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
