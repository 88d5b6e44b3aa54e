package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"setupclojure/internal/setup"
	"setupclojure/internal/tools"
)

// InstallReporter turns orchestrator callbacks into bubbletea messages.
type InstallReporter struct {
	send func(tea.Msg)
}

// NewInstallReporter returns a reporter that delivers updates through send.
func NewInstallReporter(send func(tea.Msg)) *InstallReporter {
	return &InstallReporter{send: send}
}

// Start implements setup.Reporter.
func (r *InstallReporter) Start(req tools.Request) {
	r.send(ToolUpdateMsg{Tool: req.Tool, Status: StatusInstalling})
}

// Complete implements setup.Reporter.
func (r *InstallReporter) Complete(res setup.Result) {
	msg := ToolUpdateMsg{
		Tool:    res.Request.Tool,
		Status:  resultStatus(res),
		Source:  resultSource(res),
		Path:    res.Handle.BinDir,
		Elapsed: res.Duration,
	}
	if res.Handle.Version != "" {
		msg.Version = res.Handle.Version
	}
	r.send(msg)
}

func resultStatus(res setup.Result) string {
	switch {
	case res.Err != nil:
		return StatusFailed
	case res.Handle.Source == tools.SourceCache:
		return StatusCached
	default:
		return StatusInstalled
	}
}

// resultSource names where an install came from. Tool-cache hits that were
// just restored from the persistent cache read "restored".
func resultSource(res setup.Result) string {
	if res.Err != nil {
		return ""
	}
	if res.CacheHit && res.Handle.Source == tools.SourceCache {
		return "restored"
	}
	return string(res.Handle.Source)
}

var _ setup.Reporter = (*InstallReporter)(nil)
