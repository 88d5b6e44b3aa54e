package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 150 * time.Millisecond
	marqueeGap   = "   "
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ErrCancelled is reported when the user quits the view before the work is done.
var ErrCancelled = fmt.Errorf("installation cancelled: %w", context.Canceled)

// tickMsg drives the spinner and marquee.
type tickMsg time.Time

// Column headers of the install table.
const (
	ColTool    = "TOOL"
	ColVersion = "VERSION"
	ColStatus  = "STATUS"
	ColSource  = "SOURCE"
	ColPath    = "PATH"
)

type column struct {
	header string
	width  int
}

var installColumns = []column{
	{ColTool, 10},
	{ColVersion, 14},
	{ColStatus, 16},
	{ColSource, 8},
	{ColPath, 48},
}

// Row statuses.
const (
	StatusPending    = "pending"
	StatusInstalling = "installing"
	StatusInstalled  = "installed"
	StatusCached     = "cached"
	StatusFailed     = "failed"
)

type toolRow struct {
	tool    string
	version string
	status  string
	source  string
	path    string
	started time.Time
	elapsed time.Duration
}

func (r toolRow) field(header string) string {
	switch header {
	case ColTool:
		return r.tool
	case ColVersion:
		return r.version
	case ColStatus:
		return r.status
	case ColSource:
		return r.source
	case ColPath:
		return r.path
	}
	return ""
}

// ProgressModel is a bubbletea model rendering one row per requested tool.
type ProgressModel struct {
	rows     []toolRow
	rowIndex map[string]int
	title    string
	done     bool
	err      error
	now      func() time.Time

	tick int
}

// NewProgressModel creates a model with a pending row per tool, keyed by tool
// name and showing the requested version token.
func NewProgressModel(title string, tools, versions []string) ProgressModel {
	m := ProgressModel{
		rowIndex: make(map[string]int, len(tools)),
		title:    title,
		now:      time.Now,
	}
	for i, tool := range tools {
		version := ""
		if i < len(versions) {
			version = versions[i]
		}
		m.rowIndex[tool] = len(m.rows)
		m.rows = append(m.rows, toolRow{tool: tool, version: version, status: StatusPending})
	}
	return m
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case ToolUpdateMsg:
		m.apply(msg)
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done {
				return m, tea.Quit
			}
			m.err = ErrCancelled
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) apply(msg ToolUpdateMsg) {
	idx, ok := m.rowIndex[msg.Tool]
	if !ok {
		return
	}
	row := &m.rows[idx]
	if msg.Status != "" {
		if msg.Status == StatusInstalling && row.started.IsZero() {
			row.started = m.now()
		}
		row.status = msg.Status
	}
	if msg.Version != "" {
		row.version = msg.Version
	}
	if msg.Source != "" {
		row.source = msg.Source
	}
	if msg.Path != "" {
		row.path = msg.Path
	}
	if msg.Elapsed > 0 {
		row.elapsed = msg.Elapsed
	}
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	if m.done && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(HeaderStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	headers := make([]string, len(installColumns))
	for i, col := range installColumns {
		headers[i] = HeaderStyle.Render(pad(col.header, col.width))
	}
	b.WriteString(strings.Join(headers, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		parts := make([]string, len(installColumns))
		for i, col := range installColumns {
			val := row.field(col.header)
			if col.header == ColStatus {
				val = m.statusText(row)
			}
			if !m.done && len(val) > col.width {
				val = marqueeText(val, col.width, m.tick)
			} else {
				val = TruncateWithEllipsis(val, col.width)
			}
			if col.header == ColStatus {
				parts[i] = StatusStyle(row.status).Render(pad(val, col.width))
			} else {
				parts[i] = pad(val, col.width)
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteByte('\n')
	}

	if !m.done {
		finished, total := m.progressCounts()
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s Installing %d/%d...\n", spinner, finished, total)
	}

	return b.String()
}

func (m ProgressModel) statusText(row toolRow) string {
	switch {
	case row.status == StatusInstalling && !row.started.IsZero():
		return fmt.Sprintf("%s %s", row.status, formatElapsed(m.now().Sub(row.started)))
	case row.elapsed > 0:
		return fmt.Sprintf("%s %s", row.status, formatElapsed(row.elapsed))
	}
	return row.status
}

// progressCounts returns how many rows reached a terminal status.
func (m ProgressModel) progressCounts() (int, int) {
	finished := 0
	for _, row := range m.rows {
		switch row.status {
		case StatusInstalled, StatusCached, StatusFailed:
			finished++
		}
	}
	return finished, len(m.rows)
}

// Done returns whether the model has finished (work done or error).
func (m ProgressModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ProgressModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// marqueeText renders a scrolling window over text wider than width.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	cycle := text + marqueeGap
	offset := tick % len(cycle)
	var result strings.Builder
	result.Grow(width)
	for i := 0; i < width; i++ {
		result.WriteByte(cycle[(offset+i)%len(cycle)])
	}
	return result.String()
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
