// Package actions talks to the GitHub Actions runner: inputs, exported
// environment, PATH additions and the job summary.
package actions

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sethvargo/go-githubactions"
)

// Runner wraps a githubactions.Action. Exports also update the environment of
// the current process so later commands in the same step see them. Safe for
// concurrent use.
type Runner struct {
	action *githubactions.Action
	getenv func(string) string
	setenv func(string, string) error

	mu sync.Mutex
}

// New returns a Runner writing workflow commands to out and reading the
// environment through getenv. Nil arguments select os.Stdout and os.Getenv.
func New(out io.Writer, getenv func(string) string) *Runner {
	if out == nil {
		out = os.Stdout
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Runner{
		action: githubactions.New(
			githubactions.WithWriter(out),
			githubactions.WithGetenv(getenv),
		),
		getenv: getenv,
		setenv: os.Setenv,
	}
}

// Input returns the trimmed value of a workflow input, empty when unset.
func (r *Runner) Input(name string) string {
	return r.action.GetInput(name)
}

// SetEnv exports name for later steps.
func (r *Runner) SetEnv(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.action.SetEnv(name, value)
	_ = r.setenv(name, value)
}

// AddPath prepends dir to PATH for later steps.
func (r *Runner) AddPath(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.action.AddPath(dir)

	current := os.Getenv("PATH")
	if current == "" {
		_ = r.setenv("PATH", dir)
		return
	}
	for _, p := range strings.Split(current, string(os.PathListSeparator)) {
		if p == dir {
			return
		}
	}
	_ = r.setenv("PATH", dir+string(os.PathListSeparator)+current)
}

// Summary appends markdown to the job summary. Outside a job it does nothing.
func (r *Runner) Summary(markdown string) {
	if r.getenv("GITHUB_STEP_SUMMARY") == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.action.AddStepSummary(markdown)
}

// Fail emits a single error annotation for msg.
func (r *Runner) Fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.action.Errorf("%s", msg)
}
