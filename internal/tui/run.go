package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork creates a bubbletea program, launches workFn in a goroutine,
// and blocks until both the program and workFn have returned. workFn receives
// a context that is cancelled when the user quits the view, and the send
// callback of the program. Cancelling ctx stops the view with ctx's error.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, workFn func(ctx context.Context, send func(tea.Msg)), opts ...tea.ProgramOption) error {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithOutput(out)}, opts...)...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)
		workFn(workCtx, p.Send)
		p.Send(WorkDoneMsg{})
	}()
	go func() {
		select {
		case <-ctx.Done():
			p.Send(ErrorMsg{Err: ctx.Err()})
		case <-done:
		}
	}()

	finalModel, err := p.Run()
	cancel()
	<-done
	if err != nil {
		return err
	}
	if m, ok := finalModel.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	return ctx.Err()
}
