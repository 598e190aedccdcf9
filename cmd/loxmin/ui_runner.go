package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"loxmin/internal/driver"
	"loxmin/internal/ui"
)

type checkOutcome struct {
	results []driver.CheckResult
	err     error
}

// runCheckWithUI runs the check in the background while a progress view
// follows its events on out.
func runCheckWithUI(ctx context.Context, out io.Writer, paths []string, opts driver.CheckOptions) ([]driver.CheckResult, error) {
	events := make(chan driver.CheckEvent, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Events = events
		results, err := driver.Check(ctx, paths, optsCopy)
		outcomeCh <- checkOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewCheckModel("loxmin check", paths, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
