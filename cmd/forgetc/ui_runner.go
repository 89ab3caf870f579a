package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"forget/internal/driver"
	"forget/internal/pipeline"
	"forget/internal/ui"
)

type compileOutcome struct {
	results []*driver.Result
	err     error
}

// compileWithUI runs compileAll while a progress view renders to out.
func compileWithUI(ctx context.Context, out io.Writer, paths []string, opts driver.Options) ([]*driver.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan compileOutcome, 1)

	passes := opts.Passes
	if passes == nil {
		passes = pipeline.DefaultPasses()
	}
	go func() {
		optsCopy := opts
		optsCopy.Sink = pipeline.ChannelSink{Ch: events}
		results, err := compileAll(ctx, paths, optsCopy)
		outcomeCh <- compileOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("compiling", ui.Stages(passes), events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep the producer from blocking on a full channel
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
