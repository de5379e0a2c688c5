package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/onair/internal/shared"
	"github.com/desertthunder/onair/internal/ui"
)

const defaultTUILog = "./tmp/onair-tui.log"

// TUI launches the live program dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	path := r.config.Log.File
	if path == "" {
		path = defaultTUILog
	}
	fileLogger, f, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := r.startController(ctx, a, nil, true); err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Deps{
		Controller: a.controller,
		State:      a.controller.Store(),
		Prefs:      a.prefs,
		History:    a.history,
	})
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
