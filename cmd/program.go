package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/onair/internal/formatter"
	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/services"
	"github.com/desertthunder/onair/internal/session"
	"github.com/desertthunder/onair/internal/shared"
)

// withProgram builds a one-shot controller, selects the current program and calls fn.
func (r *Runner) withProgram(ctx context.Context, flow services.ProgramFlow, fn func(a *app) error) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := r.startController(ctx, a, flow, false); err != nil {
		return err
	}
	if err := a.controller.FetchProgram(ctx); err != nil {
		return err
	}
	return fn(a)
}

// ProgramFetch selects the current program and prints a one-line summary.
func (r *Runner) ProgramFetch(ctx context.Context, cmd *cli.Command) error {
	err := r.withProgram(ctx, nil, func(a *app) error {
		s := a.controller.Store().Get()
		r.writePlain("✓ Selected %s\n", describeProgram(s))
		if s.Status == models.StatusOnAir {
			r.writePlain("Remaining: %s\n", formatter.FormatDuration(formatter.Remaining(s, a.controller.Now())))
		}
		return nil
	})
	if errors.Is(err, session.ErrNoSuitableProgram) {
		return r.writePlain("No program is on air, in test or reserved\n")
	}
	return err
}

// ProgramShow prints the selected program in the requested format, or exports it with --output.
func (r *Runner) ProgramShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	err = r.withProgram(ctx, nil, func(a *app) error {
		view := formatter.NewProgramView(a.controller.Store().Get(), a.controller.Now(), cmd.Bool("password"))
		data, err := formatter.RenderProgram(view, format)
		if err != nil {
			return err
		}

		if out := cmd.String("output"); out != "" {
			path, err := formatter.WriteExport(data, view.ProgramID, format, out)
			if err != nil {
				return err
			}
			r.logger.Info("program exported", "program_id", view.ProgramID, "path", path)
			return r.writePlain("✓ Exported to %s\n", path)
		}
		return r.writeBytes(data)
	})
	if errors.Is(err, session.ErrNoSuitableProgram) {
		return r.writePlain("No program is on air, in test or reserved\n")
	}
	return err
}

// ProgramStart puts the selected program on air after confirmation.
func (r *Runner) ProgramStart(ctx context.Context, cmd *cli.Command) error {
	return r.withProgram(ctx, nil, func(a *app) error {
		s := a.controller.Store().Get()
		if ok, err := r.confirmUnless(ctx, cmd.Bool("yes"), fmt.Sprintf("Start %s?", describeProgram(s))); err != nil || !ok {
			return err
		}

		if err := a.controller.StartProgram(ctx); err != nil {
			return err
		}
		s = a.controller.Store().Get()
		r.writePlain("✓ %s is on air\n", s.ProgramID)
		r.writePlain("Scheduled end: %s\n", time.Unix(s.EndTime, 0).Local().Format("15:04:05"))
		return nil
	})
}

// ProgramEnd ends the selected program after confirmation. A conflict means it already ended.
func (r *Runner) ProgramEnd(ctx context.Context, cmd *cli.Command) error {
	return r.withProgram(ctx, nil, func(a *app) error {
		s := a.controller.Store().Get()
		if ok, err := r.confirmUnless(ctx, cmd.Bool("yes"), fmt.Sprintf("End %s?", describeProgram(s))); err != nil || !ok {
			return err
		}

		if err := a.controller.EndProgramOrReconcile(ctx); err != nil {
			return err
		}
		return r.writePlain("✓ %s ended\n", s.ProgramID)
	})
}

// ProgramExtend extends the selected program by one extension unit.
func (r *Runner) ProgramExtend(ctx context.Context, cmd *cli.Command) error {
	return r.withProgram(ctx, nil, func(a *app) error {
		s := a.controller.Store().Get()
		if !session.CanExtend(s) {
			return fmt.Errorf("%w: %s cannot be extended", shared.ErrInvalidArgument, describeProgram(s))
		}

		if err := a.controller.ExtendProgram(ctx); err != nil {
			return err
		}
		s = a.controller.Store().Get()
		r.writePlain("✓ Extended %s by %d minutes\n", s.ProgramID, services.ExtensionMinutes)
		r.writePlain("New end: %s\n", time.Unix(s.EndTime, 0).Local().Format("15:04:05"))
		return nil
	})
}

// ProgramCreate opens the create page and selects the new program once the user confirms.
func (r *Runner) ProgramCreate(ctx context.Context, cmd *cli.Command) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := r.startController(ctx, a, services.NewBrowserFlow(r.open, r.confirm), false); err != nil {
		return err
	}

	outcome, err := a.controller.CreateProgram(ctx)
	if err != nil {
		return err
	}
	if outcome != services.FlowCreated {
		return r.writePlain("Cancelled\n")
	}
	return r.writePlain("✓ Selected %s\n", describeProgram(a.controller.Store().Get()))
}

// ProgramEdit opens the edit page of the selected program and reloads it once the user confirms.
func (r *Runner) ProgramEdit(ctx context.Context, cmd *cli.Command) error {
	return r.withProgram(ctx, services.NewBrowserFlow(r.open, r.confirm), func(a *app) error {
		outcome, err := a.controller.EditProgram(ctx)
		if err != nil {
			return err
		}
		if outcome != services.FlowEdited {
			return r.writePlain("Cancelled\n")
		}
		return r.writePlain("✓ Reloaded %s\n", describeProgram(a.controller.Store().Get()))
	})
}

func (r *Runner) confirmUnless(ctx context.Context, skip bool, prompt string) (bool, error) {
	if skip {
		return true, nil
	}
	ok, err := r.confirm(ctx, prompt)
	if err != nil {
		return false, err
	}
	if !ok {
		r.writePlain("Cancelled\n")
	}
	return ok, nil
}
