package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/onair/internal/formatter"
	"github.com/desertthunder/onair/internal/repositories"
	"github.com/desertthunder/onair/internal/shared"
)

// parseSwitch accepts on/off style arguments. onWord and offWord are the command-specific spellings.
func parseSwitch(arg, onWord, offWord string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "":
		return false, fmt.Errorf("%w: expected %s or %s", shared.ErrMissingArgument, onWord, offWord)
	case onWord, "on", "true", "yes":
		return true, nil
	case offWord, "off", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q (expected %s or %s)", shared.ErrInvalidArgument, arg, onWord, offWord)
	}
}

func (r *Runner) withPrefs(fn func(*repositories.PrefsRepository) error) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.prefs)
}

// PrefsShow prints the stored preferences.
func (r *Runner) PrefsShow(ctx context.Context, cmd *cli.Command) error {
	return r.withPrefs(func(prefs *repositories.PrefsRepository) error {
		p, err := prefs.Get()
		if err != nil {
			return err
		}

		panel := "default"
		if p.PanelOpened != nil {
			panel = "closed"
			if *p.PanelOpened {
				panel = "open"
			}
		}
		r.writePlainHeader("Preferences")
		r.writePlain("Auto-extension: %s\n", onOff(p.AutoExtensionEnabled))
		r.writePlain("Panel:          %s\n", panel)
		return nil
	})
}

// PrefsAutoExtension turns auto-extension on or off. Running watch and tui sessions pick it up on their next start.
func (r *Runner) PrefsAutoExtension(ctx context.Context, cmd *cli.Command) error {
	enabled, err := parseSwitch(cmd.StringArg("state"), "on", "off")
	if err != nil {
		return err
	}

	return r.withPrefs(func(prefs *repositories.PrefsRepository) error {
		if err := prefs.SetAutoExtension(enabled); err != nil {
			return err
		}
		r.logger.Info("auto-extension updated", "enabled", enabled)
		return r.writePlain("✓ Auto-extension %s\n", onOff(enabled))
	})
}

// PrefsPanel opens or closes the dashboard panel.
func (r *Runner) PrefsPanel(ctx context.Context, cmd *cli.Command) error {
	opened, err := parseSwitch(cmd.StringArg("state"), "open", "close")
	if err != nil {
		return err
	}

	return r.withPrefs(func(prefs *repositories.PrefsRepository) error {
		if err := prefs.SetPanelOpened(opened); err != nil {
			return err
		}
		state := "closed"
		if opened {
			state = "open"
		}
		return r.writePlain("✓ Panel %s\n", state)
	})
}

// History lists recorded lifecycle operations, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if id := cmd.String("program"); id != "" {
		criteria["program_id"] = id
	}
	if action := cmd.String("action"); action != "" {
		criteria["action"] = action
	}

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.history.List(criteria)
	if err != nil {
		return err
	}

	data, err := formatter.RenderHistory(entries, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}
