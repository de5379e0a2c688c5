// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes a config file when missing and migrates the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Revert the latest database migration instead of migrating",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles Nicolive login state
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Nicolive authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with Nicolive using OAuth2",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: authTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a token is stored",
				Action: r.AuthStatus,
			},
		},
	}
}

// programCommand handles lifecycle operations on the selected program
func programCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "program",
		Aliases: []string{"p"},
		Usage:   "Select and control the current program",
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Select the current program from your schedules",
				Action: r.ProgramFetch,
			},
			{
				Name:  "show",
				Usage: "Print the selected program",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, csv or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to this file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "password",
						Usage: "Include the program password",
					},
				},
				Action: r.ProgramShow,
			},
			{
				Name:   "start",
				Usage:  "Put the selected program on air",
				Flags:  []cli.Flag{yesFlag()},
				Action: r.ProgramStart,
			},
			{
				Name:   "end",
				Usage:  "End the selected program",
				Flags:  []cli.Flag{yesFlag()},
				Action: r.ProgramEnd,
			},
			{
				Name:   "extend",
				Usage:  "Extend the selected program by 30 minutes",
				Action: r.ProgramExtend,
			},
			{
				Name:   "create",
				Usage:  "Create a program in the browser, then select it",
				Action: r.ProgramCreate,
			},
			{
				Name:   "edit",
				Usage:  "Edit the selected program in the browser",
				Action: r.ProgramEdit,
			},
		},
	}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}
}

// watchCommand runs the controller headless until interrupted
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow the current program, polling statistics and auto-extending",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Serve /metrics and /healthz on this address (overrides server.metrics_addr)",
			},
		},
		Action: r.Watch,
	}
}

// prefsCommand toggles persisted preferences
func prefsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change preferences",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print preferences",
				Action: r.PrefsShow,
			},
			{
				Name:      "auto-extension",
				Usage:     "Turn automatic extension on or off",
				Arguments: []cli.Argument{&cli.StringArg{Name: "state"}},
				Action:    r.PrefsAutoExtension,
			},
			{
				Name:      "panel",
				Usage:     "Open or close the program panel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "state"}},
				Action:    r.PrefsPanel,
			},
		},
	}
}

// historyCommand lists recorded lifecycle operations
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded start, end and extend operations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "program",
				Usage: "Only show entries for this program id",
			},
			&cli.StringFlag{
				Name:  "action",
				Usage: "Only show entries with this action",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries",
				Value: 20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv or json",
				Value:   "text",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for the live dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"dashboard", "ui"},
		Usage:   "Launch the live program dashboard",
		Action:  r.TUI,
	}
}
