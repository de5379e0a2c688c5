package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/onair/internal/auth"
	"github.com/desertthunder/onair/internal/metrics"
	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/repositories"
	"github.com/desertthunder/onair/internal/services"
	"github.com/desertthunder/onair/internal/session"
	"github.com/desertthunder/onair/internal/shared"
)

const tokenProvider = "nicolive"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      *bufio.Reader
	clock      clockwork.Clock
	client     services.Broadcaster
	open       shared.BrowserOpener
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Clock      clockwork.Clock

	// Client replaces the Nicolive client built from config.
	Client      services.Broadcaster
	OpenBrowser shared.BrowserOpener
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      bufio.NewReader(opts.Input),
		clock:      opts.Clock,
		client:     opts.Client,
		open:       opts.OpenBrowser,
	}
}

// SetLogger replaces the logger used by commands and the components they build.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "onair",
		Usage:   "Run a Nicolive broadcast from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with ONAIR_* overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, programCommand, watchCommand, prefsCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file, applies environment overrides and sets the log level.
//
// A missing config file is not an error; the embedded defaults are used instead.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")

	config, err := shared.LoadConfig(path)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", path)
		config = shared.DefaultConfig()
	case err != nil:
		return ctx, err
	}

	env, err := shared.LoadEnv(cmd.String("env-file"))
	if err != nil {
		return ctx, err
	}
	config.ApplyEnv(env)

	if err := config.Validate(); err != nil {
		return ctx, err
	}

	level, err := shared.ParseLogLevel(config.Log.Level)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	r.config = config
	r.configPath = path
	return ctx, nil
}

// app holds the components built for one command invocation.
type app struct {
	db         *sql.DB
	prefs      *repositories.PrefsRepository
	history    *repositories.HistoryRepository
	auth       *auth.Session
	metrics    *metrics.Metrics
	controller *session.Controller
	cleanup    []func()
}

// Close stops the controller and releases the database.
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	if a.controller != nil {
		a.controller.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// openApp opens the database and builds the repositories and auth session.
func (r *Runner) openApp() (*app, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	oauthConfig, err := services.NewOAuthConfig(r.config.Credentials.Nicolive)
	if err != nil {
		r.logger.Debug("oauth client not configured, stored tokens will not be refreshed", "err", err)
		oauthConfig = nil
	}

	return &app{
		db:      db,
		prefs:   repositories.NewPrefsRepository(db),
		history: repositories.NewHistoryRepository(db, r.clock, r.logger),
		auth:    auth.NewSession(repositories.NewTokenRepository(db, tokenProvider), oauthConfig, r.logger),
		metrics: metrics.New(),
	}, nil
}

// startController builds the lifecycle controller on top of a.
//
// A live controller follows the persisted preferences, so auto-extension may fire while it runs.
// One-shot commands leave auto-extension off.
func (r *Runner) startController(ctx context.Context, a *app, flow services.ProgramFlow, live bool) error {
	client, err := r.broadcaster(ctx, a.auth)
	if err != nil {
		return err
	}

	store := session.NewStore()
	store.OnChange(a.metrics.ObserveState)

	c := session.NewController(session.ControllerOpts{
		Client:             client,
		Flow:               flow,
		Store:              store,
		Clock:              r.clock,
		Logger:             r.logger,
		StatisticsInterval: r.config.Session.StatisticsInterval(),
		Observers:          []session.Observer{a.history, a.metrics},
	})
	a.controller = c
	c.OnLogin()

	a.cleanup = append(a.cleanup, a.auth.Subscribe(func(e auth.Event) {
		switch e.Kind {
		case auth.EventLogin:
			c.OnLogin()
		case auth.EventLogout:
			c.OnLogout()
		}
	}))

	if !live {
		return nil
	}

	unsubscribe, err := a.prefs.Subscribe(c.ApplyPrefs)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	a.cleanup = append(a.cleanup, unsubscribe)
	return nil
}

// broadcaster returns the injected client or builds one from config.
//
// A static access token from config or ONAIR_ACCESS_TOKEN wins over the stored login.
func (r *Runner) broadcaster(ctx context.Context, sess *auth.Session) (services.Broadcaster, error) {
	if r.client != nil {
		return r.client, nil
	}

	var source oauth2.TokenSource
	creds := r.config.Credentials.Nicolive
	if creds.AccessToken != "" {
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, RefreshToken: creds.RefreshToken})
	} else {
		s, err := sess.TokenSource(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w (run 'onair auth login')", err)
		}
		source = s
	}

	api := r.config.API
	return services.NewNicoliveClient(services.ClientOpts{
		BaseURL:     api.BaseURL,
		NicoadURL:   api.NicoadURL,
		WatchURL:    api.WatchURL,
		TokenSource: source,
		RateLimit:   api.RateLimit,
		MaxRetries:  api.MaxRetries,
		Timeout:     api.Timeout(),
		UserAgent:   api.UserAgent,
		Logger:      r.logger,
	}), nil
}

// confirm asks a yes/no question on the runner's input. Anything but y or yes is a no.
func (r *Runner) confirm(_ context.Context, prompt string) (bool, error) {
	if err := r.writePlain("%s [y/N] ", prompt); err != nil {
		return false, err
	}

	line, err := r.input.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if _, err := r.output.Write([]byte("\n")); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func describeProgram(s models.ProgramState) string {
	if s.ProgramID == "" {
		return "no program"
	}
	return fmt.Sprintf("%s (%s) %s", s.ProgramID, s.Status, s.Title)
}
