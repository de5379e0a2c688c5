package main

import (
	"context"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/onair/internal/formatter"
	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/server"
)

// Watch selects the current program and keeps the controller running until interrupted.
//
// Status transitions, statistics and auto-extension follow the timers; failures are logged.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := r.startController(ctx, a, nil, true); err != nil {
		return err
	}
	c := a.controller

	c.Store().OnChange(func(prev *models.ProgramState, next models.ProgramState) {
		if prev.Status != next.Status || prev.ProgramID != next.ProgramID {
			r.logger.Info("program changed", "program", describeProgram(next))
		}
		if prev.EndTime != next.EndTime && next.EndTime != 0 {
			r.logger.Info("end time changed", "program_id", next.ProgramID, "end", time.Unix(next.EndTime, 0).Local().Format("15:04:05"))
		}
	})

	addr := cmd.String("metrics")
	if addr == "" {
		addr = r.config.Server.MetricsAddr
	}
	serverErrors := make(chan error, 1)
	if addr != "" {
		go func() {
			serverErrors <- server.Serve(ctx, addr, r.metricsRouter(a), r.logger)
		}()
	}

	if err := c.FetchProgram(ctx); err != nil {
		a.metrics.IncErrors()
		r.logger.Error("initial fetch failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping watch")
			return nil
		case err := <-serverErrors:
			if err != nil {
				return err
			}
		case err := <-c.Errors():
			a.metrics.IncErrors()
			r.logger.Error("controller error", "err", err)
		}
	}
}

// metricsRouter serves Prometheus metrics and a JSON health snapshot of the program.
func (r *Runner) metricsRouter(a *app) *server.BasicRouter {
	c := a.controller
	router := server.NewBasicRouter()
	router.Use(a.metrics.Middleware)

	router.Handle(http.MethodGet, "/metrics", a.metrics.Handler(func() {
		s := c.Store().Get()
		a.metrics.SetSecondsUntilEnd(formatter.Remaining(s, c.Now()))
	}))
	router.Handler(server.NewHealthHandler(func() any {
		s := c.Store().Get()
		return map[string]any{
			"program_id": s.ProgramID,
			"status":     s.Status,
			"logged_in":  s.IsLoggedIn != nil && *s.IsLoggedIn,
			"remaining":  formatter.Remaining(s, c.Now()),
		}
	}))
	r.logger.Debug("metrics routes registered", "patterns", router.Patterns())
	return router
}
