package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/services"
	"github.com/desertthunder/onair/internal/shared"
)

type passwordResult struct {
	password string
	err      error
}

func applyOffset(s *models.ProgramState, serverDate, receipt time.Time) {
	if serverDate.IsZero() {
		return
	}
	offset := OffsetSeconds(serverDate, receipt)
	s.ServerClockOffsetSec = &offset
}

func (c *Controller) loadedProgram(op string) (string, error) {
	id := c.store.Get().ProgramID
	if id == "" {
		return "", fmt.Errorf("%s: %w", op, shared.ErrNoProgram)
	}
	return id, nil
}

// FetchProgram selects a program from the user's schedules and loads it into the store.
//
// When nothing qualifies the status becomes end and [ErrNoSuitableProgram] is returned.
func (c *Controller) FetchProgram(ctx context.Context) error {
	c.store.Set(func(s *models.ProgramState) { s.IsFetching = true })
	defer c.store.Set(func(s *models.ProgramState) { s.IsFetching = false })

	schedules, err := c.client.FetchProgramSchedules(ctx)
	if err != nil {
		return httpError("fetchProgramSchedules", err)
	}

	selected := SelectProgram(schedules.Value, c.isOwn)
	if selected == nil {
		c.store.Set(func(s *models.ProgramState) { s.Status = models.StatusEnd })
		return noSuitableProgram()
	}
	id := selected.ProgramID

	passwords := make(chan passwordResult, 1)
	go func() {
		passwords <- c.fetchPassword(ctx, id)
	}()

	detail, err := c.client.FetchProgram(ctx, id)
	receipt := c.clock.Now()
	pw := <-passwords
	if err != nil {
		return httpError("fetchProgram", err)
	}
	if pw.err != nil {
		return pw.err
	}

	d := detail.Value
	c.store.Set(func(s *models.ProgramState) {
		s.ProgramID = id
		s.Status = d.Status
		s.Title = d.Title
		s.Description = d.Description
		s.StartTime = d.BeginAt
		s.EndTime = d.EndAt
		s.VposBaseTime = d.VposBaseAt
		s.IsMemberOnly = d.IsMemberOnly
		s.ViewURI = d.ViewURI
		s.ModeratorViewURI = d.ModeratorViewURI
		s.Password = pw.password
		s.ShowPlaceholder = d.Status == models.StatusTest
		applyOffset(s, detail.ServerDate, receipt)
	})
	c.logger.Info("program loaded", "program_id", id, "status", d.Status)
	return nil
}

func (c *Controller) fetchPassword(ctx context.Context, id string) passwordResult {
	res, err := c.client.FetchProgramPassword(ctx, id)
	if errors.Is(err, services.ErrNotPasswordProtected) {
		return passwordResult{}
	}
	if err != nil {
		return passwordResult{err: httpError("fetchProgramPassword", err)}
	}
	return passwordResult{password: res.Value}
}

// RefreshProgram reloads the details of the loaded program. It raises no guard flag.
func (c *Controller) RefreshProgram(ctx context.Context) error {
	id, err := c.loadedProgram("refreshProgram")
	if err != nil {
		return err
	}

	detail, err := c.client.FetchProgram(ctx, id)
	receipt := c.clock.Now()
	if err != nil {
		return httpError("fetchProgram", err)
	}

	d := detail.Value
	c.store.Set(func(s *models.ProgramState) {
		s.Status = d.Status
		s.Title = d.Title
		s.Description = d.Description
		s.StartTime = d.BeginAt
		s.EndTime = d.EndAt
		s.ViewURI = d.ViewURI
		applyOffset(s, detail.ServerDate, receipt)
	})
	c.logger.Debug("program refreshed", "program_id", id, "status", d.Status)
	return nil
}

// CreateProgram runs the external creation flow and loads the result when a program was created.
func (c *Controller) CreateProgram(ctx context.Context) (services.FlowOutcome, error) {
	if c.flow == nil {
		return services.FlowCancelled, fmt.Errorf("%w: create flow", shared.ErrNotImplemented)
	}

	outcome, err := c.flow.CreateProgram(ctx)
	if err != nil {
		return outcome, err
	}
	if outcome == services.FlowCreated {
		return outcome, c.FetchProgram(ctx)
	}
	return outcome, nil
}

// EditProgram runs the external edit flow for the loaded program and refreshes it when edited.
func (c *Controller) EditProgram(ctx context.Context) (services.FlowOutcome, error) {
	if c.flow == nil {
		return services.FlowCancelled, fmt.Errorf("%w: edit flow", shared.ErrNotImplemented)
	}
	id, err := c.loadedProgram("editProgram")
	if err != nil {
		return services.FlowCancelled, err
	}

	outcome, err := c.flow.EditProgram(ctx, id)
	if err != nil {
		return outcome, err
	}
	if outcome == services.FlowEdited {
		return outcome, c.RefreshProgram(ctx)
	}
	return outcome, nil
}

// StartProgram puts the loaded program on air.
func (c *Controller) StartProgram(ctx context.Context) error {
	id, err := c.loadedProgram("startProgram")
	if err != nil {
		return err
	}

	c.store.Set(func(s *models.ProgramState) { s.IsStarting = true })
	defer c.store.Set(func(s *models.ProgramState) { s.IsStarting = false })

	res, err := c.client.StartProgram(ctx, id)
	receipt := c.clock.Now()
	if err != nil {
		err = httpError("startProgram", err)
		c.observe(models.ActionStart, err)
		return err
	}

	c.store.Set(func(s *models.ProgramState) {
		s.Status = models.StatusOnAir
		if res.Value.StartTime != 0 {
			s.StartTime = res.Value.StartTime
		}
		s.EndTime = res.Value.EndTime
		applyOffset(s, res.ServerDate, receipt)
	})
	c.logger.Info("program started", "program_id", id, "end_time", res.Value.EndTime)
	c.observe(models.ActionStart, nil)
	return nil
}

// EndProgram ends the loaded program.
func (c *Controller) EndProgram(ctx context.Context) error {
	id, err := c.loadedProgram("endProgram")
	if err != nil {
		return err
	}

	c.store.Set(func(s *models.ProgramState) { s.IsEnding = true })
	defer c.store.Set(func(s *models.ProgramState) { s.IsEnding = false })

	res, err := c.client.EndProgram(ctx, id)
	receipt := c.clock.Now()
	if err != nil {
		err = httpError("endProgram", err)
		c.observe(models.ActionEnd, err)
		return err
	}

	c.store.Set(func(s *models.ProgramState) {
		s.Status = models.StatusEnd
		s.EndTime = res.Value.EndTime
		applyOffset(s, res.ServerDate, receipt)
	})
	c.logger.Info("program ended", "program_id", id, "end_time", res.Value.EndTime)
	c.observe(models.ActionEnd, nil)
	return nil
}

// EndProgramOrReconcile ends the program, treating a 409 as "already ended" and refreshing instead.
func (c *Controller) EndProgramOrReconcile(ctx context.Context) error {
	err := c.EndProgram(ctx)
	if !IsHTTPStatus(err, http.StatusConflict) {
		return err
	}

	c.logger.Info("program already ended upstream, refreshing", "program_id", c.store.Get().ProgramID)
	if err := c.RefreshProgram(ctx); err != nil {
		return err
	}
	c.observe(models.ActionEndReconciled, nil)
	return nil
}

// ExtendProgram extends the loaded program by 30 minutes.
func (c *Controller) ExtendProgram(ctx context.Context) error {
	return c.extend(ctx, models.ActionExtend)
}

func (c *Controller) extend(ctx context.Context, action models.Action) error {
	id, err := c.loadedProgram("extendProgram")
	if err != nil {
		return err
	}

	c.store.Set(func(s *models.ProgramState) { s.IsExtending = true })
	defer c.store.Set(func(s *models.ProgramState) { s.IsExtending = false })

	res, err := c.client.ExtendProgram(ctx, id)
	receipt := c.clock.Now()
	if err != nil {
		err = httpError("extendProgram", err)
		c.observe(action, err)
		return err
	}

	c.store.Set(func(s *models.ProgramState) {
		s.EndTime = res.Value.EndTime
		applyOffset(s, res.ServerDate, receipt)
	})
	c.logger.Info("program extended", "program_id", id, "end_time", res.Value.EndTime, "auto", action == models.ActionAutoExtend)
	c.observe(action, nil)
	return nil
}

// UpdateStatistics fetches audience and ad counters independently. A failure in
// one fetch does not block the other; failures go to Errors and never stop the poller.
func (c *Controller) UpdateStatistics(ctx context.Context) {
	id := c.store.Get().ProgramID
	if id == "" {
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := c.client.FetchStatistics(ctx, id)
		if err != nil {
			c.logger.Warn("statistics fetch failed", "program_id", id, "err", err)
			c.report(err)
			return
		}
		c.store.Set(func(s *models.ProgramState) {
			if s.ProgramID == id {
				s.Viewers = res.Value.WatchCount
				s.Comments = res.Value.CommentCount
			}
		})
	}()
	go func() {
		defer wg.Done()
		res, err := c.client.FetchNicoadStatistics(ctx, id)
		if err != nil {
			c.logger.Warn("nicoad statistics fetch failed", "program_id", id, "err", err)
			c.report(err)
			return
		}
		c.store.Set(func(s *models.ProgramState) {
			if s.ProgramID == id {
				s.AdPoint = res.Value.TotalAdPoint
				s.GiftPoint = res.Value.TotalGiftPoint
			}
		})
	}()
	wg.Wait()
}

// OnLogin replaces the state with defaults marked as logged in. Preferences are kept.
func (c *Controller) OnLogin() {
	c.replaceKeepingPrefs(true)
}

// OnLogout resets the state to defaults marked as logged out. Preferences are kept.
func (c *Controller) OnLogout() {
	c.replaceKeepingPrefs(false)
}

func (c *Controller) replaceKeepingPrefs(loggedIn bool) {
	cur := c.store.Get()
	next := models.DefaultProgramState()
	next.AutoExtensionEnabled = cur.AutoExtensionEnabled
	next.PanelOpened = cur.PanelOpened
	next.IsLoggedIn = &loggedIn
	c.store.Replace(next)
	c.logger.Info("session replaced", "logged_in", loggedIn)
}

// ApplyPrefs mirrors persisted preferences into the state.
func (c *Controller) ApplyPrefs(p models.Prefs) {
	c.store.Set(func(s *models.ProgramState) {
		s.AutoExtensionEnabled = p.AutoExtensionEnabled
		if p.PanelOpened != nil {
			v := *p.PanelOpened
			s.PanelOpened = &v
		} else {
			s.PanelOpened = nil
		}
	})
}
