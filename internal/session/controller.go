package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/services"
	"github.com/desertthunder/onair/internal/shared"
)

// Observer is told about every start, end and extend outcome.
type Observer interface {
	OperationCompleted(action models.Action, state models.ProgramState, err error)
}

// ControllerOpts configures a [Controller]. Client is required; nil fields get defaults.
type ControllerOpts struct {
	Client             services.Broadcaster
	Flow               services.ProgramFlow
	Store              *Store
	Clock              clockwork.Clock
	Logger             *log.Logger
	StatisticsInterval time.Duration
	IsOwnChannel       func(models.Schedule) bool
	Observers          []Observer
	ErrorBuffer        int
}

// Controller runs the lifecycle operations of the selected program and drives its three timers.
//
// Operations do not guard against re-entry. Callers check the Is* flags of [Store.Get]
// before starting an operation whose flag is already raised.
type Controller struct {
	client    services.Broadcaster
	flow      services.ProgramFlow
	store     *Store
	clock     clockwork.Clock
	logger    *log.Logger
	isOwn     func(models.Schedule) bool
	observers []Observer

	statusTimer *timerHandle
	extendTimer *timerHandle
	statistics  *poller

	errs   chan error
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewController creates a controller and subscribes its timers to the store.
func NewController(opts ControllerOpts) *Controller {
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.StatisticsInterval <= 0 {
		opts.StatisticsInterval = DefaultStatisticsInterval
	}
	if opts.IsOwnChannel == nil {
		opts.IsOwnChannel = services.IsOwnChannel
	}
	if opts.ErrorBuffer <= 0 {
		opts.ErrorBuffer = 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		client:      opts.Client,
		flow:        opts.Flow,
		store:       opts.Store,
		clock:       opts.Clock,
		logger:      shared.WithLogger(opts.Logger, "component", "session"),
		isOwn:       opts.IsOwnChannel,
		observers:   opts.Observers,
		statusTimer: newTimerHandle(opts.Clock),
		extendTimer: newTimerHandle(opts.Clock),
		statistics:  newPoller(opts.Clock, opts.StatisticsInterval),
		errs:        make(chan error, opts.ErrorBuffer),
		ctx:         ctx,
		cancel:      cancel,
	}
	c.store.OnChange(c.react)
	return c
}

// Store returns the store the controller writes to.
func (c *Controller) Store() *Store {
	return c.store
}

// Errors delivers failures of timer-triggered operations. Sends never block; overflow is logged and dropped.
func (c *Controller) Errors() <-chan error {
	return c.errs
}

// Close stops all timers. In-flight requests are not aborted.
func (c *Controller) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.statusTimer.clear()
	c.extendTimer.clear()
	c.statistics.clear()
	c.cancel()
}

// Now returns the local time corrected onto the server clock.
func (c *Controller) Now() time.Time {
	return CorrectedNow(c.clock.Now(), c.store.Get().ServerClockOffsetSec)
}

func (c *Controller) report(err error) {
	select {
	case c.errs <- err:
	default:
		c.logger.Warn("error channel full, dropping error", "err", err)
	}
}

func (c *Controller) observe(action models.Action, err error) {
	state := c.store.Get()
	for _, o := range c.observers {
		o.OperationCompleted(action, state, err)
	}
}

// react re-evaluates all three timers after a commit.
func (c *Controller) react(prev *models.ProgramState, next models.ProgramState) {
	if c.closed.Load() {
		return
	}
	now := CorrectedNow(c.clock.Now(), next.ServerClockOffsetSec)

	c.applyStatusTimer(StatusTimerAction(prev, next, now))
	c.applyStatistics(StatisticsAction(prev, next))
	c.applyAutoExtension(AutoExtensionAction(prev, next, now))
}

func (c *Controller) applyStatusTimer(a TimerAction) {
	switch a.Kind {
	case ActionClear:
		c.statusTimer.clear()
		c.logger.Debug("status timer cleared", "timer", "status")
	case ActionArm:
		c.statusTimer.arm(a.Delay, c.onStatusTimer)
		c.logger.Debug("status timer armed", "timer", "status", "target", a.Target, "delay", a.Delay)
	}
}

func (c *Controller) applyStatistics(a TimerAction) {
	switch a.Kind {
	case ActionClear:
		c.statistics.clear()
		c.logger.Debug("statistics poller stopped", "timer", "statistics")
	case ActionArm:
		c.statistics.start(func() { c.UpdateStatistics(c.ctx) })
		c.logger.Debug("statistics poller started", "timer", "statistics")
	}
}

func (c *Controller) applyAutoExtension(a TimerAction) {
	switch a.Kind {
	case ActionClear:
		c.extendTimer.clear()
		c.logger.Debug("auto-extension cleared", "timer", "auto_extension")
	case ActionArm:
		c.extendTimer.arm(a.Delay, c.onAutoExtension)
		c.logger.Debug("auto-extension armed", "timer", "auto_extension", "delay", a.Delay)
	case ActionRunNow:
		c.extendTimer.clear()
		c.logger.Debug("auto-extension running now", "timer", "auto_extension")
		go c.onAutoExtension()
	}
}

func (c *Controller) onStatusTimer() {
	if err := c.RefreshProgram(c.ctx); err != nil {
		c.logger.Error("status refresh failed", "err", err)
		c.report(err)
	}
}

func (c *Controller) onAutoExtension() {
	if err := c.extend(c.ctx, models.ActionAutoExtend); err != nil {
		c.logger.Error("auto-extension failed", "err", err)
		c.report(err)
	}
}
