package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/services"
	"github.com/desertthunder/onair/internal/shared"
	tu "github.com/desertthunder/onair/internal/testing"
)

const waitTimeout = 2 * time.Second

func newTestController(t *testing.T, b *tu.MockBroadcaster, opts ...func(*ControllerOpts)) (*Controller, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	o := ControllerOpts{Client: b, Clock: clock, Logger: shared.NewLogger(io.Discard)}
	for _, fn := range opts {
		fn(&o)
	}
	c := NewController(o)
	t.Cleanup(c.Close)
	return c, clock
}

func schedules(entries ...models.Schedule) func(context.Context) (services.Result[[]models.Schedule], error) {
	return func(context.Context) (services.Result[[]models.Schedule], error) {
		return services.Result[[]models.Schedule]{Value: entries}, nil
	}
}

func detail(status models.Status, begin, end int64) func(context.Context, string) (services.Result[models.ProgramDetail], error) {
	return func(_ context.Context, id string) (services.Result[models.ProgramDetail], error) {
		return services.Result[models.ProgramDetail]{Value: models.ProgramDetail{
			ProgramID: id,
			Title:     "title of " + id,
			Status:    status,
			BeginAt:   begin,
			EndAt:     end,
			ViewURI:   "https://live.nicovideo.jp/watch/" + id,
		}}, nil
	}
}

func serverError(code int) error {
	return &services.APIError{Method: http.MethodPut, Endpoint: "/test", StatusCode: code}
}

func loadOnAir(c *Controller, id string, end int64) {
	c.Store().Set(func(s *models.ProgramState) {
		s.ProgramID = id
		s.Status = models.StatusOnAir
		s.StartTime = at(-time.Hour)
		s.EndTime = end
	})
}

type recordingObserver struct {
	mu      sync.Mutex
	actions []models.Action
	errs    []error
}

func (o *recordingObserver) OperationCompleted(action models.Action, _ models.ProgramState, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions = append(o.actions, action)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) snapshot() ([]models.Action, []error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.Action(nil), o.actions...), append([]error(nil), o.errs...)
}

func TestFetchProgram(t *testing.T) {
	t.Run("empty schedule list ends with no suitable program", func(t *testing.T) {
		b := &tu.MockBroadcaster{SchedulesFn: schedules()}
		c, _ := newTestController(t, b)

		err := c.FetchProgram(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoSuitableProgram)
		assert.ErrorIs(t, err, shared.ErrNoProgram)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, KindLogic, e.Kind)

		state := c.Store().Get()
		assert.False(t, state.IsFetching)
		assert.Equal(t, models.StatusEnd, state.Status)
		assert.Equal(t, 0, b.Calls("FetchProgram"))
	})

	t.Run("on air entry wins over reserved", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			SchedulesFn: schedules(
				models.Schedule{ProgramID: "lv1", SocialGroupID: "co1", Status: models.StatusReserved},
				models.Schedule{ProgramID: "lv2", SocialGroupID: "co1", Status: models.StatusOnAir},
			),
			ProgramFn: detail(models.StatusOnAir, at(-time.Hour), at(time.Hour)),
		}
		c, _ := newTestController(t, b)

		require.NoError(t, c.FetchProgram(context.Background()))

		state := c.Store().Get()
		assert.Equal(t, "lv2", state.ProgramID)
		assert.Equal(t, models.StatusOnAir, state.Status)
		assert.Equal(t, "title of lv2", state.Title)
		assert.False(t, state.ShowPlaceholder)
		assert.False(t, state.IsFetching)
		assert.Empty(t, state.Password)
	})

	t.Run("test program shows the placeholder", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			SchedulesFn: schedules(models.Schedule{ProgramID: "lv3", SocialGroupID: "co1", Status: models.StatusTest}),
			ProgramFn:   detail(models.StatusTest, at(10*time.Minute), at(time.Hour)),
		}
		c, _ := newTestController(t, b)

		require.NoError(t, c.FetchProgram(context.Background()))

		state := c.Store().Get()
		assert.Equal(t, models.StatusTest, state.Status)
		assert.True(t, state.ShowPlaceholder)
	})

	t.Run("loads the password when protected", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			SchedulesFn: schedules(models.Schedule{ProgramID: "lv4", SocialGroupID: "co1", Status: models.StatusReserved}),
			ProgramFn:   detail(models.StatusReserved, at(2*time.Hour), at(3*time.Hour)),
			PasswordFn: func(context.Context, string) (services.Result[string], error) {
				return services.Result[string]{Value: "hunter2"}, nil
			},
		}
		c, _ := newTestController(t, b)

		require.NoError(t, c.FetchProgram(context.Background()))
		assert.Equal(t, "hunter2", c.Store().Get().Password)
	})

	t.Run("other password failures propagate", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			SchedulesFn: schedules(models.Schedule{ProgramID: "lv4", SocialGroupID: "co1", Status: models.StatusReserved}),
			ProgramFn:   detail(models.StatusReserved, at(2*time.Hour), at(3*time.Hour)),
			PasswordFn: func(context.Context, string) (services.Result[string], error) {
				return services.Result[string]{}, serverError(http.StatusForbidden)
			},
		}
		c, _ := newTestController(t, b)

		err := c.FetchProgram(context.Background())
		assert.True(t, IsHTTPStatus(err, http.StatusForbidden))
		assert.False(t, c.Store().Get().IsFetching)
		assert.Empty(t, c.Store().Get().ProgramID)
	})

	t.Run("applies the server clock offset", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			SchedulesFn: schedules(models.Schedule{ProgramID: "lv5", SocialGroupID: "co1", Status: models.StatusReserved}),
		}
		var c *Controller
		b.ProgramFn = func(_ context.Context, id string) (services.Result[models.ProgramDetail], error) {
			return services.Result[models.ProgramDetail]{
				Value:      models.ProgramDetail{ProgramID: id, Status: models.StatusReserved, BeginAt: at(2 * time.Hour)},
				ServerDate: t0.Add(-10 * time.Second),
			}, nil
		}
		c, _ = newTestController(t, b)

		require.NoError(t, c.FetchProgram(context.Background()))

		offset := c.Store().Get().ServerClockOffsetSec
		require.NotNil(t, offset)
		assert.Equal(t, int64(10), *offset)
		assert.Equal(t, t0.Add(-10*time.Second), c.Now())
	})

	t.Run("upstream failure is an http error", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			SchedulesFn: func(context.Context) (services.Result[[]models.Schedule], error) {
				return services.Result[[]models.Schedule]{}, serverError(http.StatusServiceUnavailable)
			},
		}
		c, _ := newTestController(t, b)

		err := c.FetchProgram(context.Background())
		assert.True(t, IsHTTPStatus(err, http.StatusServiceUnavailable))
		assert.False(t, c.Store().Get().IsFetching)
	})
}

func TestOperationGuards(t *testing.T) {
	tc := []struct {
		name  string
		flag  func(models.ProgramState) bool
		setup func(b *tu.MockBroadcaster, seen func())
		run   func(c *Controller) error
	}{
		{
			name: "fetch",
			flag: func(s models.ProgramState) bool { return s.IsFetching },
			setup: func(b *tu.MockBroadcaster, seen func()) {
				b.SchedulesFn = func(context.Context) (services.Result[[]models.Schedule], error) {
					seen()
					return services.Result[[]models.Schedule]{}, serverError(http.StatusInternalServerError)
				}
			},
			run: func(c *Controller) error { return c.FetchProgram(context.Background()) },
		},
		{
			name: "start",
			flag: func(s models.ProgramState) bool { return s.IsStarting },
			setup: func(b *tu.MockBroadcaster, seen func()) {
				b.StartFn = func(context.Context, string) (services.Result[models.Segment], error) {
					seen()
					return services.Result[models.Segment]{}, serverError(http.StatusInternalServerError)
				}
			},
			run: func(c *Controller) error { return c.StartProgram(context.Background()) },
		},
		{
			name: "end",
			flag: func(s models.ProgramState) bool { return s.IsEnding },
			setup: func(b *tu.MockBroadcaster, seen func()) {
				b.EndFn = func(context.Context, string) (services.Result[models.Segment], error) {
					seen()
					return services.Result[models.Segment]{}, serverError(http.StatusInternalServerError)
				}
			},
			run: func(c *Controller) error { return c.EndProgram(context.Background()) },
		},
		{
			name: "extend",
			flag: func(s models.ProgramState) bool { return s.IsExtending },
			setup: func(b *tu.MockBroadcaster, seen func()) {
				b.ExtendFn = func(context.Context, string) (services.Result[models.Segment], error) {
					seen()
					return services.Result[models.Segment]{}, serverError(http.StatusInternalServerError)
				}
			},
			run: func(c *Controller) error { return c.ExtendProgram(context.Background()) },
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			b := &tu.MockBroadcaster{}
			var c *Controller
			var raised bool
			tt.setup(b, func() { raised = tt.flag(c.Store().Get()) })
			c, _ = newTestController(t, b)
			c.Store().Set(func(s *models.ProgramState) {
				s.ProgramID = "lv1"
				s.Status = models.StatusTest
				s.StartTime = at(time.Hour)
			})

			err := tt.run(c)

			assert.True(t, IsHTTPStatus(err, http.StatusInternalServerError))
			assert.True(t, raised, "guard should be raised during the call")
			assert.False(t, tt.flag(c.Store().Get()), "guard should be lowered after failure")
		})
	}
}

func TestLifecycleOperations(t *testing.T) {
	t.Run("operations need a loaded program", func(t *testing.T) {
		c, _ := newTestController(t, &tu.MockBroadcaster{})
		ctx := context.Background()

		assert.ErrorIs(t, c.StartProgram(ctx), shared.ErrNoProgram)
		assert.ErrorIs(t, c.EndProgram(ctx), shared.ErrNoProgram)
		assert.ErrorIs(t, c.ExtendProgram(ctx), shared.ErrNoProgram)
		assert.ErrorIs(t, c.RefreshProgram(ctx), shared.ErrNoProgram)
	})

	t.Run("start puts the program on air", func(t *testing.T) {
		obs := &recordingObserver{}
		b := &tu.MockBroadcaster{
			StartFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{Value: models.Segment{StartTime: at(0), EndTime: at(30 * time.Minute)}}, nil
			},
		}
		c, _ := newTestController(t, b, func(o *ControllerOpts) { o.Observers = []Observer{obs} })
		c.Store().Set(func(s *models.ProgramState) {
			s.ProgramID = "lv1"
			s.Status = models.StatusTest
			s.StartTime = at(time.Hour)
			s.ShowPlaceholder = true
		})

		require.NoError(t, c.StartProgram(context.Background()))

		state := c.Store().Get()
		assert.Equal(t, models.StatusOnAir, state.Status)
		assert.Equal(t, at(0), state.StartTime)
		assert.Equal(t, at(30*time.Minute), state.EndTime)
		assert.False(t, state.ShowPlaceholder)
		assert.False(t, state.IsStarting)

		actions, errs := obs.snapshot()
		assert.Equal(t, []models.Action{models.ActionStart}, actions)
		assert.Nil(t, errs[0])
	})

	t.Run("end sets status end", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			EndFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{Value: models.Segment{EndTime: at(0)}}, nil
			},
		}
		c, _ := newTestController(t, b)
		loadOnAir(c, "lv1", at(time.Hour))

		require.NoError(t, c.EndProgram(context.Background()))

		state := c.Store().Get()
		assert.Equal(t, models.StatusEnd, state.Status)
		assert.Equal(t, at(0), state.EndTime)
		assert.False(t, c.statusTimer.isArmed())
		assert.False(t, c.statistics.running())
	})

	t.Run("conflict on end reconciles by refreshing", func(t *testing.T) {
		obs := &recordingObserver{}
		b := &tu.MockBroadcaster{
			EndFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{}, serverError(http.StatusConflict)
			},
			ProgramFn: detail(models.StatusEnd, at(-2*time.Hour), at(-time.Minute)),
		}
		c, _ := newTestController(t, b, func(o *ControllerOpts) { o.Observers = []Observer{obs} })
		loadOnAir(c, "lv1", at(time.Hour))

		require.NoError(t, c.EndProgramOrReconcile(context.Background()))

		assert.Equal(t, models.StatusEnd, c.Store().Get().Status)
		assert.Equal(t, 1, b.Calls("FetchProgram"))
		actions, _ := obs.snapshot()
		assert.Equal(t, []models.Action{models.ActionEnd, models.ActionEndReconciled}, actions)
	})

	t.Run("other end failures are not reconciled", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			EndFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{}, serverError(http.StatusForbidden)
			},
		}
		c, _ := newTestController(t, b)
		loadOnAir(c, "lv1", at(time.Hour))

		err := c.EndProgramOrReconcile(context.Background())
		assert.True(t, IsHTTPStatus(err, http.StatusForbidden))
		assert.Equal(t, 0, b.Calls("FetchProgram"))
	})

	t.Run("network failure reason", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			ExtendFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{}, shared.ErrAPIRequest
			},
		}
		c, _ := newTestController(t, b)
		loadOnAir(c, "lv1", at(time.Hour))

		err := c.ExtendProgram(context.Background())
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, KindHTTP, e.Kind)
		assert.Equal(t, ReasonNetwork, e.Reason)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})

	t.Run("extend moves the end time", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			ExtendFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{Value: models.Segment{EndTime: at(90 * time.Minute)}}, nil
			},
		}
		c, _ := newTestController(t, b)
		loadOnAir(c, "lv1", at(time.Hour))

		require.NoError(t, c.ExtendProgram(context.Background()))
		assert.Equal(t, at(90*time.Minute), c.Store().Get().EndTime)
		assert.False(t, c.Store().Get().IsExtending)
	})
}

func TestFlows(t *testing.T) {
	t.Run("created program is fetched", func(t *testing.T) {
		flow := &tu.MockFlow{Outcome: services.FlowCreated}
		b := &tu.MockBroadcaster{
			SchedulesFn: schedules(models.Schedule{ProgramID: "lv7", SocialGroupID: "co1", Status: models.StatusReserved}),
			ProgramFn:   detail(models.StatusReserved, at(time.Hour), at(2*time.Hour)),
		}
		c, _ := newTestController(t, b, func(o *ControllerOpts) { o.Flow = flow })

		outcome, err := c.CreateProgram(context.Background())
		require.NoError(t, err)
		assert.Equal(t, services.FlowCreated, outcome)
		assert.Equal(t, 1, flow.Created)
		assert.Equal(t, "lv7", c.Store().Get().ProgramID)
	})

	t.Run("cancelled creation does nothing", func(t *testing.T) {
		flow := &tu.MockFlow{Outcome: services.FlowCancelled}
		b := &tu.MockBroadcaster{}
		c, _ := newTestController(t, b, func(o *ControllerOpts) { o.Flow = flow })

		outcome, err := c.CreateProgram(context.Background())
		require.NoError(t, err)
		assert.Equal(t, services.FlowCancelled, outcome)
		assert.Equal(t, 0, b.Calls("FetchProgramSchedules"))
	})

	t.Run("edited program is refreshed", func(t *testing.T) {
		flow := &tu.MockFlow{Outcome: services.FlowEdited}
		b := &tu.MockBroadcaster{ProgramFn: detail(models.StatusReserved, at(time.Hour), at(2*time.Hour))}
		c, _ := newTestController(t, b, func(o *ControllerOpts) { o.Flow = flow })
		c.Store().Set(func(s *models.ProgramState) {
			s.ProgramID = "lv8"
			s.Status = models.StatusReserved
			s.StartTime = at(time.Hour)
		})

		outcome, err := c.EditProgram(context.Background())
		require.NoError(t, err)
		assert.Equal(t, services.FlowEdited, outcome)
		assert.Equal(t, []string{"lv8"}, flow.Edited)
		assert.Equal(t, "title of lv8", c.Store().Get().Title)
	})

	t.Run("flow errors propagate", func(t *testing.T) {
		flow := &tu.MockFlow{Err: errors.New("browser failed")}
		c, _ := newTestController(t, &tu.MockBroadcaster{}, func(o *ControllerOpts) { o.Flow = flow })

		_, err := c.CreateProgram(context.Background())
		assert.EqualError(t, err, "browser failed")
	})

	t.Run("no flow configured", func(t *testing.T) {
		c, _ := newTestController(t, &tu.MockBroadcaster{})
		_, err := c.CreateProgram(context.Background())
		assert.ErrorIs(t, err, shared.ErrNotImplemented)
	})
}

func TestStatusTimer(t *testing.T) {
	t.Run("refreshes after the end time passes", func(t *testing.T) {
		b := &tu.MockBroadcaster{ProgramFn: detail(models.StatusEnd, at(-time.Hour), at(time.Hour))}
		c, clock := newTestController(t, b)
		loadOnAir(c, "lv1", at(time.Hour))
		require.True(t, c.statusTimer.isArmed())

		clock.Advance(time.Hour)
		assert.Equal(t, 0, b.Calls("FetchProgram"))

		clock.Advance(statusTimerSlack)
		b.WaitForCalls(t, "FetchProgram", 1, waitTimeout)
		assert.Eventually(t, func() bool {
			return c.Store().Get().Status == models.StatusEnd
		}, waitTimeout, 10*time.Millisecond)
	})

	t.Run("refresh failures reach the error channel", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			ProgramFn: func(context.Context, string) (services.Result[models.ProgramDetail], error) {
				return services.Result[models.ProgramDetail]{}, serverError(http.StatusBadGateway)
			},
		}
		c, clock := newTestController(t, b)
		loadOnAir(c, "lv1", at(time.Minute))

		clock.Advance(time.Minute + statusTimerSlack)

		select {
		case err := <-c.Errors():
			assert.True(t, IsHTTPStatus(err, http.StatusBadGateway))
		case <-time.After(waitTimeout):
			t.Fatal("expected refresh failure on the error channel")
		}
	})
}

func TestStatisticsPoller(t *testing.T) {
	b := &tu.MockBroadcaster{
		StatsFn: func(context.Context, string) (services.Result[models.Statistics], error) {
			return services.Result[models.Statistics]{Value: models.Statistics{WatchCount: 42, CommentCount: 7}}, nil
		},
		NicoadFn: func(context.Context, string) (services.Result[models.NicoadStatistics], error) {
			return services.Result[models.NicoadStatistics]{}, serverError(http.StatusInternalServerError)
		},
	}
	c, clock := newTestController(t, b)
	loadOnAir(c, "lv1", at(time.Hour))

	b.WaitForCalls(t, "FetchStatistics", 1, waitTimeout)
	assert.Eventually(t, func() bool {
		s := c.Store().Get()
		return s.Viewers == 42 && s.Comments == 7
	}, waitTimeout, 10*time.Millisecond)
	assert.True(t, c.statistics.running())

	clock.Advance(DefaultStatisticsInterval)
	b.WaitForCalls(t, "FetchStatistics", 2, waitTimeout)

	c.Store().Set(func(s *models.ProgramState) { s.Status = models.StatusEnd })
	assert.False(t, c.statistics.running())

	calls := b.Calls("FetchStatistics")
	clock.Advance(DefaultStatisticsInterval)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, b.Calls("FetchStatistics"))

	// both nicoad failures were reported without stopping the poller
	for range 2 {
		select {
		case err := <-c.Errors():
			assert.True(t, IsHTTPStatus(err, http.StatusInternalServerError))
		case <-time.After(waitTimeout):
			t.Fatal("expected nicoad failure on the error channel")
		}
	}
}

func TestAutoExtension(t *testing.T) {
	t.Run("fires five minutes before the end", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			ExtendFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{Value: models.Segment{EndTime: at(90 * time.Minute)}}, nil
			},
		}
		obs := &recordingObserver{}
		c, clock := newTestController(t, b, func(o *ControllerOpts) { o.Observers = []Observer{obs} })
		loadOnAir(c, "lv1", at(time.Hour))
		c.ApplyPrefs(models.Prefs{AutoExtensionEnabled: true})
		require.True(t, c.extendTimer.isArmed())

		clock.Advance(55 * time.Minute)
		b.WaitForCalls(t, "ExtendProgram", 1, waitTimeout)

		assert.Eventually(t, func() bool {
			return c.Store().Get().EndTime == at(90*time.Minute)
		}, waitTimeout, 10*time.Millisecond)
		assert.Eventually(t, c.extendTimer.isArmed, waitTimeout, 10*time.Millisecond)
		assert.Eventually(t, func() bool {
			actions, _ := obs.snapshot()
			return len(actions) == 1 && actions[0] == models.ActionAutoExtend
		}, waitTimeout, 10*time.Millisecond)
	})

	t.Run("runs immediately inside the lead window", func(t *testing.T) {
		release := make(chan struct{})
		b := &tu.MockBroadcaster{
			ExtendFn: func(context.Context, string) (services.Result[models.Segment], error) {
				<-release
				return services.Result[models.Segment]{Value: models.Segment{EndTime: at(34 * time.Minute)}}, nil
			},
		}
		c, _ := newTestController(t, b)
		loadOnAir(c, "lv1", at(4*time.Minute))

		c.ApplyPrefs(models.Prefs{AutoExtensionEnabled: true})
		assert.False(t, c.extendTimer.isArmed())

		b.WaitForCalls(t, "ExtendProgram", 1, waitTimeout)
		close(release)
		assert.Eventually(t, func() bool {
			return c.Store().Get().EndTime == at(34*time.Minute)
		}, waitTimeout, 10*time.Millisecond)
	})

	t.Run("disabling clears the timer", func(t *testing.T) {
		c, _ := newTestController(t, &tu.MockBroadcaster{})
		loadOnAir(c, "lv1", at(time.Hour))
		c.ApplyPrefs(models.Prefs{AutoExtensionEnabled: true})
		require.True(t, c.extendTimer.isArmed())

		c.ApplyPrefs(models.Prefs{AutoExtensionEnabled: false})
		assert.False(t, c.extendTimer.isArmed())
	})

	t.Run("failures reach the error channel", func(t *testing.T) {
		b := &tu.MockBroadcaster{
			ExtendFn: func(context.Context, string) (services.Result[models.Segment], error) {
				return services.Result[models.Segment]{}, serverError(http.StatusBadRequest)
			},
		}
		c, _ := newTestController(t, b)
		loadOnAir(c, "lv1", at(time.Minute))
		c.ApplyPrefs(models.Prefs{AutoExtensionEnabled: true})

		select {
		case err := <-c.Errors():
			assert.True(t, IsHTTPStatus(err, http.StatusBadRequest))
		case <-time.After(waitTimeout):
			t.Fatal("expected auto-extension failure on the error channel")
		}
		assert.Eventually(t, func() bool { return !c.Store().Get().IsExtending }, waitTimeout, 10*time.Millisecond)
	})
}

func TestSessionEvents(t *testing.T) {
	t.Run("login keeps preferences", func(t *testing.T) {
		c, _ := newTestController(t, &tu.MockBroadcaster{})
		opened := true
		c.ApplyPrefs(models.Prefs{AutoExtensionEnabled: true, PanelOpened: &opened})
		loadOnAir(c, "lv1", at(time.Hour))

		c.OnLogin()

		state := c.Store().Get()
		assert.Empty(t, state.ProgramID)
		assert.Equal(t, models.StatusEnd, state.Status)
		assert.True(t, state.AutoExtensionEnabled)
		require.NotNil(t, state.PanelOpened)
		assert.True(t, *state.PanelOpened)
		require.NotNil(t, state.IsLoggedIn)
		assert.True(t, *state.IsLoggedIn)
		assert.False(t, c.statistics.running())
		assert.False(t, c.statusTimer.isArmed())
		assert.False(t, c.extendTimer.isArmed())
	})

	t.Run("logout marks the session logged out", func(t *testing.T) {
		c, _ := newTestController(t, &tu.MockBroadcaster{})
		c.OnLogin()
		c.OnLogout()

		state := c.Store().Get()
		require.NotNil(t, state.IsLoggedIn)
		assert.False(t, *state.IsLoggedIn)
	})

	t.Run("close stops reacting", func(t *testing.T) {
		c, _ := newTestController(t, &tu.MockBroadcaster{})
		loadOnAir(c, "lv1", at(time.Hour))
		require.True(t, c.statusTimer.isArmed())

		c.Close()
		assert.False(t, c.statusTimer.isArmed())
		assert.False(t, c.statistics.running())

		loadOnAir(c, "lv2", at(2*time.Hour))
		assert.False(t, c.statusTimer.isArmed())
		c.Close()
	})
}

func TestUpdateStatisticsIgnoresStaleProgram(t *testing.T) {
	var c *Controller
	b := &tu.MockBroadcaster{}
	b.StatsFn = func(context.Context, string) (services.Result[models.Statistics], error) {
		c.Store().Set(func(s *models.ProgramState) { s.ProgramID = "lv2" })
		return services.Result[models.Statistics]{Value: models.Statistics{WatchCount: 99}}, nil
	}
	c, _ = newTestController(t, b)
	c.Store().Set(func(s *models.ProgramState) {
		s.ProgramID = "lv1"
		s.Status = models.StatusReserved
		s.StartTime = at(time.Hour)
	})

	c.UpdateStatistics(context.Background())
	assert.Equal(t, 0, c.Store().Get().Viewers)
}
