// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/services"
)

// MockBroadcaster is a test double for [services.Broadcaster].
//
// Each method calls its Fn field when set and otherwise returns a zero [services.Result].
// Calls are recorded by method name.
type MockBroadcaster struct {
	SchedulesFn func(ctx context.Context) (services.Result[[]models.Schedule], error)
	ProgramFn   func(ctx context.Context, id string) (services.Result[models.ProgramDetail], error)
	PasswordFn  func(ctx context.Context, id string) (services.Result[string], error)
	StartFn     func(ctx context.Context, id string) (services.Result[models.Segment], error)
	EndFn       func(ctx context.Context, id string) (services.Result[models.Segment], error)
	ExtendFn    func(ctx context.Context, id string) (services.Result[models.Segment], error)
	StatsFn     func(ctx context.Context, id string) (services.Result[models.Statistics], error)
	NicoadFn    func(ctx context.Context, id string) (services.Result[models.NicoadStatistics], error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockBroadcaster) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was called.
func (m *MockBroadcaster) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// WaitForCalls polls until the named method was called at least n times or the timeout expires.
func (m *MockBroadcaster) WaitForCalls(t *testing.T, name string, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.Calls(name) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %s to be called %d times, got %d", name, n, m.Calls(name))
}

func (m *MockBroadcaster) FetchProgramSchedules(ctx context.Context) (services.Result[[]models.Schedule], error) {
	m.record("FetchProgramSchedules")
	if m.SchedulesFn != nil {
		return m.SchedulesFn(ctx)
	}
	return services.Result[[]models.Schedule]{}, nil
}

func (m *MockBroadcaster) FetchProgram(ctx context.Context, id string) (services.Result[models.ProgramDetail], error) {
	m.record("FetchProgram")
	if m.ProgramFn != nil {
		return m.ProgramFn(ctx, id)
	}
	return services.Result[models.ProgramDetail]{}, nil
}

func (m *MockBroadcaster) FetchProgramPassword(ctx context.Context, id string) (services.Result[string], error) {
	m.record("FetchProgramPassword")
	if m.PasswordFn != nil {
		return m.PasswordFn(ctx, id)
	}
	return services.Result[string]{}, services.ErrNotPasswordProtected
}

func (m *MockBroadcaster) StartProgram(ctx context.Context, id string) (services.Result[models.Segment], error) {
	m.record("StartProgram")
	if m.StartFn != nil {
		return m.StartFn(ctx, id)
	}
	return services.Result[models.Segment]{}, nil
}

func (m *MockBroadcaster) EndProgram(ctx context.Context, id string) (services.Result[models.Segment], error) {
	m.record("EndProgram")
	if m.EndFn != nil {
		return m.EndFn(ctx, id)
	}
	return services.Result[models.Segment]{}, nil
}

func (m *MockBroadcaster) ExtendProgram(ctx context.Context, id string) (services.Result[models.Segment], error) {
	m.record("ExtendProgram")
	if m.ExtendFn != nil {
		return m.ExtendFn(ctx, id)
	}
	return services.Result[models.Segment]{}, nil
}

func (m *MockBroadcaster) FetchStatistics(ctx context.Context, id string) (services.Result[models.Statistics], error) {
	m.record("FetchStatistics")
	if m.StatsFn != nil {
		return m.StatsFn(ctx, id)
	}
	return services.Result[models.Statistics]{}, nil
}

func (m *MockBroadcaster) FetchNicoadStatistics(ctx context.Context, id string) (services.Result[models.NicoadStatistics], error) {
	m.record("FetchNicoadStatistics")
	if m.NicoadFn != nil {
		return m.NicoadFn(ctx, id)
	}
	return services.Result[models.NicoadStatistics]{}, nil
}

// MockFlow is a test double for [services.ProgramFlow].
type MockFlow struct {
	Outcome services.FlowOutcome
	Err     error
	Edited  []string
	Created int
}

func (m *MockFlow) CreateProgram(ctx context.Context) (services.FlowOutcome, error) {
	m.Created++
	return m.Outcome, m.Err
}

func (m *MockFlow) EditProgram(ctx context.Context, programID string) (services.FlowOutcome, error) {
	m.Edited = append(m.Edited, programID)
	return m.Outcome, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
