// package services defines the Broadcaster interface for the live broadcast API and implements it for Nicolive
package services

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/onair/internal/models"
)

// Result carries a decoded response value with the server's Date header, when present.
type Result[T any] struct {
	Value      T
	ServerDate time.Time
}

// HasServerDate reports whether the response carried a usable Date header.
func (r Result[T]) HasServerDate() bool {
	return !r.ServerDate.IsZero()
}

// Broadcaster defines the broadcast API operations used by the program session.
//
// Non-2xx responses are returned as [*APIError]; transport failures wrap [shared.ErrAPIRequest].
type Broadcaster interface {
	// FetchProgramSchedules lists the authenticated user's program schedules.
	FetchProgramSchedules(ctx context.Context) (Result[[]models.Schedule], error)

	// FetchProgram retrieves the full description of a program.
	FetchProgram(ctx context.Context, programID string) (Result[models.ProgramDetail], error)

	// FetchProgramPassword retrieves a program's password.
	// Returns [ErrNotPasswordProtected] when the program has none.
	FetchProgramPassword(ctx context.Context, programID string) (Result[string], error)

	// StartProgram moves a program on air and returns its new start and end times.
	StartProgram(ctx context.Context, programID string) (Result[models.Segment], error)

	// EndProgram ends a program and returns its new end time.
	EndProgram(ctx context.Context, programID string) (Result[models.Segment], error)

	// ExtendProgram extends a program by 30 minutes and returns its new end time.
	ExtendProgram(ctx context.Context, programID string) (Result[models.Segment], error)

	// FetchStatistics retrieves viewer and comment counts.
	FetchStatistics(ctx context.Context, programID string) (Result[models.Statistics], error)

	// FetchNicoadStatistics retrieves ad and gift point totals.
	FetchNicoadStatistics(ctx context.Context, programID string) (Result[models.NicoadStatistics], error)
}

// FlowOutcome is the result of an interactive create or edit flow.
type FlowOutcome string

const (
	FlowCreated   FlowOutcome = "CREATED"
	FlowEdited    FlowOutcome = "EDITED"
	FlowCancelled FlowOutcome = "CANCELLED"
)

// ProgramFlow runs the interactive create and edit flows, which happen outside this process.
type ProgramFlow interface {
	// CreateProgram returns [FlowCreated] when the user created a program.
	CreateProgram(ctx context.Context) (FlowOutcome, error)

	// EditProgram returns [FlowEdited] when the user saved changes to programID.
	EditProgram(ctx context.Context, programID string) (FlowOutcome, error)
}

// ownGroupPrefix marks community (user-owned) social groups, as opposed to channels.
const ownGroupPrefix = "co"

// IsOwnChannel reports whether a schedule belongs to a community the user broadcasts to.
func IsOwnChannel(s models.Schedule) bool {
	return strings.HasPrefix(s.SocialGroupID, ownGroupPrefix)
}
