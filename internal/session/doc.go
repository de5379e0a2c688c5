// Package session tracks the one broadcast program the user is running and keeps it in sync
// with the broadcast API.
//
// # State
//
// [Store] holds the single [models.ProgramState]. Every change goes through [Store.Set] or
// [Store.Replace]; after each commit the registered reactors see the previous and next state.
//
// # Timers
//
// [Controller] registers one reactor that feeds each commit to three pure functions:
//   - [StatusTimerAction] : refresh the program when its status is projected to change
//   - [StatisticsAction] : poll audience and ad counters while on air
//   - [AutoExtensionAction] : extend five minutes before the end when enabled
//
// Each returns a [TimerAction]; the controller owns one handle per timer and re-arming always
// clears the old handle first. All scheduling uses [CorrectedNow], the local clock shifted by
// the offset measured from the server's Date header.
//
// # Operations
//
// Fetch, refresh, create, edit, start, end and extend call the [services.Broadcaster] and write
// the store. Start, end, extend and fetch raise a guard flag for the duration of the call and
// always lower it. The flags do not lock anything: callers check them before invoking.
//
// Failures are returned as [*Error] with kind http_error (reason is the status code) or logic.
// Statistics failures are only logged. Failures of timer-triggered operations go to [Controller.Errors].
package session
