// Package repositories implements SQLite persistence for preferences, OAuth tokens and program history.
//
// Key Implementations:
//   - [PrefsRepository] : the single preferences row, with change subscriptions
//   - [TokenRepository] : OAuth tokens keyed by provider
//   - [HistoryRepository] : append-only lifecycle history, also usable as a session observer
//
// History entries carry sequence numbers for stable ordering independent of UUIDs and timestamps.
// [NextSequence] bumps the counter row in the table's companion _sequence table.
package repositories
