// Package models defines the domain types shared by the broadcast controller.
//
// The package contains two categories of types:
//
// 1. Program data: values describing the selected broadcast and what the API reports about it
//   - [ProgramState] : the single record held by the session store
//   - [Status] : lifecycle phase (reserved, test, onAir, end)
//   - [Schedule] : one entry of the user's schedule list, input to program selection
//   - [ProgramDetail], [Segment], [Statistics], [NicoadStatistics] : API payloads
//   - [Prefs] : persisted user preferences
//
// 2. Persistent Entities: database-backed records
//   - [HistoryEntry] : outcome of a start, end or extend operation
//
// Persistent entities implement the [Model] interface; [Repository] defines append-only access.
package models
