package models

import (
	"fmt"
	"time"
)

// Action names a lifecycle operation recorded in program history.
type Action string

const (
	ActionStart         Action = "start"
	ActionEnd           Action = "end"
	ActionExtend        Action = "extend"
	ActionAutoExtend    Action = "auto_extend"
	ActionEndReconciled Action = "end_reconciled"
)

// HistoryEntry records the outcome of one lifecycle operation.
type HistoryEntry struct {
	id        string
	ProgramID string
	Action    Action
	Status    Status
	EndTime   int64
	Error     string
	createdAt time.Time
}

// NewHistoryEntry creates an entry stamped with the given time.
func NewHistoryEntry(programID string, action Action, at time.Time) *HistoryEntry {
	return &HistoryEntry{ProgramID: programID, Action: action, createdAt: at}
}

func (h *HistoryEntry) ID() string           { return h.id }
func (h *HistoryEntry) SetID(id string)      { h.id = id }
func (h *HistoryEntry) CreatedAt() time.Time { return h.createdAt }

// Succeeded reports whether the operation completed without error.
func (h *HistoryEntry) Succeeded() bool {
	return h.Error == ""
}

// Validate checks required fields.
func (h *HistoryEntry) Validate() error {
	if h.ProgramID == "" {
		return fmt.Errorf("program id is required")
	}
	switch h.Action {
	case ActionStart, ActionEnd, ActionExtend, ActionAutoExtend, ActionEndReconciled:
	default:
		return fmt.Errorf("unknown action %q", h.Action)
	}
	if h.createdAt.IsZero() {
		return fmt.Errorf("created at is required")
	}
	return nil
}
