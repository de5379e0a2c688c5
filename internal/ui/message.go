package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/onair/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgOperationDone
	MsgControllerError
	MsgHistoryLoaded
)

// operation names a user-triggered controller call.
type operation string

const (
	opFetch   operation = "fetch"
	opRefresh operation = "refresh"
	opStart   operation = "start"
	opEnd     operation = "end"
	opExtend  operation = "extend"
	opAuto    operation = "auto-extension"
	opPanel   operation = "panel"
)

type operationResult struct {
	op  operation
	err error
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}

// operationDoneMsg is the constructor for [MsgOperationDone]
func operationDoneMsg(op operation, err error) Msg {
	return Msg{kind: MsgOperationDone, data: operationResult{op: op, err: err}}
}

// controllerErrorMsg is the constructor for [MsgControllerError]
func controllerErrorMsg(err error) Msg {
	return Msg{kind: MsgControllerError, data: err}
}

// historyLoadedMsg is the constructor for [MsgHistoryLoaded]
func historyLoadedMsg(entries []*models.HistoryEntry, err error) Msg {
	return Msg{
		kind: MsgHistoryLoaded,
		data: struct {
			entries []*models.HistoryEntry
			err     error
		}{entries, err},
	}
}
