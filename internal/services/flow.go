package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/onair/internal/shared"
)

const (
	DefaultCreateURL = "https://live.nicovideo.jp/create"
	DefaultEditURL   = "https://live.nicovideo.jp/edit"
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// BrowserFlow implements [ProgramFlow] by opening the broadcast site and asking the user to confirm completion.
type BrowserFlow struct {
	open      shared.BrowserOpener
	confirm   ConfirmFunc
	createURL string
	editURL   string
}

// NewBrowserFlow creates a flow. A nil opener uses [shared.OpenBrowser].
func NewBrowserFlow(open shared.BrowserOpener, confirm ConfirmFunc) *BrowserFlow {
	if open == nil {
		open = shared.OpenBrowser
	}
	return &BrowserFlow{open: open, confirm: confirm, createURL: DefaultCreateURL, editURL: DefaultEditURL}
}

// CreateProgram opens the create page and reports [FlowCreated] when the user confirms.
func (f *BrowserFlow) CreateProgram(ctx context.Context) (FlowOutcome, error) {
	return f.run(ctx, f.createURL, "Did you create a program in the browser?", FlowCreated)
}

// EditProgram opens the edit page for programID and reports [FlowEdited] when the user confirms.
func (f *BrowserFlow) EditProgram(ctx context.Context, programID string) (FlowOutcome, error) {
	if programID == "" {
		return FlowCancelled, fmt.Errorf("%w: program id", shared.ErrMissingArgument)
	}
	target := strings.TrimRight(f.editURL, "/") + "/" + url.PathEscape(programID)
	return f.run(ctx, target, "Did you save your changes in the browser?", FlowEdited)
}

func (f *BrowserFlow) run(ctx context.Context, target, prompt string, done FlowOutcome) (FlowOutcome, error) {
	if err := f.open(target); err != nil {
		return FlowCancelled, err
	}
	if f.confirm == nil {
		return done, nil
	}

	ok, err := f.confirm(ctx, prompt)
	if err != nil {
		return FlowCancelled, err
	}
	if !ok {
		return FlowCancelled, nil
	}
	return done, nil
}
