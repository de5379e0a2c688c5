// Package ui implements the live dashboard for a selected program using bubbletea's Elm architecture.
//
// The [Model] reads the program state from the session store on every tick, so timer-driven changes
// (status transitions, statistics, automatic extensions) appear without explicit notification.
// Key presses call the lifecycle controller. The dashboard checks the matching guard flag first,
// because the controller itself does not prevent a second concurrent call.
//
// Failures of timer-driven operations arrive on the controller's error channel and are shown inline.
// Preference toggles (auto-extension, history panel) go through the preferences repository,
// whose subscription mirrors them back into the state.
package ui
