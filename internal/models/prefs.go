package models

// Prefs are the persisted user preferences mirrored into ProgramState.
type Prefs struct {
	AutoExtensionEnabled bool  `json:"autoExtensionEnabled"`
	PanelOpened          *bool `json:"panelOpened,omitempty"`
}
