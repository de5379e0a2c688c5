package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	fetch   key.Binding
	refresh key.Binding
	start   key.Binding
	end     key.Binding
	extend  key.Binding
	auto    key.Binding
	panel   key.Binding
	yes     key.Binding
	no      key.Binding
	help    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		fetch:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fetch")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		end:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end")),
		extend:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "extend 30m")),
		auto:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto-extend")),
		panel:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "history")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.start, k.end, k.extend, k.auto, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.fetch, k.refresh, k.panel},
		{k.start, k.end, k.extend, k.auto},
		{k.help, k.quit},
	}
}
