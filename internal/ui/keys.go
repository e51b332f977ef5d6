package ui

import "github.com/charmbracelet/bubbles/key"

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	Toggle   key.Binding
	Brighter key.Binding
	Dimmer   key.Binding
	Preset   key.Binding
	Gradient key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Brighter, k.Dimmer, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Brighter, k.Dimmer},
		{k.Preset, k.Gradient},
		{k.Help, k.Quit},
	}
}

func newMonitorKeyMap() monitorKeyMap {
	return monitorKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("t", " "),
			key.WithHelp("t/space", "on/off"),
		),
		Brighter: key.NewBinding(
			key.WithKeys("+", "=", "up"),
			key.WithHelp("+/↑", "brighter"),
		),
		Dimmer: key.NewBinding(
			key.WithKeys("-", "down"),
			key.WithHelp("-/↓", "dimmer"),
		),
		Preset: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8"),
			key.WithHelp("1-8", "colour presets"),
		),
		Gradient: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "rainbow gradient"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
