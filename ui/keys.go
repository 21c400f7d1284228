package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Generate  key.Binding
	PlayPause key.Binding
	Voice     key.Binding
	Paste     key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Generate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "generate"),
		),
		PlayPause: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "play/pause"),
		),
		Voice: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "voice"),
		),
		Paste: key.NewBinding(
			key.WithKeys("ctrl+v"),
			key.WithHelp("ctrl+v", "paste"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Generate, k.PlayPause, k.Voice, k.Paste, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
