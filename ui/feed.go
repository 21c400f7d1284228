package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/speakpad/speakpad/internal/playback"
)

// Feed carries sequencer state changes into the TUI. Only the latest state
// is kept, so a slow UI never blocks the sequencer.
type Feed struct {
	ch chan playback.State
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan playback.State, 1)}
}

// Publish replaces any unread state with st. It never blocks; pass it to
// playback.WithOnChange.
func (f *Feed) Publish(st playback.State) {
	for {
		select {
		case f.ch <- st:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

type stateMsg playback.State

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-f.ch)
	}
}
