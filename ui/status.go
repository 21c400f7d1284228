package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/speakpad/speakpad/internal/playback"
)

const ellipsis = "…"

var (
	green   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	fuchsia = lipgloss.Color("#EE6FF8")
	gray    = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	red     = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	statusBarFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	statusBarStyle = lipgloss.NewStyle().
			Foreground(statusBarFg).
			Background(statusBarBg).
			Render

	statusBarStateStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B6FFE4")).
				Background(green).
				Padding(0, 1).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(red).
				Padding(0, 1).
				Render

	bannerStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)
)

// bannerText returns the user-facing error message for err.
func bannerText(err error) string {
	if err == nil {
		return ""
	}

	var synthErr *playback.SynthesisError
	var playErr *playback.PlaybackError
	switch {
	case errors.As(err, &synthErr):
		return "Error fetching and saving speech: " + synthErr.Err.Error()
	case errors.As(err, &playErr):
		return "Error playing sound: " + playErr.Err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func stateIcon(st playback.State) string {
	switch st.Status {
	case playback.StatusPlaying:
		return "▶"
	case playback.StatusPaused:
		return "⏸"
	case playback.StatusBuffering:
		return "…"
	case playback.StatusError:
		return "!"
	default:
		return "■"
	}
}

// statusView renders the status bar at the given width.
func statusView(st playback.State, width int) string {
	label := fmt.Sprintf("%s %s", stateIcon(st), st.Status)
	if st.Complete {
		label = fmt.Sprintf("%s complete", stateIcon(st))
	}
	if st.Status == playback.StatusError {
		label = statusBarErrorStyle(label)
	} else {
		label = statusBarStateStyle(label)
	}

	var parts []string
	if st.Tracks > 0 {
		parts = append(parts, fmt.Sprintf("Track %d/%d", st.Index+1, st.Tracks))
	}
	if st.Loaded {
		parts = append(parts, formatDuration(st.Position)+" / "+formatDuration(st.Duration))
	}
	if st.Tracks > 0 {
		parts = append(parts, "Elapsed "+formatDuration(st.Elapsed))
	}
	if n := st.Pending(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d loading", n))
	}
	if st.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", st.Failed))
	}
	parts = append(parts, "Voice: "+st.Voice.Label())

	info := " " + strings.Join(parts, " · ") + " "
	if width > 0 {
		avail := max(width-ansi.PrintableRuneWidth(label), 0)
		info = truncate.StringWithTail(info, uint(avail), ellipsis) //nolint:gosec
		if pad := avail - runewidth.StringWidth(info); pad > 0 {
			info += strings.Repeat(" ", pad)
		}
	}

	return label + statusBarStyle(info)
}

// formatDuration renders d as m:ss.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
