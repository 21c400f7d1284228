package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/speakpad/speakpad/internal/speech"
)

var (
	pickerCursorStyle = lipgloss.NewStyle().Foreground(fuchsia).Bold(true)
	pickerItemStyle   = lipgloss.NewStyle().Foreground(gray)
	pickerQueryStyle  = lipgloss.NewStyle().Foreground(green)
)

// voicePicker selects one of the fixed set of voices. Typing filters the
// list with fuzzy matching.
type voicePicker struct {
	query   string
	matches []speech.Voice
	cursor  int
}

func newVoicePicker() voicePicker {
	p := voicePicker{}
	p.filter()
	return p
}

func (p *voicePicker) filter() {
	voices := speech.Voices()
	if p.query == "" {
		p.matches = voices
	} else {
		names := make([]string, len(voices))
		for i, v := range voices {
			names[i] = string(v)
		}
		p.matches = nil
		for _, m := range fuzzy.Find(strings.ToLower(p.query), names) {
			p.matches = append(p.matches, voices[m.Index])
		}
	}
	if p.cursor >= len(p.matches) {
		p.cursor = max(len(p.matches)-1, 0)
	}
}

// reset clears the filter and puts the cursor on current.
func (p *voicePicker) reset(current speech.Voice) {
	p.query = ""
	p.filter()
	p.cursor = 0
	for i, v := range p.matches {
		if v == current {
			p.cursor = i
		}
	}
}

// Update handles a key press. It returns the chosen voice and true when
// the user confirmed a selection.
func (p voicePicker) Update(msg tea.KeyMsg) (voicePicker, speech.Voice, bool) {
	switch msg.String() {
	case "up", "ctrl+k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "ctrl+j":
		if p.cursor < len(p.matches)-1 {
			p.cursor++
		}
	case "enter":
		if len(p.matches) > 0 {
			return p, p.matches[p.cursor], true
		}
	case "backspace":
		if p.query != "" {
			r := []rune(p.query)
			p.query = string(r[:len(r)-1])
			p.filter()
		}
	default:
		if msg.Type == tea.KeyRunes {
			p.query += string(msg.Runes)
			p.cursor = 0
			p.filter()
		}
	}
	return p, "", false
}

func (p voicePicker) View() string {
	var b strings.Builder

	b.WriteString(pickerQueryStyle.Render("Filter: "+p.query) + "\n")
	if len(p.matches) == 0 {
		b.WriteString(pickerItemStyle.Render("  no matching voice"))
		return b.String()
	}
	for i, v := range p.matches {
		if i == p.cursor {
			b.WriteString(pickerCursorStyle.Render("> " + v.Label()))
		} else {
			b.WriteString(pickerItemStyle.Render("  " + v.Label()))
		}
		if i < len(p.matches)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
