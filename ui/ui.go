// Package ui provides the terminal interface of speakpad: a text editor,
// a voice picker and playback controls.
package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/speakpad/speakpad/internal/playback"
	"github.com/speakpad/speakpad/internal/speech"
)

// Reader is the playback backend driven by the UI.
type Reader interface {
	Generate(ctx context.Context, text string) error
	Toggle() error
	SetVoice(v speech.Voice) error
	Voice() speech.Voice
	CanGenerate(text string) bool
	State() playback.State
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(fuchsia).
			Padding(0, 1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(green).
			Padding(0, 2).
			MarginRight(1)

	dimButtonStyle = buttonStyle.
			Foreground(gray).
			Background(lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#303030"})

	voiceStyle = lipgloss.NewStyle().Foreground(green)
)

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, r Reader, feed *Feed) *tea.Program {
	log.Debug("Starting speakpad", "path", cfg.Path, "watch", cfg.Watch)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, r, feed), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type generateDoneMsg struct{ err error }

type focus int

const (
	focusEditor focus = iota
	focusVoice
)

type model struct {
	cfg    Config
	reader Reader
	feed   *Feed

	width  int
	height int
	focus  focus

	editor  textarea.Model
	picker  voicePicker
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	state      playback.State
	generating bool
	banner     string

	watcher *fsnotify.Watcher
}

func newModel(cfg Config, r Reader, feed *Feed) model {
	editor := textarea.New()
	editor.Placeholder = "Type or paste the text to read aloud…"
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetHeight(max(cfg.EditorRows, 3))
	editor.SetValue(cfg.Text)
	editor.Focus()

	m := model{
		cfg:     cfg,
		reader:  r,
		feed:    feed,
		editor:  editor,
		picker:  newVoicePicker(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
		state:   r.State(),
	}

	if cfg.Watch && cfg.Path != "" {
		m.watcher = newWatcher()
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.feed != nil {
		cmds = append(cmds, m.feed.wait())
	}
	if m.watcher != nil {
		cmds = append(cmds, watchFile(m.watcher, m.cfg.Path, m.cfg.Markdown))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(msg.Width)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case generateDoneMsg:
		m.generating = false
		if msg.err != nil && !errors.Is(msg.err, playback.ErrSuperseded) {
			m.banner = bannerText(msg.err)
		}
		m.state = m.reader.State()
		return m, nil

	case stateMsg:
		m.state = playback.State(msg)
		if m.state.Err != nil {
			m.banner = bannerText(m.state.Err)
		}
		return m, m.feed.wait()

	case reloadMsg:
		log.Debug("Reloading text", "path", m.cfg.Path)
		m.editor.SetValue(msg.text)
		return m, watchFile(m.watcher, m.cfg.Path, m.cfg.Markdown)

	case errMsg:
		m.banner = bannerText(msg.err)
		if m.watcher != nil {
			return m, watchFile(m.watcher, m.cfg.Path, m.cfg.Markdown)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Generate):
		return m.generate()

	case key.Matches(msg, m.keys.PlayPause):
		if !m.canPlay() {
			return m, nil
		}
		if err := m.reader.Toggle(); err != nil && !errors.Is(err, playback.ErrNothingToPlay) {
			m.banner = bannerText(err)
		}
		m.state = m.reader.State()
		return m, nil

	case key.Matches(msg, m.keys.Voice):
		if m.focus == focusVoice {
			m.focus = focusEditor
			m.editor.Focus()
		} else {
			m.focus = focusVoice
			m.picker.reset(m.reader.Voice())
			m.editor.Blur()
		}
		return m, nil
	}

	if m.focus == focusVoice {
		if msg.String() == "esc" {
			m.focus = focusEditor
			m.editor.Focus()
			return m, nil
		}
		var v speech.Voice
		var chosen bool
		m.picker, v, chosen = m.picker.Update(msg)
		if chosen {
			if err := m.reader.SetVoice(v); err != nil {
				m.banner = bannerText(err)
			}
			m.state = m.reader.State()
			m.focus = focusEditor
			m.editor.Focus()
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Paste) {
		text, err := clipboard.ReadAll()
		if err != nil {
			log.Debug("clipboard unavailable", "error", err)
			return m, nil
		}
		m.editor.InsertString(text)
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m model) generate() (tea.Model, tea.Cmd) {
	text := m.editor.Value()
	if m.generating || !m.reader.CanGenerate(text) {
		return m, nil
	}

	m.generating = true
	m.banner = ""
	r := m.reader
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return generateDoneMsg{err: r.Generate(context.Background(), text)}
	})
}

// canPlay reports whether the playback controls are enabled.
func (m model) canPlay() bool {
	return m.state.Tracks > 0 && !m.generating
}

func (m model) close() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Close(); err != nil {
		log.Debug("fsnotify close failed", "error", err)
	}
}

func (m model) View() string {
	var b strings.Builder

	title := "speakpad"
	if m.cfg.Path != "" {
		title += " · " + filepath.Base(m.cfg.Path)
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(m.editor.View() + "\n\n")

	if m.focus == focusVoice {
		b.WriteString(m.picker.View() + "\n\n")
	} else {
		b.WriteString(voiceStyle.Render("Voice: "+m.reader.Voice().Label()) + "\n\n")
	}

	b.WriteString(m.controlsView() + "\n")

	if m.banner != "" {
		b.WriteString("\n" + bannerStyle.Width(max(m.width, 20)).Render(m.banner) + "\n")
	}

	b.WriteString("\n" + statusView(m.state, m.width))
	if m.cfg.ShowHelp {
		b.WriteString("\n" + m.help.View(m.keys))
	}
	return b.String()
}

func (m model) controlsView() string {
	var generate string
	switch {
	case m.generating:
		generate = dimButtonStyle.Render(m.spinner.View() + " Generating…")
	case m.reader.CanGenerate(m.editor.Value()):
		generate = buttonStyle.Render("Generate")
	default:
		generate = dimButtonStyle.Render("Generate")
	}

	label := "▶ Play"
	if m.state.Status == playback.StatusPlaying || m.state.Status == playback.StatusBuffering {
		label = "⏸ Pause"
	}
	play := dimButtonStyle.Render(label)
	if m.canPlay() {
		play = buttonStyle.Render(label)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, generate, play)
}
