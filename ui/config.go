package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Initial text, and the file it came from, if any
	Text string
	Path string

	// Reload the text when the file changes on disk
	Watch bool

	// Treat the file as Markdown and read only its prose
	Markdown bool

	EnableMouse bool

	// For debugging the UI
	ShowHelp   bool `env:"SPEAKPAD_SHOW_HELP"   envDefault:"true"`
	EditorRows int  `env:"SPEAKPAD_EDITOR_ROWS" envDefault:"10"`
}
