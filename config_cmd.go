package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# voice to read with: alloy, echo, fable, onyx, nova or shimmer
voice: "alloy"
# speech model
model: "tts-1"
# speaking speed (0.25 to 4.0)
speed: 1.0
# maximum characters per request (1 to 4096)
maxChunk: 2000
# chunks fetched at once in the background (1 to 16)
concurrency: 4
# per-request timeout
timeout: "90s"
# request rate limit; 0 disables it
requestsPerMinute: 50
# directory for synthesized audio (default: the user cache dir)
# cacheDir: "~/.cache/speakpad"
# OpenAI compatible endpoint
# baseURL: "https://api.openai.com/v1"
# read only the prose of Markdown files
markdown: false
# mouse support (TUI-mode only)
mouse: false
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the speakpad config file",
	Long: paragraph(fmt.Sprintf("\n%s the file that holds the default voice, model, speed and cache settings. "+
		"It is opened with $EDITOR and created with commented defaults when missing. "+
		"Any setting can be overridden for one run with a flag or a SPEAKPAD_ variable such as SPEAKPAD_VOICE. "+
		"Set SPEAKPAD_CONFIG_HOME to keep the file somewhere else.",
		keyword("Edit"))),
	Example: paragraph("speakpad config\nSPEAKPAD_CONFIG_HOME=~/dotfiles/speakpad speakpad config\nspeakpad config --config ./speakpad.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("speakpad", configFile)
		if err != nil {
			return fmt.Errorf("unable to open editor: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run editor: %w", err)
		}

		fmt.Println("Config file:", configFile)
		return nil
	},
}

// ensureConfigFile resolves configFile and writes the defaults to it if it
// does not exist yet.
func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.ConfigFileUsed()
	}
	if configFile == "" {
		return errors.New("no config file location")
	}
	return writeDefaultConfig(configFile)
}

// writeDefaultConfig creates a YAML file at path holding defaultConfig. An
// existing file is left untouched.
func writeDefaultConfig(path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("%q is not a supported config type: use .yaml or .yml", ext)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to create config file: %w", err)
	}
	if _, err := f.WriteString(defaultConfig); err != nil {
		_ = f.Close()
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return f.Close()
}
