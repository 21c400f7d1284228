// Package main provides the entry point for the speakpad CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speakpad/speakpad/internal/chunk"
	"github.com/speakpad/speakpad/internal/playback"
	"github.com/speakpad/speakpad/internal/speech"
	"github.com/speakpad/speakpad/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	opts       options

	rootCmd = &cobra.Command{
		Use:   "speakpad [FILE|-]",
		Short: "Read text aloud in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nType, paste or open some text and %s.", keyword("listen to it")),
		),
		Example: paragraph("speakpad\nspeakpad notes.md --markdown --watch\npbpaste | speakpad --voice nova"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
		RunE: execute,
	}
)

func execute(_ *cobra.Command, args []string) error {
	src, err := readSource(args, opts.paste, opts.markdown)
	if err != nil {
		return err
	}
	return runTUI(src)
}

func runTUI(src *source) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Text = src.text
	cfg.Path = src.path
	cfg.Markdown = opts.markdown
	cfg.Watch = opts.watch && src.path != ""
	cfg.EnableMouse = opts.mouse

	feed := ui.NewFeed()
	r, closer, err := newReader(playback.WithOnChange(feed.Publish))
	if err != nil {
		return err
	}
	defer closer()

	if _, err := ui.NewProgram(cfg, r, feed).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not load .env file", "error", err)
	}

	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.String("voice", string(speech.DefaultVoice), "voice to read with")
	flags.String("model", speech.DefaultModel, "speech model")
	flags.Float64("speed", 1.0, "speaking speed (0.25 to 4.0)")
	flags.Int("max-chunk", chunk.DefaultMaxLength, "maximum characters per request")
	flags.Int("concurrency", playback.DefaultConcurrency, "chunks fetched at once")
	flags.String("cache-dir", "", "directory for synthesized audio")
	flags.Bool("markdown", false, "read only the prose of a Markdown file")
	flags.Bool("debug", false, "log debug output")

	rootCmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the text when FILE changes")
	rootCmd.Flags().BoolVar(&opts.paste, "paste", false, "start with the clipboard contents")
	rootCmd.Flags().BoolVarP(&opts.mouse, "mouse", "m", false, "enable mouse support")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("speed", flags.Lookup("speed"))
	_ = viper.BindPFlag("maxChunk", flags.Lookup("max-chunk"))
	_ = viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
	_ = viper.BindPFlag("cacheDir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("markdown", flags.Lookup("markdown"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("voice", string(speech.DefaultVoice))
	viper.SetDefault("model", speech.DefaultModel)
	viper.SetDefault("speed", 1.0)
	viper.SetDefault("maxChunk", chunk.DefaultMaxLength)
	viper.SetDefault("concurrency", playback.DefaultConcurrency)
	viper.SetDefault("timeout", 90*time.Second)
	viper.SetDefault("requestsPerMinute", 50)
	viper.SetDefault("baseURL", "")

	rootCmd.AddCommand(sayCmd, splitCmd, voicesCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "speakpad")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "speakpad")}, dirs...)
	}

	if c := os.Getenv("SPEAKPAD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("speakpad")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("speakpad")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "speakpad.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
