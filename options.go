package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/speakpad/speakpad/internal/speech"
)

const (
	minSpeed       = 0.25
	maxSpeed       = 4.0
	maxConcurrency = 16
)

// options are the resolved settings shared by all commands.
type options struct {
	voice       speech.Voice
	model       string
	speed       float64
	maxChunk    int
	concurrency int
	cacheDir    string
	timeout     time.Duration
	rpm         int
	baseURL     string

	markdown bool
	watch    bool
	paste    bool
	mouse    bool
	debug    bool
}

func validateOptions() error {
	if configFile != "" && configFile != viper.ConfigFileUsed() {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	o, err := loadOptions()
	if err != nil {
		return err
	}
	o.watch, o.paste = opts.watch, opts.paste
	opts = o

	if opts.debug {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

// loadOptions reads and validates the settings held by viper.
func loadOptions() (options, error) {
	o := options{
		model:       viper.GetString("model"),
		speed:       viper.GetFloat64("speed"),
		maxChunk:    viper.GetInt("maxChunk"),
		concurrency: viper.GetInt("concurrency"),
		cacheDir:    viper.GetString("cacheDir"),
		timeout:     viper.GetDuration("timeout"),
		rpm:         viper.GetInt("requestsPerMinute"),
		baseURL:     viper.GetString("baseURL"),
		markdown:    viper.GetBool("markdown"),
		mouse:       viper.GetBool("mouse"),
		debug:       viper.GetBool("debug"),
	}

	v, err := speech.ParseVoice(viper.GetString("voice"))
	if err != nil {
		return o, err
	}
	o.voice = v

	if o.model == "" {
		return o, errors.New("model must not be empty")
	}
	if o.speed < minSpeed || o.speed > maxSpeed {
		return o, fmt.Errorf("speed must be between %.2f and %.1f, got %.2f", minSpeed, maxSpeed, o.speed)
	}
	if o.maxChunk < 1 || o.maxChunk > speech.MaxInputLength {
		return o, fmt.Errorf("max chunk must be between 1 and %d characters, got %d", speech.MaxInputLength, o.maxChunk)
	}
	if o.concurrency < 1 || o.concurrency > maxConcurrency {
		return o, fmt.Errorf("concurrency must be between 1 and %d, got %d", maxConcurrency, o.concurrency)
	}
	if o.timeout < 0 {
		return o, fmt.Errorf("timeout must not be negative, got %s", o.timeout)
	}
	if o.rpm < 0 {
		return o, fmt.Errorf("requests per minute must not be negative, got %d", o.rpm)
	}

	if o.cacheDir == "" {
		dir, err := gap.NewScope(gap.User, "speakpad").CacheDir()
		if err != nil {
			return o, fmt.Errorf("unable to find cache directory: %w", err)
		}
		o.cacheDir = dir
	}
	dir, err := homedir.Expand(o.cacheDir)
	if err != nil {
		return o, fmt.Errorf("unable to expand cache directory: %w", err)
	}
	o.cacheDir = filepath.Clean(dir)

	return o, nil
}
