package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/speakpad/speakpad/internal/playback"
	"github.com/speakpad/speakpad/internal/speech"
)

// withSettings overrides viper keys for the duration of the test.
func withSettings(t *testing.T, settings map[string]any) {
	t.Helper()
	for k, v := range settings {
		k := k
		old := viper.Get(k)
		viper.Set(k, v)
		t.Cleanup(func() { viper.Set(k, old) })
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	withSettings(t, map[string]any{
		"voice":       "Nova",
		"speed":       1.5,
		"maxChunk":    500,
		"concurrency": 2,
		"cacheDir":    dir,
	})

	o, err := loadOptions()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if o.voice != speech.VoiceNova {
		t.Errorf("Expected voice nova, got %q", o.voice)
	}
	if o.speed != 1.5 || o.maxChunk != 500 || o.concurrency != 2 {
		t.Errorf("Expected speed 1.5, max chunk 500, concurrency 2, got %v, %d, %d", o.speed, o.maxChunk, o.concurrency)
	}
	if o.cacheDir != filepath.Clean(dir) {
		t.Errorf("Expected cache dir %q, got %q", dir, o.cacheDir)
	}
	if o.timeout != 90*time.Second {
		t.Errorf("Expected default timeout 90s, got %s", o.timeout)
	}
}

func TestLoadOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{"unknown voice", "voice", "robot", "unknown voice"},
		{"empty model", "model", "", "model must not be empty"},
		{"speed too low", "speed", 0.1, "speed must be between"},
		{"speed too high", "speed", 4.5, "speed must be between"},
		{"chunk too small", "maxChunk", 0, "max chunk must be between"},
		{"chunk too large", "maxChunk", 5000, "max chunk must be between"},
		{"no concurrency", "concurrency", 0, "concurrency must be between"},
		{"too much concurrency", "concurrency", 17, "concurrency must be between"},
		{"negative timeout", "timeout", -time.Second, "timeout must not be negative"},
		{"negative rate", "requestsPerMinute", -1, "requests per minute must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSettings(t, map[string]any{"cacheDir": t.TempDir(), tt.key: tt.value})

			_, err := loadOptions()
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err)
			}
		})
	}
}

func TestLoadOptionsExpandsHome(t *testing.T) {
	withSettings(t, map[string]any{"cacheDir": "~/speakpad-cache"})

	o, err := loadOptions()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.HasPrefix(o.cacheDir, "~") {
		t.Errorf("Expected ~ to be expanded, got %q", o.cacheDir)
	}
}

func TestSourceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# Title\n\nSome *prose* here."), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := sourceFromFile(path, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(src.text, "*prose*") {
		t.Errorf("Expected raw text, got %q", src.text)
	}
	if !filepath.IsAbs(src.path) {
		t.Errorf("Expected absolute path, got %q", src.path)
	}

	src, err = sourceFromFile(path, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.Contains(src.text, "*") || strings.Contains(src.text, "#") {
		t.Errorf("Expected Markdown syntax to be removed, got %q", src.text)
	}

	if _, err := sourceFromFile(dir, false); err == nil {
		t.Error("Expected an error for a directory")
	}
	if _, err := sourceFromFile(filepath.Join(dir, "missing.txt"), false); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestPrintChunks(t *testing.T) {
	var buf bytes.Buffer
	if err := printChunks(&buf, "First one. Second one.", 15); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{"#1", "#2", "First one.", "Second one.", "10 chars"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}
}

func TestProgressLine(t *testing.T) {
	tests := []struct {
		name string
		st   playback.State
		want string
	}{
		{
			"playing",
			playback.State{Status: playback.StatusPlaying, Index: 0, Tracks: 3, Ready: 1, Loaded: true, Position: 2 * time.Second, Duration: 5 * time.Second},
			"playing · track 1/3 · 2s / 5s · 2 loading",
		},
		{
			"second track",
			playback.State{Status: playback.StatusPlaying, Index: 1, Tracks: 2, Ready: 2, Loaded: true, Position: 3 * time.Second, Duration: 4 * time.Second, Elapsed: 8 * time.Second},
			"playing · track 2/2 · 3s / 4s · elapsed 8s",
		},
		{
			"complete",
			playback.State{Status: playback.StatusStopped, Complete: true, Tracks: 3, Ready: 2, Failed: 1},
			"Done: 3 tracks read, 1 skipped",
		},
		{
			"error",
			playback.State{Status: playback.StatusError, Err: errors.New("boom")},
			"Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progressLine(tt.st); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

type fakeSpeaker struct {
	p      *progress
	err    error
	states []playback.State
}

func (f *fakeSpeaker) Generate(_ context.Context, _ string) error {
	if f.err != nil {
		return f.err
	}
	for _, st := range f.states {
		f.p.update(st)
	}
	return nil
}

func TestSay(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, false)
	r := &fakeSpeaker{p: p, states: []playback.State{
		{Status: playback.StatusPlaying, Index: 0, Tracks: 2},
		{Status: playback.StatusPlaying, Index: 0, Tracks: 2, Loaded: true, Position: time.Second},
		{Status: playback.StatusPlaying, Index: 1, Tracks: 2},
		{Status: playback.StatusStopped, Index: 1, Tracks: 2, Ready: 2, Complete: true},
	}}

	if err := say(context.Background(), r, "Hello.", p); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected one line per track plus the summary, got %q", lines)
	}
	if lines[2] != "Done: 2 tracks read, 0 skipped" {
		t.Errorf("Expected summary line, got %q", lines[2])
	}
}

func TestSayErrors(t *testing.T) {
	synthErr := &playback.SynthesisError{Index: 0, Err: errors.New("quota")}
	p := newProgress(&bytes.Buffer{}, false)
	if err := say(context.Background(), &fakeSpeaker{p: p, err: synthErr}, "Hello.", p); !errors.Is(err, synthErr) {
		t.Errorf("Expected the synthesis error, got %v", err)
	}

	playErr := &playback.PlaybackError{Index: 1, Path: "speech_1.mp3", Err: errors.New("device lost")}
	p = newProgress(&bytes.Buffer{}, false)
	r := &fakeSpeaker{p: p, states: []playback.State{
		{Status: playback.StatusError, Index: 1, Tracks: 2, Err: playErr},
	}}
	var target *playback.PlaybackError
	if err := say(context.Background(), r, "Hello.", p); !errors.As(err, &target) {
		t.Errorf("Expected a playback error, got %v", err)
	}
}

func TestSayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newProgress(&bytes.Buffer{}, true)
	if err := say(ctx, &fakeSpeaker{p: p}, "Hello.", p); err != nil {
		t.Errorf("Expected no error on cancellation, got %v", err)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "speakpad.yml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("Expected the default config to parse, got %v", err)
	}
	if got := v.GetString("voice"); got != string(speech.DefaultVoice) {
		t.Errorf("Expected voice %q, got %q", speech.DefaultVoice, got)
	}
	if got := v.GetDuration("timeout"); got != 90*time.Second {
		t.Errorf("Expected timeout 90s, got %s", got)
	}

	if err := os.WriteFile(path, []byte("voice: nova\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("Expected no error for an existing file, got %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "voice: nova\n" {
		t.Errorf("Expected the existing file to be kept, got %q", b)
	}

	if err := writeDefaultConfig(filepath.Join(dir, "speakpad.toml")); err == nil {
		t.Error("Expected an error for a non-YAML file")
	}
}
