package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/speakpad/speakpad/internal/audio"
	"github.com/speakpad/speakpad/internal/cache"
	"github.com/speakpad/speakpad/internal/playback"
	"github.com/speakpad/speakpad/internal/speech"
)

// Sessions older than this were left behind by runs that did not exit
// cleanly.
const staleSessionAge = 24 * time.Hour

// newReader wires the speech client, caches, file store and audio engine
// into a Sequencer configured from opts. The returned func releases all of
// them.
func newReader(extra ...playback.Option) (*playback.Sequencer, func(), error) {
	logger := log.Default()

	cfg := speech.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	cfg.Model = opts.model
	cfg.Speed = opts.speed
	cfg.Timeout = opts.timeout
	cfg.RequestsPerMinute = opts.rpm
	cfg.BaseURL = opts.baseURL
	cfg.Logger = logger

	client, err := speech.NewOpenAI(cfg)
	if err != nil {
		return nil, nil, err
	}

	disk, err := cache.NewDiskCache(cache.DefaultConfig(filepath.Join(opts.cacheDir, "audio")))
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open audio cache: %w", err)
	}
	synth := speech.NewCached(client, disk, opts.model, opts.speed, logger)

	sessions := filepath.Join(opts.cacheDir, "sessions")
	if n, err := cache.RemoveStaleSessions(sessions, staleSessionAge); err != nil {
		logger.Warn("Could not remove stale sessions", "error", err)
	} else if n > 0 {
		logger.Debug("Removed stale sessions", "count", n)
	}

	store, err := cache.NewFileStore(sessions)
	if err != nil {
		_ = disk.Close()
		return nil, nil, fmt.Errorf("unable to create session directory: %w", err)
	}

	engine, err := audio.NewOtoEngine(audio.DefaultConfig())
	if err != nil {
		_ = store.Cleanup()
		_ = disk.Close()
		return nil, nil, err
	}

	seqOpts := []playback.Option{
		playback.WithMaxChunkLength(opts.maxChunk),
		playback.WithConcurrency(opts.concurrency),
		playback.WithVoice(opts.voice),
		playback.WithLogger(logger),
	}
	seq := playback.New(synth, store, engine, append(seqOpts, extra...)...)

	closer := func() {
		_ = seq.Close()
		if err := store.Cleanup(); err != nil {
			logger.Warn("Could not remove session directory", "dir", store.Dir(), "error", err)
		}
		st := disk.Stats()
		logger.Debug("Audio cache",
			"hits", st.Hits,
			"misses", st.Misses,
			"hitRate", fmt.Sprintf("%.0f%%", st.HitRate*100),
			"items", st.ItemCount,
			"size", humanize.Bytes(uint64(st.Size)), //nolint:gosec
			"evictions", st.Evictions)
		if err := disk.Close(); err != nil {
			logger.Warn("Could not close audio cache", "error", err)
		}
	}
	return seq, closer, nil
}
