package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/speakpad/speakpad/internal/audio"
	"github.com/speakpad/speakpad/internal/chunk"
	"github.com/speakpad/speakpad/internal/speech"
)

// DefaultConcurrency bounds the background chunk fetches of a generation.
const DefaultConcurrency = 4

// Store persists chunk audio so the engine can load it from a path.
type Store interface {
	Save(generation int64, index int, data []byte) (string, error)
	Discard(generation int64) error
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithMaxChunkLength sets the chunk size limit in characters.
func WithMaxChunkLength(n int) Option {
	return func(s *Sequencer) { s.maxChunk = n }
}

// WithConcurrency sets how many background chunks are fetched at once.
func WithConcurrency(n int) Option {
	return func(s *Sequencer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Sequencer) { s.log = l }
}

// WithOnChange registers a callback invoked after every state change. It
// is called without any lock held and may call back into the Sequencer.
func WithOnChange(fn func(State)) Option {
	return func(s *Sequencer) { s.onChange = fn }
}

// WithVoice sets the initially selected voice.
func WithVoice(v speech.Voice) Option {
	return func(s *Sequencer) { s.voice = v }
}

// Sequencer generates speech for a text and plays its chunks in order.
// All state lives behind one mutex; engine callbacks and background
// fetches carry the generation token they belong to and are dropped once a
// newer generation has started.
type Sequencer struct {
	synth  speech.Synthesizer
	store  Store
	engine audio.Engine

	// Configuration
	maxChunk    int
	concurrency int
	log         *log.Logger
	onChange    func(State)

	// Lifetime of background work
	ctx      context.Context
	shutdown context.CancelFunc
	bg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
	voice  speech.Voice

	// Current generation
	token    int64
	cancel   context.CancelFunc
	inflight *request
	last     *request
	playlist []slot

	// Playback
	index    int
	sound    audio.Sound
	loadID   int64
	status   Status
	complete bool
	position time.Duration
	duration time.Duration
	elapsed  time.Duration // finished tracks
	err      error
}

// New creates a Sequencer.
func New(synth speech.Synthesizer, store Store, engine audio.Engine, opts ...Option) *Sequencer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sequencer{
		synth:       synth,
		store:       store,
		engine:      engine,
		maxChunk:    chunk.DefaultMaxLength,
		concurrency: DefaultConcurrency,
		log:         log.Default(),
		ctx:         ctx,
		shutdown:    cancel,
		voice:       speech.DefaultVoice,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate splits text into chunks, synthesizes the first one and starts
// playing it. The remaining chunks are fetched in the background. Any
// previous generation is stopped and its pending results are discarded.
//
// A failure on the first chunk is returned as a *SynthesisError; a failure
// to play it as a *PlaybackError.
func (s *Sequencer) Generate(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	chunks := chunk.Split(text, s.maxChunk)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	previous := s.token
	s.token++
	gen := s.token
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.unloadLocked()
	s.playlist = nil
	s.index = 0
	s.status = StatusStopped
	s.complete = false
	s.position, s.duration = 0, 0
	s.elapsed = 0
	s.err = nil

	req := &request{text: text, voice: s.voice}
	s.inflight = req
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(st)

	if previous > 0 {
		s.discard(previous)
	}

	s.log.Info("Generating speech", "chunks", len(chunks), "voice", req.voice, "chars", len(text))

	path, err := s.fetch(ctx, gen, 0, chunks[0], req.voice)

	s.mu.Lock()
	if gen != s.token {
		s.mu.Unlock()
		s.discard(gen)
		return ErrSuperseded
	}
	s.inflight = nil

	if err != nil {
		s.status = StatusError
		s.err = &SynthesisError{Index: 0, Err: err}
		err = s.err
		st = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(st)
		s.log.Error("Unable to synthesize speech", "err", err)
		return err
	}

	s.last = req
	s.playlist = make([]slot, len(chunks))
	s.playlist[0] = slot{state: slotReady, path: path}

	bgCtx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel

	playErr := s.startLocked(0)
	st = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(st)

	if len(chunks) > 1 {
		s.bg.Add(1)
		go s.fetchRemaining(bgCtx, gen, chunks, req.voice)
	}

	return playErr
}

// Play resumes the paused track. After the last track ended it starts over
// from the first one.
func (s *Sequencer) Play() error {
	s.mu.Lock()
	err := s.playLocked()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return err
}

func (s *Sequencer) playLocked() error {
	if s.closed {
		return ErrClosed
	}
	if len(s.playlist) == 0 {
		return ErrNothingToPlay
	}

	switch {
	case s.complete:
		s.complete = false
		s.elapsed = 0
		return s.advanceLocked(0)
	case s.status == StatusPlaying || s.status == StatusBuffering:
		return nil
	case s.sound != nil:
		if err := s.sound.Play(); err != nil {
			return s.failLocked(&PlaybackError{Index: s.index, Path: s.playlist[s.index].path, Err: err})
		}
		s.status = StatusPlaying
		return nil
	default:
		return s.advanceLocked(s.index)
	}
}

// Pause suspends the current track.
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	err := s.pauseLocked()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return err
}

func (s *Sequencer) pauseLocked() error {
	if s.closed {
		return ErrClosed
	}

	switch s.status {
	case StatusPlaying:
		if s.sound != nil {
			if err := s.sound.Pause(); err != nil {
				return s.failLocked(&PlaybackError{Index: s.index, Path: s.playlist[s.index].path, Err: err})
			}
		}
		s.status = StatusPaused
	case StatusBuffering:
		s.status = StatusPaused
	}
	return nil
}

// Toggle pauses while playing and plays otherwise.
func (s *Sequencer) Toggle() error {
	s.mu.Lock()
	var err error
	if s.status == StatusPlaying || s.status == StatusBuffering {
		err = s.pauseLocked()
	} else {
		err = s.playLocked()
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return err
}

// SetVoice selects the voice for the next generation. A generation in
// flight keeps its voice.
func (s *Sequencer) SetVoice(v speech.Voice) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", speech.ErrUnknownVoice, v)
	}

	s.mu.Lock()
	s.voice = v
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return nil
}

// Voice returns the selected voice.
func (s *Sequencer) Voice() speech.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

// CanGenerate reports whether Generate would do something new for text:
// false when the trimmed text is empty, or when text and the selected
// voice match the last generated request.
func (s *Sequencer) CanGenerate(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := s.last
	if s.inflight != nil {
		ref = s.inflight
	}
	return ref == nil || ref.text != text || ref.voice != s.voice
}

// State returns a snapshot of the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops playback and background fetches and waits for them to end.
func (s *Sequencer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.token++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.shutdown()
	s.unloadLocked()
	s.status = StatusStopped
	s.mu.Unlock()

	s.bg.Wait()
	return nil
}

// fetch synthesizes one chunk and saves it.
func (s *Sequencer) fetch(ctx context.Context, gen int64, index int, text string, voice speech.Voice) (string, error) {
	data, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return "", err
	}

	path, err := s.store.Save(gen, index, data)
	if err != nil {
		return "", err
	}

	s.log.Debug("Chunk ready", "generation", gen, "index", index, "size", humanize.Bytes(uint64(len(data))))
	return path, nil
}

func (s *Sequencer) fetchRemaining(ctx context.Context, gen int64, chunks []string, voice speech.Voice) {
	defer s.bg.Done()

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := 1; i < len(chunks); i++ {
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			path, err := s.fetch(ctx, gen, i, chunks[i], voice)
			s.chunkDone(gen, i, path, err)
			return nil
		})
	}

	_ = g.Wait()
}

// chunkDone stores the outcome of a background fetch in its slot.
func (s *Sequencer) chunkDone(gen int64, index int, path string, err error) {
	s.mu.Lock()
	if gen != s.token || s.closed {
		s.mu.Unlock()
		s.log.Debug("Dropping stale chunk", "generation", gen, "index", index)
		if path != "" {
			s.discard(gen)
		}
		return
	}

	if err != nil {
		s.playlist[index] = slot{state: slotFailed, err: &SynthesisError{Index: index, Err: err}}
		s.log.Warn("Unable to synthesize chunk, skipping it", "index", index, "err", err)
	} else {
		s.playlist[index] = slot{state: slotReady, path: path}
	}

	if s.status == StatusBuffering && s.index == index {
		_ = s.advanceLocked(index)
	}

	st := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(st)
}

// onStatus handles engine callbacks for the sound loaded as (gen, id).
func (s *Sequencer) onStatus(gen, id int64, st audio.Status) {
	s.mu.Lock()
	if gen != s.token || id != s.loadID || s.closed {
		s.mu.Unlock()
		return
	}

	s.position = st.Position
	s.duration = st.Duration

	switch {
	case st.Err != nil:
		path := s.playlist[s.index].path
		s.unloadLocked()
		_ = s.failLocked(&PlaybackError{Index: s.index, Path: path, Err: st.Err})
	case st.DidJustFinish:
		s.log.Debug("Track finished", "index", s.index)
		played := st.Duration
		if played <= 0 {
			played = st.Position
		}
		s.elapsed += played
		_ = s.advanceLocked(s.index + 1)
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// advanceLocked plays the first usable slot at or after from. Failed slots
// are skipped, a pending slot puts the sequencer into Buffering, and
// running out of slots completes the playlist.
func (s *Sequencer) advanceLocked(from int) error {
	for i := from; i < len(s.playlist); i++ {
		switch s.playlist[i].state {
		case slotFailed:
			s.log.Debug("Skipping failed chunk", "index", i)
			continue
		case slotPending:
			s.unloadLocked()
			s.index = i
			s.status = StatusBuffering
			s.position, s.duration = 0, 0
			return nil
		case slotReady:
			return s.startLocked(i)
		}
	}

	s.unloadLocked()
	s.index = 0
	s.status = StatusStopped
	s.complete = true
	s.position, s.duration = 0, 0
	s.elapsed = 0
	s.log.Debug("Playback complete")
	return nil
}

// startLocked releases the current sound, then loads and plays slot i.
func (s *Sequencer) startLocked(i int) error {
	s.unloadLocked()

	s.index = i
	s.position, s.duration = 0, 0
	s.complete = false

	path := s.playlist[i].path
	s.loadID++
	gen, id := s.token, s.loadID

	sound, err := s.engine.Load(path, func(st audio.Status) {
		s.onStatus(gen, id, st)
	})
	if err != nil {
		return s.failLocked(&PlaybackError{Index: i, Path: path, Err: err})
	}
	s.sound = sound

	if err := sound.Play(); err != nil {
		s.unloadLocked()
		return s.failLocked(&PlaybackError{Index: i, Path: path, Err: err})
	}

	s.status = StatusPlaying
	return nil
}

func (s *Sequencer) unloadLocked() {
	if s.sound == nil {
		return
	}
	if err := s.sound.Unload(); err != nil {
		s.log.Warn("Unable to unload sound", "err", err)
	}
	s.sound = nil
	// callbacks of the released sound no longer match
	s.loadID++
}

func (s *Sequencer) failLocked(err error) error {
	s.status = StatusError
	s.err = err
	s.log.Error("Unable to play sound", "err", err)
	return err
}

func (s *Sequencer) discard(gen int64) {
	if err := s.store.Discard(gen); err != nil {
		s.log.Debug("Unable to discard generation", "generation", gen, "err", err)
	}
}

func (s *Sequencer) snapshotLocked() State {
	st := State{
		Status:     s.status,
		Generating: s.inflight != nil,
		Complete:   s.complete,
		Index:      s.index,
		Tracks:     len(s.playlist),
		Position:   s.position,
		Duration:   s.duration,
		Loaded:     s.sound != nil,
		Elapsed:    s.elapsed + s.position,
		Voice:      s.voice,
		Err:        s.err,
	}
	for _, sl := range s.playlist {
		switch sl.state {
		case slotReady:
			st.Ready++
		case slotFailed:
			st.Failed++
		}
	}
	return st
}

func (s *Sequencer) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}
