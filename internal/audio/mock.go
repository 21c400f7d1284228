package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// MockEngine implements Engine for tests. It records every call, can be
// told to fail, and lets the test decide when a sound finishes.
type MockEngine struct {
	mu      sync.Mutex
	sounds  []*MockSound
	history []string

	// Error injection
	loadErr error
	playErr error

	duration time.Duration
}

// NewMockEngine creates a mock engine whose sounds last one second.
func NewMockEngine() *MockEngine {
	return &MockEngine{duration: time.Second}
}

// Load implements Engine.
func (e *MockEngine) Load(path string, onStatus func(Status)) (Sound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("load", path)
	if e.loadErr != nil {
		err := e.loadErr
		e.loadErr = nil
		return nil, err
	}

	s := &MockSound{engine: e, path: path, duration: e.duration, onStatus: onStatus}
	e.sounds = append(e.sounds, s)
	return s, nil
}

// FailNextLoad makes the next Load return err.
func (e *MockEngine) FailNextLoad(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErr = err
}

// FailNextPlay makes the next Play of any sound return err.
func (e *MockEngine) FailNextPlay(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playErr = err
}

// History returns the recorded calls, e.g. "play speech_0.mp3".
func (e *MockEngine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.history...)
}

// Loaded returns the base names of every loaded file in load order.
func (e *MockEngine) Loaded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, len(e.sounds))
	for i, s := range e.sounds {
		names[i] = filepath.Base(s.path)
	}
	return names
}

// Active returns the sounds that are loaded and not yet unloaded.
func (e *MockEngine) Active() []*MockSound {
	e.mu.Lock()
	defer e.mu.Unlock()

	var active []*MockSound
	for _, s := range e.sounds {
		if !s.unloaded {
			active = append(active, s)
		}
	}
	return active
}

// Current returns the most recently loaded sound that is still loaded.
func (e *MockEngine) Current() *MockSound {
	active := e.Active()
	if len(active) == 0 {
		return nil
	}
	return active[len(active)-1]
}

// Finish makes the current sound reach its natural end, delivering the
// final status on the calling goroutine. It reports whether a sound was
// loaded.
func (e *MockEngine) Finish() bool {
	s := e.Current()
	if s == nil {
		return false
	}
	s.Finish()
	return true
}

func (e *MockEngine) record(op, path string) {
	e.history = append(e.history, fmt.Sprintf("%s %s", op, filepath.Base(path)))
}

// MockSound is a sound loaded by MockEngine.
type MockSound struct {
	engine   *MockEngine
	path     string
	duration time.Duration
	onStatus func(Status)

	// guarded by engine.mu
	playing  bool
	unloaded bool
	plays    int
}

// Path returns the loaded file path.
func (s *MockSound) Path() string {
	return s.path
}

// IsPlaying reports whether Play was called more recently than Pause.
func (s *MockSound) IsPlaying() bool {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.playing
}

func (s *MockSound) Play() error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("play", s.path)
	if s.unloaded {
		return ErrUnloaded
	}
	if e.playErr != nil {
		err := e.playErr
		e.playErr = nil
		return err
	}
	s.playing = true
	s.plays++
	return nil
}

func (s *MockSound) Pause() error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("pause", s.path)
	if s.unloaded {
		return ErrUnloaded
	}
	s.playing = false
	return nil
}

func (s *MockSound) Unload() error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.unloaded {
		return errors.New("sound unloaded twice")
	}
	e.record("unload", s.path)
	s.unloaded = true
	s.playing = false
	return nil
}

// Emit delivers st to the status callback on the calling goroutine.
func (s *MockSound) Emit(st Status) {
	if s.onStatus != nil {
		s.onStatus(st)
	}
}

// Finish delivers the final DidJustFinish status.
func (s *MockSound) Finish() {
	s.engine.mu.Lock()
	s.playing = false
	s.engine.mu.Unlock()

	s.Emit(Status{Position: s.duration, Duration: s.duration, DidJustFinish: true})
}

// Fail delivers a device error status, as an engine does when its output
// device stops working mid-track.
func (s *MockSound) Fail(err error) {
	s.engine.mu.Lock()
	s.playing = false
	s.engine.mu.Unlock()

	s.Emit(Status{Duration: s.duration, Err: err})
}
