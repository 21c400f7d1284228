package audio

import (
	"errors"
	"time"
)

var (
	// ErrUnloaded is returned when controlling a sound after Unload.
	ErrUnloaded = errors.New("sound is unloaded")

	// ErrSampleRateMismatch is returned when a file's sample rate differs
	// from the rate the audio device was opened with.
	ErrSampleRateMismatch = errors.New("sample rate does not match the audio device")
)

// Status is a snapshot of a loaded sound, delivered to the status callback.
type Status struct {
	Position  time.Duration
	Duration  time.Duration
	IsPlaying bool

	// DidJustFinish is set on the single status emitted when the sound
	// reaches its natural end.
	DidJustFinish bool

	// Err is set on the single status emitted when the output device
	// fails. No further status follows it.
	Err error
}

// Sound is one loaded audio resource.
type Sound interface {
	Play() error
	Pause() error

	// Unload stops the sound and releases its resources. It does not wait
	// for the status goroutine; a callback already in flight may still be
	// delivered after Unload returns.
	Unload() error
}

// Engine loads audio files into playable sounds.
//
// The status callback is always invoked from a goroutine owned by the
// engine, never synchronously from Load or from Sound methods.
type Engine interface {
	Load(path string, onStatus func(Status)) (Sound, error)
}
