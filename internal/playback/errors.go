package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned by Generate for blank input.
	ErrEmptyText = errors.New("text is empty")

	// ErrNothingToPlay is returned by Play before anything was generated.
	ErrNothingToPlay = errors.New("nothing to play")

	// ErrSuperseded is returned by Generate when a newer generation started
	// before its first chunk was ready.
	ErrSuperseded = errors.New("generation superseded by a newer request")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sequencer is closed")
)

// SynthesisError reports a chunk whose audio could not be fetched or saved.
type SynthesisError struct {
	Index int
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// PlaybackError reports a chunk that could not be loaded or played.
type PlaybackError struct {
	Index int
	Path  string
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("chunk %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
