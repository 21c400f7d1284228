package playback

import (
	"time"

	"github.com/speakpad/speakpad/internal/speech"
)

// Status is the playback status shown to the user.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
	StatusBuffering // waiting for the next chunk to arrive
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusBuffering:
		return "buffering"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the sequencer.
type State struct {
	Status     Status
	Generating bool // first chunk in flight
	Complete   bool // the last track ended

	// Playlist
	Index  int // current track
	Tracks int
	Ready  int
	Failed int

	// Current track
	Position time.Duration
	Duration time.Duration
	Loaded   bool

	// Elapsed is the playing time across the playlist: the durations of
	// the finished tracks plus Position.
	Elapsed time.Duration

	Voice speech.Voice
	Err   error // last SynthesisError or PlaybackError
}

// Pending returns the number of chunks still being fetched.
func (s State) Pending() int {
	return s.Tracks - s.Ready - s.Failed
}

type slotState int

const (
	slotPending slotState = iota
	slotReady
	slotFailed
)

// slot is one playlist entry, fixed at its chunk index.
type slot struct {
	state slotState
	path  string
	err   error
}

// request is a (text, voice) pair handed to Generate.
type request struct {
	text  string
	voice speech.Voice
}
