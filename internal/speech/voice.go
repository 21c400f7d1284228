// Package speech turns text into synthesized audio through a remote
// speech API.
package speech

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Voice identifies one of the synthetic voices offered by the API.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"
)

// DefaultVoice is selected until the user picks another one.
const DefaultVoice = VoiceAlloy

// ErrUnknownVoice is returned by ParseVoice for names outside the closed set.
var ErrUnknownVoice = errors.New("unknown voice")

// Voices returns the selectable voices in display order.
func Voices() []Voice {
	return []Voice{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}
}

// ParseVoice resolves a case-insensitive voice name.
func ParseVoice(name string) (Voice, error) {
	v := Voice(strings.ToLower(strings.TrimSpace(name)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q (choose one of %s)", ErrUnknownVoice, name, strings.Join(voiceNames(), ", "))
	}
	return v, nil
}

// Valid reports whether v belongs to the closed set of voices.
func (v Voice) Valid() bool {
	for _, known := range Voices() {
		if v == known {
			return true
		}
	}
	return false
}

// Label returns the capitalised display name, e.g. "Alloy".
func (v Voice) Label() string {
	return cases.Title(language.English).String(string(v))
}

func (v Voice) String() string {
	return string(v)
}

func voiceNames() []string {
	voices := Voices()
	names := make([]string, len(voices))
	for i, v := range voices {
		names[i] = string(v)
	}
	return names
}
