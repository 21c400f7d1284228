package speech

import (
	"errors"
	"testing"
)

func TestParseVoice(t *testing.T) {
	tests := []struct {
		input    string
		expected Voice
		wantErr  bool
	}{
		{"alloy", VoiceAlloy, false},
		{"Nova", VoiceNova, false},
		{"  SHIMMER ", VoiceShimmer, false},
		{"echo", VoiceEcho, false},
		{"bob", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVoice(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownVoice) {
					t.Errorf("Expected ErrUnknownVoice, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestVoices(t *testing.T) {
	voices := Voices()
	if len(voices) != 6 {
		t.Fatalf("Expected 6 voices, got %d", len(voices))
	}
	if voices[0] != DefaultVoice {
		t.Errorf("Expected %s first, got %s", DefaultVoice, voices[0])
	}
	for _, v := range voices {
		if !v.Valid() {
			t.Errorf("Expected %s to be valid", v)
		}
	}
	if Voice("robot").Valid() {
		t.Error("Expected unknown voice to be invalid")
	}
}

func TestVoiceLabel(t *testing.T) {
	if got := VoiceAlloy.Label(); got != "Alloy" {
		t.Errorf("Expected Alloy, got %s", got)
	}
	if got := Voice("").Label(); got != "" {
		t.Errorf("Expected empty label, got %q", got)
	}
}
