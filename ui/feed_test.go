package ui

import (
	"testing"

	"github.com/speakpad/speakpad/internal/playback"
)

func TestFeedKeepsLatest(t *testing.T) {
	f := NewFeed()

	for i := 1; i <= 5; i++ {
		f.Publish(playback.State{Index: i})
	}

	msg := f.wait()()
	st, ok := msg.(stateMsg)
	if !ok {
		t.Fatalf("Expected stateMsg, got %T", msg)
	}
	if st.Index != 5 {
		t.Errorf("Expected the latest state (index 5), got %d", st.Index)
	}
	if len(f.ch) != 0 {
		t.Errorf("Expected the feed to be drained, got %d queued", len(f.ch))
	}
}
