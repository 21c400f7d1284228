// Package chunk splits text into pieces small enough for a single speech
// synthesis request, preferring sentence and paragraph boundaries.
package chunk

import (
	"strings"
	"unicode"
)

// DefaultMaxLength is the default chunk size in characters. The OpenAI
// speech endpoint accepts up to 4096.
const DefaultMaxLength = 2000

// Split breaks text into trimmed, non-empty chunks of at most maxLength
// characters (runes), in reading order.
//
// A chunk ends right after the last '.', '?', '!' or newline that fits in
// the window. A boundary at the very first character of the window is not
// used; without a usable boundary the chunk is cut at exactly maxLength.
func Split(text string, maxLength int) []string {
	if maxLength < 1 {
		maxLength = 1
	}

	var chunks []string
	remaining := []rune(text)

	for {
		remaining = trimLeft(remaining)
		if len(remaining) == 0 {
			return chunks
		}

		if len(remaining) <= maxLength {
			chunks = appendTrimmed(chunks, remaining)
			return chunks
		}

		end := lastBoundary(remaining[:maxLength])
		if end <= 0 {
			end = maxLength
		} else {
			end++ // keep the punctuation
		}

		chunks = appendTrimmed(chunks, remaining[:end])
		remaining = remaining[end:]
	}
}

// IsBoundary reports whether r ends a sentence or a paragraph.
func IsBoundary(r rune) bool {
	switch r {
	case '.', '?', '!', '\n':
		return true
	}
	return false
}

// lastBoundary returns the index of the rightmost boundary rune in window,
// or -1 if there is none.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if IsBoundary(window[i]) {
			return i
		}
	}
	return -1
}

func appendTrimmed(chunks []string, piece []rune) []string {
	s := strings.TrimSpace(string(piece))
	if s == "" {
		return chunks
	}
	return append(chunks, s)
}

func trimLeft(r []rune) []rune {
	i := 0
	for i < len(r) && unicode.IsSpace(r[i]) {
		i++
	}
	return r[i:]
}
