// Package playback turns text into a playlist of synthesized chunks and
// plays it back in order. The first chunk is synthesized before playback
// starts; the rest are fetched in the background while it plays.
package playback
