// Package audio plays MP3 files through the system audio device using
// oto/v3, reporting playback progress through periodic status callbacks.
package audio
