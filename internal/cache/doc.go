// Package cache keeps synthesized speech on disk. It provides a persistent,
// zstd-compressed audio cache keyed by synthesis request, and a per-session
// store for the chunk files handed to the audio engine.
package cache
