package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrStoreClosed is returned when saving to a store after Cleanup
	ErrStoreClosed = errors.New("file store is closed")
)

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size on disk in bytes
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastAccess time.Time
	LastEvict  time.Time
}

// Config holds configuration for the audio cache
type Config struct {
	Dir              string        // Directory for cache files
	Capacity         int64         // Bytes on disk
	CompressionLevel int           // Zstd level (1-22); 0 disables compression
	TTL              time.Duration // Entries older than this are pruned on open
}

// DefaultConfig returns the default cache configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		Capacity:         256 * 1024 * 1024, // 256MB
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
	}
}

// Key derives the cache key of a synthesis request. Any change to the
// model, voice, speed or text yields a different key.
func Key(model, voice string, speed float64, text string) string {
	h := sha256.New()
	for _, part := range []string{model, voice, strconv.FormatFloat(speed, 'f', 2, 64), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
