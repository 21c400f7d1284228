package speech

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/speakpad/speakpad/internal/cache"
)

// AudioCache is the subset of the disk cache used by Cached.
type AudioCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Cached wraps a Synthesizer and serves repeated requests from a cache.
type Cached struct {
	next  Synthesizer
	cache AudioCache
	model string
	speed float64
	log   *log.Logger
}

// NewCached returns a Synthesizer that consults c before calling next.
// model and speed take part in the cache key, since they change the audio.
func NewCached(next Synthesizer, c AudioCache, model string, speed float64, logger *log.Logger) *Cached {
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{next: next, cache: c, model: model, speed: speed, log: logger}
}

// Synthesize implements Synthesizer.
func (c *Cached) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	key := cache.Key(c.model, string(voice), c.speed, text)
	if audio, ok := c.cache.Get(key); ok {
		c.log.Debug("Speech cache hit", "voice", voice, "key", key[:12])
		return audio, nil
	}

	audio, err := c.next.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(key, audio); err != nil {
		c.log.Warn("Unable to cache speech", "err", err)
	}
	return audio, nil
}
