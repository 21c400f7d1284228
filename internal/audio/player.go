package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little endian stereo.
const (
	channelCount   = 2
	bytesPerSample = 2
	bytesPerFrame  = channelCount * bytesPerSample
)

// Config contains configuration for the oto engine.
type Config struct {
	StatusInterval time.Duration // How often status callbacks fire
	BufferSize     time.Duration // Device buffer; 0 lets oto decide
	Volume         float64       // 0.0 to 1.0
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		StatusInterval: 250 * time.Millisecond,
		Volume:         1.0,
	}
}

// oto allows a single context per process, and its sample rate is fixed
// when it is created.
var (
	device     *oto.Context
	deviceRate int
	deviceMu   sync.Mutex
)

// OtoEngine implements Engine on the system audio device.
type OtoEngine struct {
	cfg Config
}

// NewOtoEngine validates cfg and returns an engine. The audio device is
// opened lazily by the first Load, using that file's sample rate.
func NewOtoEngine(cfg Config) (*OtoEngine, error) {
	if cfg.StatusInterval <= 0 {
		return nil, errors.New("status interval must be positive")
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return nil, fmt.Errorf("volume must be between 0.0 and 1.0, got %f", cfg.Volume)
	}
	return &OtoEngine{cfg: cfg}, nil
}

// Load decodes the MP3 file at path and prepares it for playback. The whole
// file is read into memory, so the file may be removed once Load returns.
func (e *OtoEngine) Load(path string, onStatus func(Status)) (Sound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	ctx, err := e.context(dec.SampleRate())
	if err != nil {
		return nil, err
	}

	src := &countingReader{r: dec}
	player := ctx.NewPlayer(src)
	player.SetVolume(e.cfg.Volume)

	s := newOtoSound(player, src, dec.SampleRate(), dec.Length(), onStatus)
	go s.run(e.cfg.StatusInterval)

	return s, nil
}

func (e *OtoEngine) context(sampleRate int) (*oto.Context, error) {
	deviceMu.Lock()
	defer deviceMu.Unlock()

	if device != nil {
		if sampleRate != deviceRate {
			return nil, fmt.Errorf("%w: file is %d Hz, device is %d Hz", ErrSampleRateMismatch, sampleRate, deviceRate)
		}
		return device, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   e.cfg.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	device, deviceRate = ctx, sampleRate
	return device, nil
}

// otoPlayer is the part of *oto.Player a sound drives.
type otoPlayer interface {
	Play()
	Pause()
	IsPlaying() bool
	BufferedSize() int
	Err() error
	Close() error
}

// otoSound is a loaded MP3 stream.
type otoSound struct {
	player   otoPlayer
	src      *countingReader
	rate     int
	duration time.Duration
	onStatus func(Status)

	mu       sync.Mutex
	started  bool // Play was called at least once
	paused   bool
	unloaded bool

	done     chan struct{}
	doneOnce sync.Once
}

func newOtoSound(player otoPlayer, src *countingReader, rate int, length int64, onStatus func(Status)) *otoSound {
	s := &otoSound{
		player:   player,
		src:      src,
		rate:     rate,
		onStatus: onStatus,
		done:     make(chan struct{}),
	}
	if length > 0 {
		s.duration = bytesToDuration(length, rate)
	}
	return s
}

func (s *otoSound) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return ErrUnloaded
	}
	s.started = true
	s.paused = false
	s.player.Play()
	return nil
}

func (s *otoSound) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return ErrUnloaded
	}
	s.paused = true
	s.player.Pause()
	return nil
}

func (s *otoSound) Unload() error {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return nil
	}
	s.unloaded = true
	s.mu.Unlock()

	s.doneOnce.Do(func() { close(s.done) })

	s.player.Pause()
	return s.player.Close()
}

// run emits a status every interval until the sound finishes or is
// unloaded.
func (s *otoSound) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			st, ok := s.poll()
			if !ok {
				return
			}
			if s.onStatus != nil {
				s.onStatus(st)
			}
			if st.DidJustFinish || st.Err != nil {
				return
			}
		}
	}
}

// poll computes the current status. It reports false once the sound is
// unloaded.
func (s *otoSound) poll() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return Status{}, false
	}

	playing := s.player.IsPlaying()
	st := Status{
		Position:  s.position(),
		Duration:  s.duration,
		IsPlaying: playing,
	}

	if s.started && !s.paused && !playing && s.src.EOF() && s.player.BufferedSize() == 0 {
		st.DidJustFinish = true
		if s.duration > 0 {
			st.Position = s.duration
		}
	}

	if err := s.player.Err(); err != nil {
		st.IsPlaying = false
		st.DidJustFinish = false
		st.Err = err
	}

	return st, true
}

func (s *otoSound) position() time.Duration {
	played := s.src.Count() - int64(s.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	pos := bytesToDuration(played, s.rate)
	if s.duration > 0 && pos > s.duration {
		pos = s.duration
	}
	return pos
}

func bytesToDuration(n int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	frames := n / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// countingReader tracks how many bytes the player has pulled from the
// decoder and whether the stream is exhausted.
type countingReader struct {
	r   io.Reader
	n   atomic.Int64
	eof atomic.Bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	if err == io.EOF {
		c.eof.Store(true)
	}
	return n, err
}

func (c *countingReader) Count() int64 {
	return c.n.Load()
}

func (c *countingReader) EOF() bool {
	return c.eof.Load()
}
