package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// MaxInputLength is the largest input, in characters, the speech endpoint
// accepts in one request.
const MaxInputLength = 4096

// DefaultModel is the speech model used unless configured otherwise.
const DefaultModel = "tts-1"

const requestBurst = 3

var (
	// ErrMissingAPIKey is returned when no API key was configured.
	ErrMissingAPIKey = errors.New("missing OpenAI API key (set OPENAI_API_KEY)")

	// ErrEmptyInput is returned when asked to synthesize blank text.
	ErrEmptyInput = errors.New("input text is empty")

	// ErrInputTooLong is returned for input over MaxInputLength characters.
	ErrInputTooLong = errors.New("input text is too long")
)

// Synthesizer converts text to encoded audio.
type Synthesizer interface {
	// Synthesize returns the audio for text spoken by voice. The result is
	// MP3 encoded.
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

// Config holds the settings of the OpenAI speech client.
type Config struct {
	APIKey  string
	BaseURL string // optional, for compatible servers and tests
	Model   string
	Speed   float64 // 0.25 to 4.0; 0 leaves the server default

	// Timeout bounds a single request. Zero means no limit beyond ctx.
	Timeout time.Duration

	// RequestsPerMinute limits the request rate; 0 disables limiting.
	RequestsPerMinute int

	HTTPClient *http.Client
	Logger     *log.Logger
}

// DefaultConfig returns the default client configuration for apiKey.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		Model:             DefaultModel,
		Timeout:           90 * time.Second,
		RequestsPerMinute: 50,
	}
}

// OpenAI implements Synthesizer on top of the OpenAI speech endpoint.
type OpenAI struct {
	client  *openai.Client
	model   openai.SpeechModel
	speed   float64
	timeout time.Duration
	limiter *rate.Limiter
	log     *log.Logger
}

// NewOpenAI creates an OpenAI speech client.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Speed != 0 && (cfg.Speed < 0.25 || cfg.Speed > 4.0) {
		return nil, fmt.Errorf("speed must be between 0.25 and 4.0, got %.2f", cfg.Speed)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), requestBurst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(config),
		model:   openai.SpeechModel(cfg.Model),
		speed:   cfg.Speed,
		timeout: cfg.Timeout,
		limiter: limiter,
		log:     logger,
	}, nil
}

// Synthesize requests MP3 audio for text.
func (o *OpenAI) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if n := utf8.RuneCountInString(text); n > MaxInputLength {
		return nil, fmt.Errorf("%w: %d characters (max %d)", ErrInputTooLong, n, MaxInputLength)
	}
	if !voice.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, voice)
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
		}
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          o.speed,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Close() //nolint:errcheck

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("unable to read speech response: %w", err)
	}

	o.log.Debug("Synthesized speech",
		"model", o.model,
		"voice", voice,
		"chars", utf8.RuneCountInString(text),
		"size", humanize.Bytes(uint64(len(audio))),
		"took", time.Since(start).Round(time.Millisecond))

	return audio, nil
}
