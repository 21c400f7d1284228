package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *OpenAI {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	cfg.RequestsPerMinute = 0
	cfg.Logger = log.New(io.Discard)
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := NewOpenAI(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestOpenAI_Synthesize(t *testing.T) {
	var got speechRequest
	var auth string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}, func(cfg *Config) {
		cfg.Speed = 1.25
	})

	audio, err := client.Synthesize(context.Background(), "Hello world.", VoiceNova)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(audio) != "ID3-audio" {
		t.Errorf("Expected response body, got %q", audio)
	}
	if auth != "Bearer test-key" {
		t.Errorf("Expected bearer auth, got %q", auth)
	}
	if got.Model != DefaultModel || got.Voice != "nova" || got.Input != "Hello world." {
		t.Errorf("Unexpected request: %+v", got)
	}
	if got.ResponseFormat != "mp3" {
		t.Errorf("Expected mp3 format, got %q", got.ResponseFormat)
	}
	if got.Speed != 1.25 {
		t.Errorf("Expected speed 1.25, got %v", got.Speed)
	}
}

func TestOpenAI_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}, nil)

	_, err := client.Synthesize(context.Background(), "Hi.", VoiceAlloy)
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("Expected API message in error, got %v", err)
	}
}

func TestOpenAI_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(cfg *Config) {
		cfg.Timeout = 50 * time.Millisecond
	})

	start := time.Now()
	_, err := client.Synthesize(context.Background(), "Slow.", VoiceAlloy)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Timeout did not bound the request")
	}
}

func TestOpenAI_Validation(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	}, nil)

	ctx := context.Background()
	if _, err := client.Synthesize(ctx, "", VoiceAlloy); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
	if _, err := client.Synthesize(ctx, strings.Repeat("a", MaxInputLength+1), VoiceAlloy); !errors.Is(err, ErrInputTooLong) {
		t.Errorf("Expected ErrInputTooLong, got %v", err)
	}
	if _, err := client.Synthesize(ctx, "Hi.", Voice("robot")); !errors.Is(err, ErrUnknownVoice) {
		t.Errorf("Expected ErrUnknownVoice, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no requests for invalid input, got %d", calls)
	}
}

func TestNewOpenAI_Config(t *testing.T) {
	if _, err := NewOpenAI(DefaultConfig("")); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}

	cfg := DefaultConfig("k")
	cfg.Speed = 5
	if _, err := NewOpenAI(cfg); err == nil {
		t.Error("Expected error for out of range speed")
	}
}

func TestOpenAI_RateLimitHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}, func(cfg *Config) {
		cfg.RequestsPerMinute = 1
	})

	ctx := context.Background()
	for i := 0; i < requestBurst; i++ {
		if _, err := client.Synthesize(ctx, "Hi.", VoiceAlloy); err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := client.Synthesize(ctx, "Hi.", VoiceAlloy); err == nil {
		t.Error("Expected rate limited request to fail once the context expires")
	}
}

// fakeSynth counts calls and returns canned audio.
type fakeSynth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, voice Voice) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(string(voice) + ":" + text), nil
}

type mapCache map[string][]byte

func (m mapCache) Get(key string) ([]byte, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapCache) Put(key string, v []byte) error {
	m[key] = v
	return nil
}

func TestCached(t *testing.T) {
	inner := &fakeSynth{}
	c := NewCached(inner, mapCache{}, DefaultModel, 1, log.New(io.Discard))
	ctx := context.Background()

	first, err := c.Synthesize(ctx, "Hello.", VoiceAlloy)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, _ := c.Synthesize(ctx, "Hello.", VoiceAlloy)
	if string(first) != string(second) {
		t.Errorf("Expected cached audio %q, got %q", first, second)
	}
	if inner.calls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", inner.calls)
	}

	if _, err := c.Synthesize(ctx, "Hello.", VoiceEcho); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("Expected a new voice to miss the cache, got %d calls", inner.calls)
	}
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	inner := &fakeSynth{err: errors.New("boom")}
	store := mapCache{}
	c := NewCached(inner, store, DefaultModel, 1, log.New(io.Discard))

	if _, err := c.Synthesize(context.Background(), "Hello.", VoiceAlloy); err == nil {
		t.Fatal("Expected error")
	}
	if len(store) != 0 {
		t.Error("Expected failures not to be cached")
	}
}
