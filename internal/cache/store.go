package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionPrefix = "session-"

// FileStore holds the audio files of one program run. Every run gets its
// own directory, and every generation a subdirectory of it, so files of
// different generations never collide.
type FileStore struct {
	root string

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a new session directory below baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	root := filepath.Join(baseDir, sessionPrefix+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Dir returns the session directory.
func (s *FileStore) Dir() string {
	return s.root
}

// Save writes the audio of chunk index of a generation and returns the
// file path. The file appears atomically.
func (s *FileStore) Save(generation int64, index int, data []byte) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("invalid chunk index %d", index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	dir := s.generationDir(generation)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create generation directory: %w", err)
	}

	path := filepath.Join(dir, "speech_"+strconv.Itoa(index)+".mp3")
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return path, nil
}

// Discard removes every file of a generation.
func (s *FileStore) Discard(generation int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.RemoveAll(s.generationDir(generation))
}

// Cleanup removes the session directory. Later saves fail with
// ErrStoreClosed.
func (s *FileStore) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return os.RemoveAll(s.root)
}

func (s *FileStore) generationDir(generation int64) string {
	return filepath.Join(s.root, strconv.FormatInt(generation, 10))
}

// RemoveStaleSessions deletes session directories below baseDir that were
// last modified more than maxAge ago, such as those left behind by a
// crashed run. It returns the number of sessions removed.
func RemoveStaleSessions(baseDir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), sessionPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(baseDir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
