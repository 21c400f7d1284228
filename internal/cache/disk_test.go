package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestDiskCache(t *testing.T, capacity int64) *DiskCache {
	t.Helper()

	cfg := DefaultConfig(t.TempDir())
	cfg.Capacity = capacity
	dc, err := NewDiskCache(cfg)
	if err != nil {
		t.Fatalf("Failed to create disk cache: %v", err)
	}
	t.Cleanup(func() { dc.Close() })
	return dc
}

func TestDiskCache_BasicOperations(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)

	if _, ok := dc.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	value := []byte("ID3 fake mp3 payload")
	if err := dc.Put("k", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := dc.Get("k")
	if !ok {
		t.Fatal("Expected hit after Put")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Expected %q, got %q", value, got)
	}

	stats := dc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d and %d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 || stats.ItemCount != 1 {
		t.Errorf("Expected hit rate 0.5 over 1 item, got %v over %d", stats.HitRate, stats.ItemCount)
	}
}

func TestDiskCache_Compression(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)

	value := bytes.Repeat([]byte("compressible "), 1000)
	if err := dc.Put("big", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if size := dc.Stats().Size; size >= int64(len(value)) {
		t.Errorf("Expected compressed size below %d, got %d", len(value), size)
	}

	got, ok := dc.Get("big")
	if !ok || !bytes.Equal(got, value) {
		t.Error("Compressed value did not round trip")
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc := newTestDiskCache(t, 100)

	for _, key := range []string{"a", "b", "c"} {
		if err := dc.Put(key, bytes.Repeat([]byte(key), 40)); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := dc.Get("a"); ok {
		t.Error("Expected oldest entry to be evicted")
	}
	if _, ok := dc.Get("c"); !ok {
		t.Error("Expected newest entry to be kept")
	}
	if dc.Stats().Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", dc.Stats().Evictions)
	}

	if err := dc.Put("huge", make([]byte, 200)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Expected ErrItemTooLarge, got %v", err)
	}
}

func TestDiskCache_PersistsIndex(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())

	dc, err := NewDiskCache(cfg)
	if err != nil {
		t.Fatalf("Failed to create disk cache: %v", err)
	}
	if err := dc.Put("k", []byte("audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskCache(cfg)
	if err != nil {
		t.Fatalf("Failed to reopen disk cache: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("k")
	if !ok || string(got) != "audio" {
		t.Errorf("Expected entry to survive reopen, got %q (%v)", got, ok)
	}
}

func TestDiskCache_MissingFileIsAMiss(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)
	if err := dc.Put("k", []byte("audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dc.dir, fileName("k"))); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, ok := dc.Get("k"); ok {
		t.Error("Expected miss after the file vanished")
	}
	if dc.Stats().ItemCount != 0 {
		t.Error("Expected entry to be dropped from the index")
	}
}

func TestDiskCache_RemoveOlderThan(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)
	_ = dc.Put("old", []byte("1"))
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("new", []byte("2"))

	if removed := dc.RemoveOlderThan(cutoff); removed != 1 {
		t.Errorf("Expected 1 removal, got %d", removed)
	}
	if _, ok := dc.Get("new"); !ok {
		t.Error("Expected newer entry to remain")
	}
}

func TestKey(t *testing.T) {
	base := Key("tts-1", "alloy", 1, "hello")

	if base != Key("tts-1", "alloy", 1, "hello") {
		t.Error("Expected key to be deterministic")
	}

	variants := []string{
		Key("tts-1-hd", "alloy", 1, "hello"),
		Key("tts-1", "echo", 1, "hello"),
		Key("tts-1", "alloy", 1.5, "hello"),
		Key("tts-1", "alloy", 1, "hello!"),
		Key("tts-1", "alloyhello", 1, ""),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("Variant %d produced the same key", i)
		}
	}
}

func TestWriteFileAtomic_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech_0.mp3")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := writeFileAtomic(path, bytes.Repeat([]byte{byte('a' + i)}, 4096)); err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if len(data) != 4096 || !bytes.Equal(data, bytes.Repeat(data[:1], 4096)) {
		t.Error("Expected the file to hold exactly one writer's data")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected no temporary files left behind, got %d entries", len(entries))
	}
}
