package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	c, err := New(filepath.Join(tmpDir, "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !c.enabled {
		t.Error("cache should be enabled")
	}

	c, err = New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.enabled {
		t.Error("cache should be disabled")
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache")

	if _, err := New(cacheDir, 24, true); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("New() should create the cache directory")
	}
}

func TestSetAndGet(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatal(err)
	}

	key := Key([]byte("<skeleton/>"), "lcom5", []byte("{}"))
	payload := []byte(`{"metric":"lcom5"}`)

	if err := c.Set(key, payload); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() should hit after Set()")
	}
	if string(got) != string(payload) {
		t.Errorf("Get() = %q, want %q", got, payload)
	}
}

func TestGetMissesUnknownKey(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("absent"); ok {
		t.Error("Get() should miss for an unknown key")
	}
}

func TestExpiredEntryIsDiscarded(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(dir, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	c.ttl = -time.Second // everything already expired

	key := Key(nil, "tcc", nil)
	if err := c.Set(key, []byte("data")); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("expired entries must not be returned")
	}
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	c, err := New("", 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set("k", []byte("v")); err != nil {
		t.Errorf("Set() on disabled cache should be a no-op, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache should never hit")
	}
}

func TestKeyIsSensitiveToAllParts(t *testing.T) {
	base := Key([]byte("skel"), "lcom5", []byte("{}"))
	if Key([]byte("skel2"), "lcom5", []byte("{}")) == base {
		t.Error("key should change with skeleton bytes")
	}
	if Key([]byte("skel"), "tcc", []byte("{}")) == base {
		t.Error("key should change with metric name")
	}
	if Key([]byte("skel"), "lcom5", []byte(`{"a":1}`)) == base {
		t.Error("key should change with params")
	}
	if Key([]byte("skel"), "lcom5", []byte("{}")) != base {
		t.Error("key should be deterministic")
	}
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(dir, 24, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Get() should miss after Clear()")
	}
}
