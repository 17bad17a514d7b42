package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestPutGet(t *testing.T) {
	c := newTestCache(t)

	if err := c.Put("k", map[string]int{"a": 1}, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got map[string]int
	hit, err := c.Get("k", &got)
	if err != nil || !hit {
		t.Fatalf("Get = %v, %v, want hit", hit, err)
	}
	if got["a"] != 1 {
		t.Errorf("got %v", got)
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)
	var got string
	if hit, err := c.Get("absent", &got); hit || err != nil {
		t.Errorf("Get = %v, %v, want miss without error", hit, err)
	}
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t)
	if err := c.Put("k", "v", time.Nanosecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	var got string
	if hit, _ := c.Get("k", &got); hit {
		t.Error("expired entry was returned")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := newTestCache(t)
	if err := c.Put("k", "v", 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got string
	if hit, _ := c.Get("k", &got); !hit || got != "v" {
		t.Errorf("Get = %v %q, want hit with v", hit, got)
	}
}

func TestPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c1, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c1.Put("k", 42, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	c2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var got int
	if hit, _ := c2.Get("k", &got); !hit || got != 42 {
		t.Errorf("Get after reload = %v %d, want hit with 42", hit, got)
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := New(path)
	if err != nil {
		t.Fatalf("New on corrupt file: %v", err)
	}
	var got string
	if hit, _ := c.Get("k", &got); hit {
		t.Error("corrupt cache produced a hit")
	}
}

func TestConcurrentPutsAllReachDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Put(BuildKey("k", strconv.Itoa(i)), i, time.Hour); err != nil {
				t.Errorf("Put %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	// Reload from disk; a flush losing the race must not drop entries.
	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	for i := 0; i < n; i++ {
		var got int
		if hit, _ := reloaded.Get(BuildKey("k", strconv.Itoa(i)), &got); !hit || got != i {
			t.Errorf("entry %d missing from disk after concurrent puts", i)
		}
	}
}

func TestKeys(t *testing.T) {
	if got := BuildKey("rates", "USD"); got != "rates|USD" {
		t.Errorf("BuildKey = %q", got)
	}
	if got := RatesKey("EUR"); got != "rates|EUR" {
		t.Errorf("RatesKey = %q", got)
	}
	if got := SetsKey(); got != "catalog|sets" {
		t.Errorf("SetsKey = %q", got)
	}
}
