package cache

import (
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := openTestCache(t)

	key := GenerateKey("gpt-4o-mini", "en", "how is the project going")
	entry := &Entry{Lines: []string{"Ask about blockers", "Offer to help"}}

	if err := c.Set(key, entry, 0); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("entry not found after Set")
	}
	if len(got.Lines) != 2 || got.Lines[0] != "Ask about blockers" {
		t.Errorf("lines = %q", got.Lines)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestCacheMiss(t *testing.T) {
	c := openTestCache(t)
	if _, ok := c.Get(GenerateKey("nothing", "here")); ok {
		t.Error("hit on a key never written")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := openTestCache(t)

	key := GenerateKey("short-lived")
	if err := c.Set(key, &Entry{Lines: []string{"x"}}, time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); !ok {
		t.Fatal("entry missing before TTL")
	}

	time.Sleep(1100 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("entry survived its TTL")
	}
}

func TestGenerateKey(t *testing.T) {
	if GenerateKey("a", "b") == GenerateKey("ab") {
		t.Error("part boundaries not separated")
	}
	if GenerateKey("same", "input") != GenerateKey("same", "input") {
		t.Error("key not deterministic")
	}
}
