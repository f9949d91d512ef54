package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"grooveradio/internal/radio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTestCache(t *testing.T, ttl time.Duration) *SearchCache {
	t.Helper()
	c, err := OpenSearchCache(Config{
		Path: filepath.Join(t.TempDir(), "cache.db"),
		TTL:  ttl,
	}, discardLogger())
	if err != nil {
		t.Fatalf("OpenSearchCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSearchCacheRoundTrip(t *testing.T) {
	c := openTestCache(t, time.Hour)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "youtube", "lofi"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	want := []radio.Candidate{
		{Source: "youtube", ID: "abc", Title: "Lofi Mix", Duration: 3 * time.Minute},
		{Source: "youtube", ID: "def", Title: "More Lofi"},
	}
	if err := c.Put(ctx, "youtube", "lofi", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Get(ctx, "youtube", "lofi")
	if !ok {
		t.Fatalf("expected hit")
	}
	if len(got) != 2 || got[0].ID != "abc" || got[0].Duration != 3*time.Minute {
		t.Fatalf("unexpected cached page: %+v", got)
	}

	// same tag on another source is a separate key
	if _, ok := c.Get(ctx, "deezer", "lofi"); ok {
		t.Fatalf("cache keys must include the source")
	}
}

func TestSearchCachePutOverwrites(t *testing.T) {
	c := openTestCache(t, time.Hour)
	ctx := context.Background()

	if err := c.Put(ctx, "deezer", "jazz", []radio.Candidate{{Source: "deezer", ID: "1"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(ctx, "deezer", "jazz", []radio.Candidate{{Source: "deezer", ID: "2"}}); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, ok := c.Get(ctx, "deezer", "jazz")
	if !ok || len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected the newer page, got %+v ok=%v", got, ok)
	}
}

func TestSearchCacheTTL(t *testing.T) {
	c := openTestCache(t, 10*time.Millisecond)
	ctx := context.Background()

	if err := c.Put(ctx, "youtube", "lofi", []radio.Candidate{{Source: "youtube", ID: "x"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(ctx, "youtube", "lofi"); ok {
		t.Fatalf("stale entry must read as a miss")
	}

	n, err := c.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned row, got %d", n)
	}
}

func TestSearchCacheEmptyPayloadIsMiss(t *testing.T) {
	c := openTestCache(t, time.Hour)
	ctx := context.Background()
	if err := c.Put(ctx, "youtube", "void", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := c.Get(ctx, "youtube", "void"); ok {
		t.Fatalf("empty pages must not be served from cache")
	}
}
