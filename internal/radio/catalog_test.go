package radio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte("obscure: [chill, ambient]\nlofi:\n  - jazzhop\nsolo: []\n"))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	got := c.Lookup("obscure")
	if len(got) != 2 || got[0] != "chill" || got[1] != "ambient" {
		t.Fatalf("unexpected fallback order: %v", got)
	}
	if tags := c.Lookup("Obscure"); len(tags) != 2 {
		t.Fatalf("lookup must be case-insensitive, got %v", tags)
	}
	if tags := c.Lookup("solo"); len(tags) != 0 {
		t.Fatalf("empty fallback list should stay empty, got %v", tags)
	}
	if tags := c.Lookup("unknown"); tags != nil {
		t.Fatalf("unknown genre should have no fallbacks, got %v", tags)
	}
}

func TestParseCatalogDropsSelfAndDuplicates(t *testing.T) {
	c, err := ParseCatalog([]byte("rock: [rock, metal, Metal, '']\n"))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	got := c.Lookup("rock")
	if len(got) != 1 || got[0] != "metal" {
		t.Fatalf("expected [metal], got %v", got)
	}
}

func TestParseCatalogMalformed(t *testing.T) {
	if _, err := ParseCatalog([]byte("rock: {not: [a, list\n")); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	c, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must yield an empty catalog, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d entries", c.Len())
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("lofi: [chillhop]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if got := c.Lookup("lofi"); len(got) != 1 || got[0] != "chillhop" {
		t.Fatalf("unexpected catalog content: %v", got)
	}
}
