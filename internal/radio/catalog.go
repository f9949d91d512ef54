package radio

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Catalog is the read-only genre → fallback-tags mapping, loaded once at
// startup. Lookup keys are case-insensitive.
type Catalog struct {
	tags map[string][]string
}

// LoadCatalog reads a YAML file of the form:
//
//	obscure: [chill, ambient]
//	lofi:
//	  - jazzhop
//
// A missing file is not an error: it yields an empty catalog (no fallbacks
// anywhere). A file that exists but does not parse is ErrConfig.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{tags: map[string][]string{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{tags: map[string][]string{}}, nil
		}
		return nil, fmt.Errorf("%w: read catalog %s: %v", ErrConfig, path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog parses catalog YAML. Empty tags and duplicate tags within a
// genre are dropped; a genre mapping to an empty list is kept and means "no
// fallback for this genre".
func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc map[string][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrConfig, err)
	}
	c := &Catalog{tags: make(map[string][]string, len(doc))}
	for genre, list := range doc {
		key := normTag(genre)
		if key == "" {
			return nil, fmt.Errorf("%w: catalog: empty genre key", ErrConfig)
		}
		seen := make(map[string]bool, len(list))
		out := make([]string, 0, len(list))
		for _, t := range list {
			t = normTag(t)
			if t == "" || t == key || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
		c.tags[key] = out
	}
	return c, nil
}

// Lookup returns the ordered fallback tags for genre, or nil when the genre
// has none.
func (c *Catalog) Lookup(genre string) []string {
	return c.tags[normTag(genre)]
}

func (c *Catalog) Len() int { return len(c.tags) }

func normTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
