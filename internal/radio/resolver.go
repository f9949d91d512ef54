package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultSearchTimeout = 10 * time.Second
	defaultSearchLimit   = 5
)

// ResolverConfig tunes one Resolver. Zero values get sensible defaults;
// Min/MaxDuration of zero disables that bound.
type ResolverConfig struct {
	SearchTimeout time.Duration
	SearchLimit   int
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

// Resolver walks an ordered source chain to turn a genre into one playable
// Candidate. Sources are tried in priority order under a per-source
// timeout; a timeout counts as no results and the chain moves on. When the
// genre itself is exhausted, the catalog's fallback tags are retried
// through the full chain, one tag at a time.
//
// SetOrder may be called concurrently with Resolve: an in-flight
// resolution keeps the order snapshot it started with.
type Resolver struct {
	mu      sync.RWMutex
	sources []Source

	catalog *Catalog
	cache   SearchCache
	cfg     ResolverConfig
	log     *slog.Logger
}

// NewResolver builds a resolver over the given chain. Zero sources is
// ErrConfig: a chain that can never resolve must not start. cache may be
// nil.
func NewResolver(sources []Source, catalog *Catalog, cache SearchCache, cfg ResolverConfig, log *slog.Logger) (*Resolver, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", ErrConfig)
	}
	if catalog == nil {
		catalog = &Catalog{tags: map[string][]string{}}
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		sources: append([]Source(nil), sources...),
		catalog: catalog,
		cache:   cache,
		cfg:     cfg,
		log:     log,
	}, nil
}

// SetOrder reorders the chain by source name for subsequent resolutions.
// Every configured source must appear exactly once.
func (r *Resolver) SetOrder(names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(names) != len(r.sources) {
		return fmt.Errorf("%w: order must name all %d sources", ErrInvalidState, len(r.sources))
	}
	byName := make(map[string]Source, len(r.sources))
	for _, s := range r.sources {
		byName[s.Name()] = s
	}
	next := make([]Source, 0, len(names))
	for _, n := range names {
		s, ok := byName[normTag(n)]
		if !ok {
			return fmt.Errorf("%w: unknown source %q", ErrInvalidState, n)
		}
		delete(byName, normTag(n))
		next = append(next, s)
	}
	r.sources = next
	return nil
}

// Order returns the current chain order by name.
func (r *Resolver) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.Name()
	}
	return out
}

// Resolve returns the first usable candidate for genre whose fingerprint
// excluded does not reject. excluded may be nil. Exhausting the genre and
// every fallback tag returns ErrEmptyCatalog.
func (r *Resolver) Resolve(ctx context.Context, genre string, excluded func(Fingerprint) bool) (Candidate, error) {
	chain := r.snapshot()
	genre = normTag(genre)

	tags := append([]string{genre}, r.catalog.Lookup(genre)...)
	for i, tag := range tags {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		cand, err := r.resolveTag(ctx, chain, tag, excluded)
		if err == nil {
			if i > 0 {
				r.log.Info("resolved via fallback tag",
					"genre", genre, "tag", tag, "source", cand.Source)
			}
			return cand, nil
		}
		if !errors.Is(err, ErrNoResults) {
			return Candidate{}, err
		}
	}
	return Candidate{}, fmt.Errorf("%w: genre %q", ErrEmptyCatalog, genre)
}

// Search is the one-shot lookup used outside the broadcast cycle. It walks
// the chain for query with no history exclusion and returns the first
// source's full result page.
func (r *Resolver) Search(ctx context.Context, query string) ([]Candidate, error) {
	chain := r.snapshot()
	for _, src := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cands, err := r.searchOne(ctx, src, query)
		if err != nil || len(cands) == 0 {
			continue
		}
		return cands, nil
	}
	return nil, fmt.Errorf("%w: query %q", ErrNoResults, query)
}

// resolveTag runs the full chain once for a single tag.
func (r *Resolver) resolveTag(ctx context.Context, chain []Source, tag string, excluded func(Fingerprint) bool) (Candidate, error) {
	for _, src := range chain {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		cands, err := r.searchOne(ctx, src, tag)
		if err != nil {
			continue
		}
		for _, c := range cands {
			if excluded != nil && excluded(c.Fingerprint()) {
				continue
			}
			if !r.durationOK(c.Duration) {
				continue
			}
			c.Tag = tag
			return c, nil
		}
	}
	return Candidate{}, fmt.Errorf("%w: tag %q", ErrNoResults, tag)
}

// searchOne queries one source under the per-source timeout, going through
// the cache when one is wired. Timeouts and transport failures are logged
// and reported as errors for the caller to skip past.
func (r *Resolver) searchOne(ctx context.Context, src Source, tag string) ([]Candidate, error) {
	if r.cache != nil {
		if cands, ok := r.cache.Get(ctx, src.Name(), tag); ok {
			return cands, nil
		}
	}

	sctx, cancel := context.WithTimeout(ctx, r.cfg.SearchTimeout)
	defer cancel()

	cands, err := src.Search(sctx, tag, r.cfg.SearchLimit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		lvl := slog.LevelDebug
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) {
			lvl = slog.LevelWarn
		}
		r.log.Log(ctx, lvl, "source search failed",
			"source", src.Name(), "tag", tag, "error", err)
		return nil, err
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: %s has nothing for %q", ErrNoResults, src.Name(), tag)
	}
	now := time.Now()
	for i := range cands {
		cands[i].FetchedAt = now
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, src.Name(), tag, cands); err != nil {
			r.log.Warn("search cache write failed", "source", src.Name(), "error", err)
		}
	}
	return cands, nil
}

func (r *Resolver) durationOK(d time.Duration) bool {
	if d == 0 {
		return true // source did not report one
	}
	if r.cfg.MinDuration > 0 && d < r.cfg.MinDuration {
		return false
	}
	if r.cfg.MaxDuration > 0 && d > r.cfg.MaxDuration {
		return false
	}
	return true
}

func (r *Resolver) snapshot() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Source(nil), r.sources...)
}
