// Package radio is the broadcast plugin: it owns the engine, wires the
// source chain from config and exposes the chat commands that drive it.
package radio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"grooveradio/internal/core"
	"grooveradio/internal/kit"
	"grooveradio/internal/radio"
	"grooveradio/internal/sources"
	"grooveradio/internal/storage"
)

const (
	voteJobName  = "radio:vote"
	pruneJobName = "radio:cache-prune"
)

type Plugin struct {
	core.PluginBase

	chat   kit.ChatTarget
	voteAt string

	engine *radio.Engine
	cache  *storage.SearchCache
	sink   *notifySink

	// picks holds recent /play search results so the pick-buttons can hand
	// the full candidate to the sink later. Bounded FIFO, oldest evicted.
	pickMu    sync.Mutex
	picks     map[string]radio.Candidate
	pickOrder []string

	// panel is the last status message; repeated /radio status calls edit
	// it in place instead of reposting.
	panelMu sync.Mutex
	panel   kit.MessageRef
}

const maxPicks = 64

func pickKey(c radio.Candidate) string { return c.Source + "/" + c.ID }

func (p *Plugin) rememberPicks(cands []radio.Candidate) {
	p.pickMu.Lock()
	defer p.pickMu.Unlock()
	if p.picks == nil {
		p.picks = make(map[string]radio.Candidate)
	}
	for _, c := range cands {
		key := pickKey(c)
		if _, ok := p.picks[key]; !ok {
			p.pickOrder = append(p.pickOrder, key)
		}
		p.picks[key] = c
	}
	for len(p.pickOrder) > maxPicks {
		delete(p.picks, p.pickOrder[0])
		p.pickOrder = p.pickOrder[1:]
	}
}

func (p *Plugin) lookupPick(key string) (radio.Candidate, bool) {
	p.pickMu.Lock()
	defer p.pickMu.Unlock()
	c, ok := p.picks[key]
	return c, ok
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "radio" }

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	p.InitBase(deps, p.Name())

	cfg := deps.Config.Get()
	rc := cfg.Radio
	p.chat = kit.ChatTarget{ChatID: rc.ChatID, ThreadID: rc.ThreadID}
	p.voteAt = rc.VoteAt

	catalog, err := radio.LoadCatalog(rc.CatalogPath)
	if err != nil {
		return err
	}

	chain, err := p.buildSources(ctx, rc.Sources)
	if err != nil {
		return err
	}

	var cache radio.SearchCache
	if cfg.Cache.Enabled {
		ttl, err := parseDuration(cfg.Cache.TTL, 168*time.Hour)
		if err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
		sc, err := storage.OpenSearchCache(storage.Config{Path: cfg.Cache.Path, TTL: ttl}, p.Log)
		if err != nil {
			return fmt.Errorf("open search cache: %w", err)
		}
		p.cache = sc
		cache = sc
	}

	searchTimeout, err := parseDuration(rc.SearchTimeout, 10*time.Second)
	if err != nil {
		return fmt.Errorf("radio.search_timeout: %w", err)
	}
	resolver, err := radio.NewResolver(chain, catalog, cache, radio.ResolverConfig{
		SearchTimeout: searchTimeout,
		MinDuration:   time.Duration(rc.MinDurationSec) * time.Second,
		MaxDuration:   time.Duration(rc.MaxDurationSec) * time.Second,
	}, p.Log)
	if err != nil {
		return err
	}

	interval, err := parseDuration(rc.DispatchInterval, 20*time.Minute)
	if err != nil {
		return fmt.Errorf("radio.dispatch_interval: %w", err)
	}
	voteDur, err := parseDuration(rc.VoteDuration, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("radio.vote_duration: %w", err)
	}
	voteCooldown, err := parseDuration(rc.VoteCooldown, time.Minute)
	if err != nil {
		return fmt.Errorf("radio.vote_cooldown: %w", err)
	}

	sink := &notifySink{
		notifier: deps.Services.Notifier,
		chat:     p.chat,
		log:      p.Log,
	}
	p.sink = sink
	engine, err := radio.NewEngine(radio.EngineConfig{
		Genre:            rc.Genre,
		DispatchInterval: interval,
		VoteCandidates:   rc.VoteCandidates,
		VoteDuration:     voteDur,
		VoteCooldown:     voteCooldown,
	}, resolver, sink, p.Log)
	if err != nil {
		return err
	}
	p.engine = engine
	return nil
}

func (p *Plugin) buildSources(ctx context.Context, cfg core.SourcesConfig) ([]radio.Source, error) {
	out := make([]radio.Source, 0, len(cfg.Order))
	for _, name := range cfg.Order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "youtube":
			if cfg.YouTube.APIKey == "" {
				return nil, fmt.Errorf("%w: youtube source needs an api key", radio.ErrConfig)
			}
			out = append(out, &sources.YouTube{APIKey: cfg.YouTube.APIKey})
		case "deezer":
			out = append(out, &sources.Deezer{})
		case "spotify":
			sp, err := sources.NewSpotify(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
			if err != nil {
				return nil, fmt.Errorf("spotify source: %w", err)
			}
			out = append(out, sp)
		default:
			return nil, fmt.Errorf("%w: unknown source %q", radio.ErrConfig, name)
		}
	}
	return out, nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)
	p.Runner.Go("radio-engine", func(c context.Context) error {
		return p.engine.Run(c)
	})

	if p.voteAt != "" {
		if err := p.Deps.Services.Scheduler.AddDaily(voteJobName, p.voteAt, func(ctx context.Context) error {
			return p.engine.TriggerVote(false)
		}); err != nil {
			return fmt.Errorf("schedule daily vote: %w", err)
		}
	}
	if p.cache != nil {
		if err := p.Deps.Services.Scheduler.AddCron(pruneJobName, "0 4 * * *", func(ctx context.Context) error {
			n, err := p.cache.Prune(ctx)
			if n > 0 {
				p.Log.Info("search cache pruned", "rows", n)
			}
			return err
		}); err != nil {
			return fmt.Errorf("schedule cache prune: %w", err)
		}
	}
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error {
	p.Deps.Services.Scheduler.Remove(voteJobName)
	p.Deps.Services.Scheduler.Remove(pruneJobName)
	err := p.StopBase(ctx)
	if p.cache != nil {
		if cerr := p.cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", raw)
	}
	return d, nil
}
