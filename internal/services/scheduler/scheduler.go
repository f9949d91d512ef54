// Package scheduler runs wall-clock jobs (cron specs and daily HH:MM
// times) on top of robfig/cron. Jobs are registered under stable names so
// they can be upserted and removed deterministically.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Timezone string // IANA TZ; empty means time.Local
}

type Service struct {
	mu sync.Mutex

	log    *slog.Logger
	cfg    Config
	loc    *time.Location
	parser cron.Parser

	c       *cron.Cron
	entries map[string]cron.EntryID

	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(cfg Config, log *slog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field cron specs.
		parser:  cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		entries: map[string]cron.EntryID{},
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			s.log.Warn("invalid timezone, using local", slog.String("tz", tz), slog.Any("err", err))
		}
	}
	s.loc = loc
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	s.c.Start()
	s.log.Info("service started", slog.String("tz", loc.String()))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	s.entries = map[string]cron.EntryID{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// running jobs finish in the background
	}
	s.log.Info("service stopped")
}

// AddDaily registers a job firing once a day at the given "HH:MM" wall
// clock time in the service timezone. Upserts by name.
func (s *Service) AddDaily(name, atHHMM string, job func(ctx context.Context) error) error {
	hour, minute, err := parseHHMM(atHHMM)
	if err != nil {
		return err
	}
	return s.AddCron(name, fmt.Sprintf("%d %d * * *", minute, hour), job)
}

// AddCron registers a job under a cron spec. Upserts by name.
func (s *Service) AddCron(name, spec string, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("schedule name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return fmt.Errorf("scheduler not running")
	}
	if old, ok := s.entries[name]; ok {
		s.c.Remove(old)
		delete(s.entries, name)
	}
	id, err := s.c.AddFunc(spec, func() { s.runJob(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries[name] = id
	s.log.Info("schedule registered", slog.String("name", name), slog.String("spec", spec))
	return nil
}

func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return false
	}
	id, ok := s.entries[name]
	if !ok {
		return false
	}
	s.c.Remove(id)
	delete(s.entries, name)
	return true
}

// Next reports the next fire time of a named schedule (zero if unknown).
func (s *Service) Next(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}
	return s.c.Entry(id).Next
}

func (s *Service) runJob(name string, job func(ctx context.Context) error) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduled job", slog.String("name", name), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()

	start := time.Now()
	err := job(ctx)
	dur := time.Since(start)
	if err != nil {
		s.log.Warn("job failed", slog.String("name", name), slog.Any("err", err), slog.Duration("dur", dur))
		return
	}
	s.log.Debug("job completed", slog.String("name", name), slog.Duration("dur", dur))
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
