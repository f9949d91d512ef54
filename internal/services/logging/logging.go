// Package logging provides the process-wide slog setup: a hot-swappable
// handler fanning out to console, file and an optional rate-limited
// Telegram sink.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"grooveradio/internal/kit"
)

func Stdout() io.Writer { return os.Stdout }

type Config struct {
	Level    string
	Console  bool
	File     FileConfig
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

type TelegramConfig struct {
	Enabled    bool
	ThreadID   int
	MinLevel   string
	RatePerSec int
}

// Service owns the logger handed to the rest of the process. Apply swaps
// the sink set in place, so config reloads never invalidate loggers that
// were derived from the root one.
type Service struct {
	swap   *swapHandler
	logger *slog.Logger

	sender kit.Adapter

	mu   sync.Mutex
	file *os.File

	// telegram target + limiter
	chatID   int64
	threadID int
	limiter  *rate.Limiter
	minLevel slog.Level
}

func New(cfg Config, sender kit.Adapter) (*Service, *slog.Logger) {
	sw := &swapHandler{h: NewPrettyHandler(Stdout(), slog.LevelInfo)}
	svc := &Service{
		swap:   sw,
		logger: slog.New(sw),
		sender: sender,
	}
	svc.Apply(cfg)
	return svc, svc.logger
}

func (s *Service) Logger() *slog.Logger { return s.logger }

// SetTelegramTarget points the chat sink at a chat; zero disables it.
func (s *Service) SetTelegramTarget(chatID int64, threadID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatID = chatID
	s.threadID = threadID
}

// Apply rebuilds the sink set from cfg and swaps it in.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	level := parseLevel(cfg.Level, slog.LevelInfo)

	var sinks []slog.Handler
	if cfg.Console {
		sinks = append(sinks, NewPrettyHandler(Stdout(), level))
	}

	// file sink, closing the previous one on reload
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if cfg.File.Enabled && strings.TrimSpace(cfg.File.Path) != "" {
		f, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			s.file = f
			sinks = append(sinks, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}

	if cfg.Telegram.Enabled && s.sender != nil {
		s.minLevel = parseLevel(cfg.Telegram.MinLevel, slog.LevelInfo)
		rps := cfg.Telegram.RatePerSec
		if rps <= 0 {
			rps = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		s.threadID = cfg.Telegram.ThreadID
		sinks = append(sinks, &chatSink{svc: s, baseLevel: level})
	}

	if len(sinks) == 0 {
		sinks = append(sinks, slog.NewTextHandler(Stdout(), &slog.HandlerOptions{Level: level}))
	}
	s.swap.set(fanout(sinks))
}

func parseLevel(s string, def slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return def
	}
}

// swapHandler lets Apply replace the sink set without touching the
// slog.Logger the rest of the process already holds.
type swapHandler struct {
	mu sync.RWMutex
	h  slog.Handler
}

func (a *swapHandler) set(h slog.Handler) {
	a.mu.Lock()
	a.h = h
	a.mu.Unlock()
}

func (a *swapHandler) cur() slog.Handler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.h
}

func (a *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return a.cur().Enabled(ctx, level)
}
func (a *swapHandler) Handle(ctx context.Context, r slog.Record) error { return a.cur().Handle(ctx, r) }
func (a *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler        { return a.cur().WithAttrs(attrs) }
func (a *swapHandler) WithGroup(name string) slog.Handler              { return a.cur().WithGroup(name) }

// fanout duplicates every record to all sinks.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		_ = h.Handle(ctx, r)
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler { return f }
func (f fanout) WithGroup(name string) slog.Handler       { return f }

// chatSink mirrors records at or above its threshold into a chat, dropping
// anything over the rate limit rather than queueing.
type chatSink struct {
	svc       *Service
	baseLevel slog.Level
}

func (t *chatSink) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= t.baseLevel
}

func (t *chatSink) Handle(ctx context.Context, r slog.Record) error {
	t.svc.mu.Lock()
	chatID := t.svc.chatID
	threadID := t.svc.threadID
	lim := t.svc.limiter
	min := t.svc.minLevel
	t.svc.mu.Unlock()

	if chatID == 0 || t.svc.sender == nil || lim == nil {
		return nil
	}
	if r.Level < min || !lim.Allow() {
		return nil
	}

	msg := fmt.Sprintf("[%s] %s", r.Level.String(), r.Message)
	r.Attrs(func(a slog.Attr) bool {
		msg += fmt.Sprintf("\n- %s=%v", a.Key, a.Value.Any())
		return true
	})

	to := kit.ChatTarget{ChatID: chatID, ThreadID: threadID}
	_, _ = t.svc.sender.SendText(ctx, to, msg, &kit.SendOptions{ParseMode: ""})
	return nil
}

func (t *chatSink) WithAttrs(attrs []slog.Attr) slog.Handler { return t }
func (t *chatSink) WithGroup(name string) slog.Handler       { return t }
