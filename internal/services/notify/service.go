// Package notify implements an async outbound message pipeline:
// bounded queue + single sender worker + rate limit + retry.
//
// Callers must treat Notify as fire-and-forget; delivery failures are
// retried and ultimately logged, never propagated back.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"grooveradio/internal/kit"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

type Config struct {
	RatePerSec int
	QueueSize  int
	RetryMax   int
}

type Service struct {
	mu sync.Mutex

	log     *slog.Logger
	adapter kit.Adapter

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	queue     chan kit.Notification

	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

func New(cfg Config, adapter kit.Adapter, log *slog.Logger) *Service {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	return &Service{
		log:     log,
		adapter: adapter,
		cfg:     cfg,
		// burst = rate per sec so short spikes don't block too hard
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan kit.Notification, s.cfg.QueueSize)
	s.accepting = true
	rctx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel
	q := s.queue
	s.mu.Unlock()

	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		s.sendLoop(rctx, q)
	}()
}

// Stop blocks intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	cancel := s.runCancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.queue = nil
	s.runCancel = nil
	s.mu.Unlock()

	close(q)

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
	}
}

// Notify enqueues without blocking. A full queue is reported to the
// caller; it is a signal the chat is being flooded, not a retryable error.
func (s *Service) Notify(ctx context.Context, n kit.Notification) error {
	s.mu.Lock()
	accepting := s.accepting
	q := s.queue
	s.mu.Unlock()

	if !accepting || q == nil {
		return ErrStopped
	}
	select {
	case q <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) sendLoop(ctx context.Context, q <-chan kit.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-q:
			if !ok {
				return
			}
			s.sendOne(ctx, n)
		}
	}
}

func (s *Service) sendOne(ctx context.Context, n kit.Notification) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	var err error
	for attempt := 0; attempt <= s.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * 500 * time.Millisecond
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err = s.adapter.SendText(sctx, n.Target, n.Text, n.Options)
		cancel()
		if err == nil {
			return
		}
	}
	s.log.Warn("notification dropped", slog.Int64("chat_id", n.Target.ChatID), slog.Any("err", err))
}
