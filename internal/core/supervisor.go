package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Supervisor runs named goroutines under a shared context. A panicking
// goroutine is recovered and recorded as its error; with cancel-on-error
// the first failure tears the whole group down. Wait is bounded by the
// caller's context so shutdown cannot hang on a stuck goroutine.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         *slog.Logger
	cancelOnErr bool

	mu       sync.Mutex
	firstErr error

	doneOnce sync.Once
	doneCh   chan struct{}
	wg       sync.WaitGroup
}

type SupervisorOption func(*Supervisor)

func WithLogger(log *slog.Logger) SupervisorOption {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError makes the first non-nil goroutine error cancel the
// supervisor context.
func WithCancelOnError(enabled bool) SupervisorOption {
	return func(s *Supervisor) { s.cancelOnErr = enabled }
}

func NewSupervisor(parent context.Context, opts ...SupervisorOption) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		doneCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel cancels the supervisor context without waiting for goroutines.
func (s *Supervisor) Cancel() { s.cancel() }

// Err returns the first error any supervised goroutine reported.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if s.log != nil {
				s.log.Error("goroutine panicked", slog.String("name", name), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			}
			s.fail(fmt.Errorf("panic in %s: %v", name, r))
		}()

		if s.log != nil {
			s.log.Debug("goroutine started", slog.String("name", name))
		}
		if err := fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.fail(fmt.Errorf("%s: %w", name, err))
		}
		if s.log != nil {
			s.log.Debug("goroutine stopped", slog.String("name", name))
		}
	}()
}

// Go0 supervises a goroutine that cannot fail.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Wait blocks until every supervised goroutine returned or ctx expires,
// whichever comes first.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.doneOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.doneCh)
		}()
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return s.Err()
	}
}

// fail records the first error and, when configured, cancels the group.
func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.mu.Unlock()
	if s.cancelOnErr {
		s.cancel()
	}
}
