package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// HandlerFunc is the signature every command handler implements.
type HandlerFunc func(ctx context.Context, req *Request) error

type middleware func(next HandlerFunc) HandlerFunc

// compose wraps h so the first middleware in the list runs outermost.
func compose(h HandlerFunc, mws ...middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// withTimeout bounds the handler by d; d <= 0 means no bound.
func withTimeout(d time.Duration) middleware {
	return func(next HandlerFunc) HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req *Request) error {
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

// recoverPanics converts a handler panic into an error so one bad command
// never takes a dispatch worker down.
func recoverPanics(log *slog.Logger) middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				reqLogger(log, req).Error("panic recovered",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("panic: %v", r)
			}()
			return next(ctx, req)
		}
	}
}

// logRequests writes one line per handled request with outcome and timing.
func logRequests(log *slog.Logger) middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)

			fields := []any{
				slog.String("kind", string(req.Update.Kind)),
				slog.Int64("chat_id", req.Chat.ChatID),
				slog.Int64("from_id", req.FromID),
				slog.String("cmd", req.Command),
				slog.Duration("dur", time.Since(start)),
			}
			if err != nil {
				reqLogger(log, req).Warn("request failed", append(fields, slog.String("err", err.Error()))...)
				return err
			}
			reqLogger(log, req).Info("request ok", fields...)
			return nil
		}
	}
}

// reqLogger prefers the request-scoped logger (carries the request id).
func reqLogger(fallback *slog.Logger, req *Request) *slog.Logger {
	if req != nil && req.Logger != nil {
		return req.Logger
	}
	return fallback
}
