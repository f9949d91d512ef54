package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// PrettyHandler is a lightweight slog handler for console output.
//
// Format:
//
//	15:04:05.000 INF [component] message key=value ...
type PrettyHandler struct {
	w       io.Writer
	mu      *sync.Mutex
	level   slog.Level
	timeFmt string
}

func NewPrettyHandler(w io.Writer, level slog.Level) *PrettyHandler {
	return &PrettyHandler{
		w:       w,
		mu:      &sync.Mutex{},
		level:   level,
		timeFmt: "15:04:05.000",
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	comp := ""
	attrs := make([]slog.Attr, 0, r.NumAttrs())

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "comp" || a.Key == "plugin" {
			comp = fmt.Sprint(a.Value.Any())
			return true
		}
		attrs = append(attrs, a)
		return true
	})

	var b strings.Builder
	b.WriteString(r.Time.Local().Format(h.timeFmt))
	b.WriteString(" ")
	b.WriteString(levelShort(r.Level))
	if comp != "" {
		b.WriteString(" [")
		b.WriteString(comp)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(r.Message)

	for _, a := range attrs {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(valString(a.Value))
	}
	b.WriteString("\n")

	h.mu.Lock()
	_, _ = io.WriteString(h.w, b.String())
	h.mu.Unlock()
	return nil
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	return &prettyWithAttrs{base: &cp, attrs: attrs}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	// groups are flattened into key prefixes by prettyWithAttrs
	return h
}

type prettyWithAttrs struct {
	base  *PrettyHandler
	attrs []slog.Attr
}

func (p *prettyWithAttrs) Enabled(ctx context.Context, lvl slog.Level) bool {
	return p.base.Enabled(ctx, lvl)
}
func (p *prettyWithAttrs) Handle(ctx context.Context, r slog.Record) error {
	r2 := r.Clone()
	r2.AddAttrs(p.attrs...)
	return p.base.Handle(ctx, r2)
}
func (p *prettyWithAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	all := make([]slog.Attr, 0, len(p.attrs)+len(attrs))
	all = append(all, p.attrs...)
	all = append(all, attrs...)
	return &prettyWithAttrs{base: p.base, attrs: all}
}
func (p *prettyWithAttrs) WithGroup(name string) slog.Handler { return p }

func levelShort(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	default:
		return "ERR"
	}
}

func valString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t=") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return fmt.Sprint(v.Any())
	}
}
