package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"grooveradio/internal/kit"
)

// PluginBase is a small helper to make writing plugins faster and safer.
// Typical usage:
//
//	type Plugin struct { core.PluginBase }
//	func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error { p.InitBase(deps, p.Name()); return nil }
//	func (p *Plugin) Start(ctx context.Context) error { p.StartBase(ctx); p.Runner.Go(...); return nil }
//	func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }
type PluginBase struct {
	Log        *slog.Logger
	Deps       PluginDeps
	Runner     *Supervisor
	pluginName string

	ctx context.Context
}

// InitBase wires deps + logger.
func (b *PluginBase) InitBase(deps PluginDeps, pluginName string) {
	b.Deps = deps
	b.pluginName = pluginName
	if deps.Logger != nil {
		b.Log = deps.Logger
	} else {
		b.Log = slog.Default().With(slog.String("plugin", pluginName))
	}
}

// StartBase creates a per-plugin supervisor tied to ctx.
func (b *PluginBase) StartBase(ctx context.Context) {
	b.ctx = ctx
	b.Runner = NewSupervisor(ctx, WithLogger(b.Log), WithCancelOnError(false))
}

// StopBase cancels runner + waits bounded by ctx.
func (b *PluginBase) StopBase(ctx context.Context) error {
	if b.Runner == nil {
		return nil
	}
	b.Runner.Cancel()
	err := b.Runner.Wait(ctx)
	b.Runner = nil
	return err
}

// Context returns the plugin runtime context (canceled on stop).
func (b *PluginBase) Context() context.Context { return b.ctx }

// Notify enqueues a notification through the shared notifier service.
func (b *PluginBase) Notify(ctx context.Context, n kit.Notification) error {
	if b.Deps.Services == nil || b.Deps.Services.Notifier == nil {
		return errors.New("notifier not available")
	}
	return b.Deps.Services.Notifier.Notify(ctx, n)
}

// Info posts a plain text message to a chat with a short send timeout.
func (b *PluginBase) Info(chat kit.ChatTarget, text string) error {
	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return b.Notify(cctx, kit.Notification{
		Priority: 5,
		Target:   chat,
		Text:     text,
	})
}
