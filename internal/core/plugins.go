package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"grooveradio/internal/kit"
)

// Plugin is a self-contained bot feature. Init must be cheap and may fail
// with a config error, which aborts startup. Commands/Callbacks are
// collected once after all plugins initialized.
type Plugin interface {
	Name() string
	Init(ctx context.Context, deps PluginDeps) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Commands() []Command
	Callbacks() []CallbackRoute
}

type PluginDeps struct {
	Logger       *slog.Logger
	Adapter      kit.Adapter
	Config       *ConfigManager
	Services     *Services
	OwnerUserIDs []int64
}

type PluginManager struct {
	mu      sync.Mutex
	log     *slog.Logger
	deps    PluginDeps
	cmdm    *CommandManager
	plugins []Plugin
	started []Plugin
}

func NewPluginManager(log *slog.Logger, deps PluginDeps, cmdm *CommandManager) *PluginManager {
	return &PluginManager{log: log, deps: deps, cmdm: cmdm}
}

func (pm *PluginManager) Register(plugins ...Plugin) {
	pm.mu.Lock()
	pm.plugins = append(pm.plugins, plugins...)
	pm.mu.Unlock()
}

func (pm *PluginManager) SetOwnerUserIDs(owners []int64) {
	pm.mu.Lock()
	pm.deps.OwnerUserIDs = append([]int64(nil), owners...)
	pm.mu.Unlock()
}

// StartAll initializes and starts every registered plugin in registration
// order, then publishes the collected command registry. The first failing
// plugin aborts startup.
func (pm *PluginManager) StartAll(ctx context.Context) error {
	pm.mu.Lock()
	plugins := append([]Plugin(nil), pm.plugins...)
	deps := pm.deps
	pm.mu.Unlock()

	var cmds []Command
	var cbs []CallbackRoute
	for _, p := range plugins {
		pdeps := deps
		pdeps.Logger = deps.Logger.With(slog.String("plugin", p.Name()))
		if err := p.Init(ctx, pdeps); err != nil {
			return fmt.Errorf("plugin %s: init: %w", p.Name(), err)
		}
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("plugin %s: start: %w", p.Name(), err)
		}
		pm.mu.Lock()
		pm.started = append(pm.started, p)
		pm.mu.Unlock()

		for _, c := range p.Commands() {
			c.PluginName = p.Name()
			cmds = append(cmds, c)
		}
		for _, cb := range p.Callbacks() {
			cb.Plugin = p.Name()
			cbs = append(cbs, cb)
		}
		pm.log.Info("plugin started", slog.String("plugin", p.Name()))
	}

	pm.cmdm.SetRegistry(cmds, cbs)
	return nil
}

// StopAll stops started plugins in reverse order, bounding each stop so one
// plugin can't stall shutdown.
func (pm *PluginManager) StopAll(ctx context.Context) {
	pm.mu.Lock()
	started := append([]Plugin(nil), pm.started...)
	pm.started = nil
	pm.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		p := started[i]
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := p.Stop(pctx); err != nil {
			pm.log.Warn("plugin stop error", slog.String("plugin", p.Name()), slog.Any("err", err))
		}
		cancel()
	}
}
