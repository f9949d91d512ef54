package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"grooveradio/internal/adapters/telegram"
	"grooveradio/internal/kit"
	"grooveradio/internal/services/logging"
	"grooveradio/internal/services/notify"
	"grooveradio/internal/services/scheduler"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log  *slog.Logger
	logs *logging.Service

	adapter kit.Adapter

	sched *scheduler.Service
	notif *notify.Service

	cmdm *CommandManager
	pm   *PluginManager

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	bootLog := slog.New(logging.NewPrettyHandler(logging.Stdout(), slog.LevelInfo)).With(slog.String("comp", "telegram"))

	pollTimeout, err := durationSetting("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logging.New(loggingConfig(cfg), ad)
	log = log.With(slog.String("comp", "app"))
	applyLogTarget(logSvc, cfg)

	schedSvc := scheduler.New(scheduler.Config{
		Timezone: cfg.Scheduler.Timezone,
	}, log.With(slog.String("comp", "scheduler")))

	notifSvc := notify.New(notify.Config{
		RatePerSec: cfg.Notify.RatePerSec,
		QueueSize:  cfg.Notify.QueueSize,
		RetryMax:   cfg.Notify.RetryMax,
	}, ad, log.With(slog.String("comp", "notifier")))

	serv := &Services{
		Scheduler: schedSvc,
		Notifier:  notifSvc,
	}

	cmdm := NewCommandManager(log.With(slog.String("comp", "commands")),
		ad, cfgm, serv, cfg.Telegram.OwnerUserIDs)

	pm := NewPluginManager(log.With(slog.String("comp", "plugins")), PluginDeps{
		Logger:       log,
		Adapter:      ad,
		Config:       cfgm,
		Services:     serv,
		OwnerUserIDs: cfg.Telegram.OwnerUserIDs,
	}, cmdm)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		sched:   schedSvc,
		notif:   notifSvc,
		cmdm:    cmdm,
		pm:      pm,
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Plugins() *PluginManager { return a.pm }

// Done is closed when the app run context unwinds (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	// transactional config hot-reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(slog.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *Config) error {
		return validateConfig(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.sched.Start(a.sup.Context())
	a.notif.Start(a.sup.Context())

	if err := a.pm.StartAll(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	// hot reload fan-out: logging + owner list follow the config file
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// coalesce bursts: keep only the latest config
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.logs.Apply(loggingConfig(newCfg))
				applyLogTarget(a.logs, newCfg)
				a.cmdm.SetOwners(newCfg.Telegram.OwnerUserIDs)
				a.pm.SetOwnerUserIDs(newCfg.Telegram.OwnerUserIDs)
				a.log.Info("config reloaded")
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	// run each shutdown phase under its own bound so one component can't
	// stall the whole stop
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", slog.String("name", name), slog.String("err", err.Error()))
			}
			a.log.Debug("stop step end", slog.String("name", name), slog.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				slog.String("name", name), slog.Duration("elapsed", time.Since(start)))
		}
	}

	step("plugins", 4*time.Second, func(c context.Context) error { a.pm.StopAll(c); return nil })
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 1*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	return nil
}

func loggingConfig(cfg *Config) logging.Config {
	return logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logging.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func applyLogTarget(logs *logging.Service, cfg *Config) {
	if raw := strings.TrimSpace(cfg.Telegram.GroupLog); raw != "" {
		if chatID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			logs.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
			return
		}
	}
	logs.SetTelegramTarget(0, 0)
}

// validateConfig is run at startup and before every hot-reload commit. The
// radio section carries the fatal misconfigurations: an engine without
// sources, vote candidates or a sane schedule must not start.
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := durationSetting("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}

	rc := &cfg.Radio
	if rc.ChatID == 0 {
		return fmt.Errorf("radio.chat_id is required")
	}
	if strings.TrimSpace(rc.Genre) == "" {
		return fmt.Errorf("radio.genre is required")
	}
	if len(rc.Sources.Order) == 0 {
		return fmt.Errorf("radio.sources.order must list at least one source")
	}
	candidates := 0
	for _, g := range rc.VoteCandidates {
		if strings.TrimSpace(g) != "" {
			candidates++
		}
	}
	if candidates == 0 {
		return fmt.Errorf("radio.vote_candidates must list at least one genre")
	}
	if _, err := durationSetting("radio.dispatch_interval", rc.DispatchInterval, 20*time.Minute); err != nil {
		return err
	}
	if _, err := durationSetting("radio.vote_duration", rc.VoteDuration, 5*time.Minute); err != nil {
		return err
	}
	if _, err := durationSetting("radio.vote_cooldown", rc.VoteCooldown, time.Minute); err != nil {
		return err
	}
	if _, err := durationSetting("radio.search_timeout", rc.SearchTimeout, 10*time.Second); err != nil {
		return err
	}
	if at := strings.TrimSpace(rc.VoteAt); at != "" {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("radio.vote_at: want HH:MM, got %q", at)
		}
	}
	if rc.MinDurationSec < 0 || rc.MaxDurationSec < 0 {
		return fmt.Errorf("radio duration bounds must be >= 0")
	}
	if rc.MinDurationSec > 0 && rc.MaxDurationSec > 0 && rc.MinDurationSec > rc.MaxDurationSec {
		return fmt.Errorf("radio.min_duration_sec exceeds radio.max_duration_sec")
	}

	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Path) == "" {
		return fmt.Errorf("cache.path is required when cache is enabled")
	}
	if cfg.Cache.TTL != "" {
		if _, err := durationSetting("cache.ttl", cfg.Cache.TTL, 0); err != nil {
			return err
		}
	}
	return nil
}
