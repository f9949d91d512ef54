package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigValidateFunc can reject a freshly loaded config before it is
// committed and published to subscribers (transactional hot reload).
type ConfigValidateFunc func(ctx context.Context, cfg *Config) error

type ConfigManager struct {
	path string

	mu       sync.RWMutex
	cfg      *Config
	subs     []chan *Config
	validate ConfigValidateFunc
	log      *slog.Logger
}

func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{path: path}
}

func (m *ConfigManager) SetLogger(log *slog.Logger)         { m.mu.Lock(); m.log = log; m.mu.Unlock() }
func (m *ConfigManager) SetValidator(fn ConfigValidateFunc) { m.mu.Lock(); m.validate = fn; m.mu.Unlock() }

// Load reads, parses and commits the config file. On reload the validator
// (if any) runs first; a rejected config leaves the committed one in place.
func (m *ConfigManager) Load() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.path, err)
	}

	m.mu.RLock()
	validate := m.validate
	m.mu.RUnlock()
	if validate != nil {
		if err := validate(context.Background(), &cfg); err != nil {
			return nil, fmt.Errorf("validate %s: %w", m.path, err)
		}
	}

	m.mu.Lock()
	m.cfg = &cfg
	m.mu.Unlock()
	return &cfg, nil
}

func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *ConfigManager) Subscribe(buffer int) <-chan *Config {
	ch := make(chan *Config, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *ConfigManager) Unsubscribe(sub <-chan *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ch := range m.subs {
		if ch == sub {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (m *ConfigManager) publish(cfg *Config) {
	m.mu.RLock()
	subs := append([]chan *Config{}, m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
			// drop for slow subscribers; Watch will publish again on the next change
		}
	}
}

// Watch observes the config file and publishes validated reloads.
// Writes are debounced because editors and scp produce partial writes.
func (m *ConfigManager) Watch(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	file := filepath.Join(dir, filepath.Base(m.path))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			cfg, err := m.Load()
			if err != nil {
				m.mu.RLock()
				log := m.log
				m.mu.RUnlock()
				if log != nil {
					log.Warn("config reload rejected", slog.Any("err", err))
				}
				return
			}
			m.publish(cfg)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case <-w.Errors:
			// keep watching
		}
	}
}

// durationSetting parses a duration config field. Empty and zero values
// fall back to def; negative values are rejected with the field path in
// the error so validation messages point at the offending key.
func durationSetting(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
