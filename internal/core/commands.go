package core

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"grooveradio/internal/kit"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	// Route is a space-separated command path, e.g.:
	//   "play"
	//   "radio skip"
	Route       string
	Aliases     []string // root-level aliases, e.g. ["skip", "s"]
	Description string
	Usage       string
	Access      Access

	PluginName string
	Timeout    time.Duration // optional per-command override
	Handle     HandlerFunc
}

type CallbackHandlerFunc func(ctx context.Context, req *Request, payload string) error

// CallbackRoute handles inline-button callbacks encoded as
// "<plugin>:<action>:<payload>".
type CallbackRoute struct {
	Plugin      string
	Action      string
	Description string
	Timeout     time.Duration
	Handle      CallbackHandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Path    []string // matched command path tokens (for message updates)
	Command string   // convenience (route or callback key)
	Args    []string
	Payload string // callback payload (raw string)

	RawArgs   []string
	Flags     map[string]string
	BoolFlags map[string]bool
	ReqID     string

	Adapter     kit.Adapter
	Config      *Config
	Logger      *slog.Logger
	Services    *Services
	OwnerUserID []int64
}

type Services struct {
	Scheduler SchedulerPort
	Notifier  NotifierPort
}

type SchedulerPort interface {
	AddDaily(name, atHHMM string, job func(ctx context.Context) error) error
	AddCron(name, spec string, job func(ctx context.Context) error) error
	Remove(name string) bool
	Next(name string) time.Time
}

type NotifierPort interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// CommandManager routes inbound updates onto registered handlers. Message
// routing walks the route tree token by token; callback routing keys on
// plugin+action. Handlers run on a bounded worker pool so a slow command
// cannot stall update intake.
type CommandManager struct {
	mu sync.RWMutex

	tree  *routeNode
	alias map[string]*routeNode // alias -> leaf node

	cbMu      sync.RWMutex
	callbacks map[string]map[string]CallbackRoute // plugin -> action -> route

	owners []int64

	log     *slog.Logger
	adapter kit.Adapter
	cfgm    *ConfigManager
	serv    *Services

	jobs chan func()
}

func NewCommandManager(log *slog.Logger, adapter kit.Adapter, cfgm *ConfigManager, serv *Services, owners []int64) *CommandManager {
	return &CommandManager{
		tree:      newRouteTree(),
		alias:     map[string]*routeNode{},
		callbacks: map[string]map[string]CallbackRoute{},
		log:       log,
		adapter:   adapter,
		cfgm:      cfgm,
		serv:      serv,
		owners:    append([]int64(nil), owners...),
		jobs:      make(chan func(), 256),
	}
}

// SetOwners updates the owner list used for AccessOwnerOnly checks.
// Safe to call during hot-reload.
func (m *CommandManager) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

func (m *CommandManager) ownersSnapshot() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.owners...)
}

func (m *CommandManager) SetRegistry(cmds []Command, cbs []CallbackRoute) {
	// always inject help
	cmds = append(cmds, Command{
		Route:       "help",
		Aliases:     []string{"h"},
		Description: "show help",
		Usage:       "/help [cmd] [sub...]",
		Access:      AccessEveryone,
		Handle: func(ctx context.Context, req *Request) error {
			_, _ = req.Adapter.SendText(ctx, req.Chat, m.helpText(req.Args), &kit.SendOptions{DisablePreview: true})
			return nil
		},
	})

	tree := newRouteTree()
	alias := map[string]*routeNode{}

	for _, c := range cmds {
		tokens := routeTokens(c.Route)
		if len(tokens) == 0 || c.Handle == nil {
			continue
		}
		tree.insert(tokens, c)

		leaf := tree.lookup(tokens)
		// auto alias for multi-token routes: "radio skip" -> "radio_skip"
		if len(tokens) > 1 {
			auto := strings.Join(tokens, "_")
			if _, taken := alias[auto]; !taken {
				alias[auto] = leaf
			}
		}
		for _, a := range c.Aliases {
			a = strings.TrimSpace(a)
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			alias[a] = leaf
		}
	}

	cb := map[string]map[string]CallbackRoute{}
	for _, r := range cbs {
		p := strings.TrimSpace(r.Plugin)
		a := strings.TrimSpace(r.Action)
		if p == "" || a == "" || r.Handle == nil {
			continue
		}
		if cb[p] == nil {
			cb[p] = map[string]CallbackRoute{}
		}
		cb[p][a] = r
	}

	m.mu.Lock()
	m.tree = tree
	m.alias = alias
	m.mu.Unlock()

	m.cbMu.Lock()
	m.callbacks = cb
	m.cbMu.Unlock()
}

func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	m.log.Info("command dispatcher started", slog.Int("workers", workers), slog.Int("job_queue_cap", cap(m.jobs)))

	var (
		wg        sync.WaitGroup
		closeOnce sync.Once
	)
	closeJobs := func() { closeOnce.Do(func() { close(m.jobs) }) }

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker(ctx, i, &wg)
	}

	defer func() {
		closeJobs()
		wg.Wait()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.routeUpdate(ctx, up)
		}
	}
}

func (m *CommandManager) worker(ctx context.Context, idx int, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in command worker", slog.Int("worker", idx), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-m.jobs:
			if !ok {
				return
			}
			if job != nil {
				job()
			}
		}
	}
}

func (m *CommandManager) routeUpdate(root context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		m.routeMessage(root, up)
	case kit.UpdateCallback:
		m.routeCallback(root, up)
	}
}

// say is the ad-hoc reply used for routing-level feedback (unknown command,
// unauthorized, queue full). Failures are ignored: there is nothing left to
// tell the user if even this send fails.
func (m *CommandManager) say(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) {
	_, _ = m.adapter.SendText(ctx, to, text, opt)
}

func (m *CommandManager) routeMessage(root context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	parts := tokenizeCommandLine(text)
	if len(parts) == 0 {
		return
	}
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i] // strip the @botname suffix groups add
	}
	args := parts[1:]
	target := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	// snapshot registry
	m.mu.RLock()
	tree := m.tree
	aliasMap := m.alias
	m.mu.RUnlock()

	// alias as root-level shortcut
	if leaf, ok := aliasMap[word]; ok && leaf != nil && leaf.cmd != nil {
		cmd := *leaf.cmd
		pos, flags, bools := parseFlags(args)
		m.enqueueCommand(root, up, cmd, routeTokens(cmd.Route), pos, args, flags, bools)
		return
	}

	// walk the subcommand tree as far as the tokens match
	cur, ok := tree.step(word)
	if !ok {
		m.say(root, target, "unknown command. try /help", nil)
		return
	}
	path := []string{word}
	for len(args) > 0 {
		if strings.HasPrefix(args[0], "-") { // flags start, stop traversal
			break
		}
		child, ok := cur.step(args[0])
		if !ok {
			break
		}
		cur = child
		path = append(path, args[0])
		args = args[1:]
	}

	// container node without a handler: show help for that path
	if cur.cmd == nil {
		m.say(root, target, m.helpText(path), &kit.SendOptions{DisablePreview: true})
		return
	}

	cmd := *cur.cmd
	pos, flags, bools := parseFlags(args)
	m.enqueueCommand(root, up, cmd, path, pos, args, flags, bools)
}

func (m *CommandManager) enqueueCommand(root context.Context, up kit.Update, cmd Command, path []string, args []string, raw []string, flags map[string]string, bools map[string]bool) {
	msg := up.Message
	if msg == nil {
		return
	}
	target := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	owners := m.ownersSnapshot()
	if cmd.Access == AccessOwnerOnly && !isOwner(msg.FromID, owners) {
		m.say(root, target, "unauthorized", nil)
		return
	}

	rid := newReqID()
	req := &Request{
		Update:    up,
		Chat:      target,
		FromID:    msg.FromID,
		Path:      path,
		Command:   cmd.Route,
		Args:      args,
		RawArgs:   raw,
		Flags:     flags,
		BoolFlags: bools,
		ReqID:     rid,
		Adapter:   m.adapter,
		Config:    m.cfgm.Get(),
		Logger: m.log.With(
			slog.String("rid", rid),
			slog.Int64("chat_id", msg.ChatID),
			slog.Int64("from_id", msg.FromID),
			slog.String("cmd", cmd.Route),
		),
		Services:    m.serv,
		OwnerUserID: owners,
	}

	final := compose(
		cmd.Handle,
		recoverPanics(m.log),
		logRequests(m.log),
		withTimeout(cmd.Timeout),
	)

	select {
	case m.jobs <- func() { _ = final(root, req) }:
	default:
		m.say(root, req.Chat, "busy, try again", nil)
	}
}

func (m *CommandManager) routeCallback(root context.Context, up kit.Update) {
	if up.Callback == nil {
		return
	}
	cb := up.Callback
	parts := strings.SplitN(strings.TrimSpace(cb.Data), ":", 3)
	if len(parts) < 2 {
		return
	}
	plugin, action := parts[0], parts[1]
	payload := ""
	if len(parts) == 3 {
		payload = parts[2]
	}

	m.cbMu.RLock()
	route, ok := m.callbacks[plugin][action]
	m.cbMu.RUnlock()
	if !ok {
		return
	}

	rid := newReqID()
	key := "cb:" + plugin + ":" + action
	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID},
		FromID:  cb.FromID,
		Command: key,
		Payload: payload,
		ReqID:   rid,
		Adapter: m.adapter,
		Config:  m.cfgm.Get(),
		Logger: m.log.With(
			slog.String("rid", rid),
			slog.Int64("chat_id", cb.ChatID),
			slog.Int64("from_id", cb.FromID),
			slog.String("cmd", key),
		),
		Services:    m.serv,
		OwnerUserID: m.ownersSnapshot(),
	}

	final := compose(
		func(ctx context.Context, r *Request) error { return route.Handle(ctx, r, payload) },
		recoverPanics(m.log),
		logRequests(m.log),
		withTimeout(route.Timeout),
	)

	select {
	case m.jobs <- func() {
		_ = final(root, req)
		// best-effort to stop the "loading" spinner on the button
		_ = m.adapter.AnswerCallback(root, cb.ID, "")
	}:
	default:
		_ = m.adapter.AnswerCallback(root, cb.ID, "busy")
	}
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
