package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// EngineConfig is the validated engine setup. Misconfigurations the chat
// commands cannot recover from at runtime are caught at construction.
type EngineConfig struct {
	Genre            string
	DispatchInterval time.Duration
	VoteCandidates   []string
	VoteDuration     time.Duration
	VoteCooldown     time.Duration
	HistorySize      int
}

func (c *EngineConfig) validate() error {
	c.Genre = normTag(c.Genre)
	if c.Genre == "" {
		return fmt.Errorf("%w: empty initial genre", ErrConfig)
	}
	if c.DispatchInterval <= 0 {
		return fmt.Errorf("%w: dispatch interval must be positive", ErrConfig)
	}
	seed := 0
	for _, g := range c.VoteCandidates {
		if normTag(g) != "" {
			seed++
		}
	}
	if seed == 0 {
		return fmt.Errorf("%w: empty vote candidate list", ErrConfig)
	}
	if c.VoteDuration <= 0 {
		c.VoteDuration = 5 * time.Minute
	}
	if c.VoteCooldown <= 0 {
		c.VoteCooldown = time.Minute
	}
	if c.HistorySize <= 0 {
		c.HistorySize = historyCap
	}
	return nil
}

type reqKind int

const (
	reqStart reqKind = iota
	reqStop
	reqSkip
	reqSetOrder
	reqVoteOpen
	reqVoteCast
	reqVoteClose
	reqStatus
)

type request struct {
	kind   reqKind
	names  []string
	voter  int64
	genre  string
	manual bool
	reply  chan response
}

type response struct {
	status Status
	vote   VoteResult
	err    error
}

type resolveResult struct {
	cycle uint64
	cand  Candidate
	err   error
}

// Engine is the broadcast coordinator. All mutable state (genre, schedule,
// history, vote session) lives inside the Run loop; public methods post a
// request and wait for the loop's answer, so every mutation is serialized
// without locks. Resolutions run as cancellable background work tagged
// with the cycle that started them; a result arriving after a newer cycle
// began is discarded.
type Engine struct {
	cfg      EngineConfig
	resolver *Resolver
	sink     Sink
	log      *slog.Logger

	reqs    chan request
	results chan resolveResult
	done    chan struct{}

	// loop-owned, never touched outside Run
	running       bool
	genre         string
	history       *HistoryRing
	vote          *VoteSession
	lastTrack     *Candidate
	lastScheduled time.Time
	nextDispatch  time.Time
	cycle         uint64
	cancelResolve context.CancelFunc
	dispatchTimer *time.Timer
	voteTimer     *time.Timer
}

func NewEngine(cfg EngineConfig, resolver *Resolver, sink Sink, log *slog.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: nil resolver", ErrConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		resolver: resolver,
		sink:     sink,
		log:      log,
		reqs:     make(chan request),
		results:  make(chan resolveResult, 1),
		done:     make(chan struct{}),
		genre:    cfg.Genre,
		history:  NewHistoryRing(cfg.HistorySize),
		vote:     NewVoteSession(),
	}, nil
}

// Run is the engine loop. It blocks until ctx is cancelled and must be
// running for any other method to succeed.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	e.dispatchTimer = newStoppedTimer()
	e.voteTimer = newStoppedTimer()
	defer e.dispatchTimer.Stop()
	defer e.voteTimer.Stop()

	e.log.Info("radio engine started",
		"genre", e.genre, "interval", e.cfg.DispatchInterval)

	for {
		select {
		case <-ctx.Done():
			if e.cancelResolve != nil {
				e.cancelResolve()
			}
			e.log.Info("radio engine stopped")
			return nil

		case req := <-e.reqs:
			req.reply <- e.handle(ctx, req)

		case <-e.dispatchTimer.C:
			e.onDispatchTick(ctx)

		case res := <-e.results:
			e.onResolved(res)

		case <-e.voteTimer.C:
			if e.vote.Expired(time.Now()) {
				e.closeVote(time.Now())
			}
		}
	}
}

// --- public API; each call is one round trip through the loop ---

func (e *Engine) StartBroadcast() error { return e.send(request{kind: reqStart}).err }
func (e *Engine) StopBroadcast() error  { return e.send(request{kind: reqStop}).err }
func (e *Engine) Skip() error           { return e.send(request{kind: reqSkip}).err }

func (e *Engine) SetSourceOrder(names []string) error {
	return e.send(request{kind: reqSetOrder, names: names}).err
}

// TriggerVote opens a vote session. Manual triggers (chat command) get the
// session's rejection back; automatic triggers (daily schedule) are
// silently skipped when a session is already active.
func (e *Engine) TriggerVote(manual bool) error {
	return e.send(request{kind: reqVoteOpen, manual: manual}).err
}

func (e *Engine) CastVote(voter int64, genre string) error {
	return e.send(request{kind: reqVoteCast, voter: voter, genre: genre}).err
}

func (e *Engine) CloseVote() (VoteResult, error) {
	r := e.send(request{kind: reqVoteClose})
	return r.vote, r.err
}

func (e *Engine) Status() (Status, error) {
	r := e.send(request{kind: reqStatus})
	return r.status, r.err
}

// Search is a one-shot chain lookup that bypasses history exclusion and
// the broadcast schedule entirely; it does not go through the loop.
func (e *Engine) Search(ctx context.Context, query string) ([]Candidate, error) {
	return e.resolver.Search(ctx, query)
}

func (e *Engine) send(req request) response {
	req.reply = make(chan response, 1)
	select {
	case e.reqs <- req:
		return <-req.reply
	case <-e.done:
		return response{err: fmt.Errorf("%w: engine not running", ErrInvalidState)}
	}
}

// --- loop internals ---

func (e *Engine) handle(ctx context.Context, req request) response {
	now := time.Now()
	switch req.kind {
	case reqStart:
		if e.running {
			return response{err: fmt.Errorf("%w: radio already on", ErrInvalidState)}
		}
		e.running = true
		e.anchorSchedule(now)
		e.beginCycle(ctx)
		return response{}

	case reqStop:
		if !e.running {
			return response{err: fmt.Errorf("%w: radio already off", ErrInvalidState)}
		}
		e.running = false
		e.dispatchTimer.Stop()
		e.nextDispatch = time.Time{}
		if e.cancelResolve != nil {
			e.cancelResolve()
		}
		return response{}

	case reqSkip:
		if !e.running {
			return response{err: fmt.Errorf("%w: radio is off", ErrInvalidState)}
		}
		// a skip restarts the cadence from now
		e.anchorSchedule(now)
		e.beginCycle(ctx)
		return response{}

	case reqSetOrder:
		return response{err: e.resolver.SetOrder(req.names)}

	case reqVoteOpen:
		err := e.vote.Open(e.cfg.VoteCandidates, now, e.cfg.VoteDuration)
		if err != nil {
			if !req.manual && errors.Is(err, ErrInvalidState) {
				e.log.Debug("scheduled vote skipped", "reason", err)
				return response{}
			}
			return response{err: err}
		}
		resetTimer(e.voteTimer, e.cfg.VoteDuration)
		e.sink.AnnounceVoteOpen(e.vote.Candidates(), e.vote.Deadline())
		e.log.Info("vote opened",
			"candidates", e.vote.Candidates(), "closes_at", e.vote.Deadline(), "manual", req.manual)
		return response{}

	case reqVoteCast:
		return response{err: e.vote.Cast(req.voter, req.genre)}

	case reqVoteClose:
		res, err := e.closeVote(now)
		return response{vote: res, err: err}

	case reqStatus:
		return response{status: e.snapshotStatus()}

	default:
		return response{err: fmt.Errorf("%w: unknown request %d", ErrInvalidState, req.kind)}
	}
}

// anchorSchedule fixes the cadence origin at now and arms the dispatch
// timer for one interval out.
func (e *Engine) anchorSchedule(now time.Time) {
	e.lastScheduled = now
	e.nextDispatch = nextFire(e.lastScheduled, e.cfg.DispatchInterval, now)
	resetTimer(e.dispatchTimer, time.Until(e.nextDispatch))
}

// onDispatchTick advances the absolute schedule and starts a cycle. The
// next slot is computed from the previous scheduled point so resolution
// latency never accumulates into the cadence.
func (e *Engine) onDispatchTick(ctx context.Context) {
	if !e.running {
		return
	}
	now := time.Now()
	e.lastScheduled = e.nextDispatch
	e.nextDispatch = nextFire(e.lastScheduled, e.cfg.DispatchInterval, now)
	resetTimer(e.dispatchTimer, time.Until(e.nextDispatch))
	e.beginCycle(ctx)
}

// beginCycle starts resolution for a fresh cycle. Any in-flight resolution
// is cancelled and its eventual result, if it still arrives, no longer
// matches e.cycle and is dropped in onResolved.
func (e *Engine) beginCycle(ctx context.Context) {
	if e.cancelResolve != nil {
		e.cancelResolve()
	}
	e.cycle++
	cyc := e.cycle
	genre := e.genre

	excl := make(map[Fingerprint]bool, e.history.Len())
	for _, fp := range e.history.Snapshot() {
		excl[fp] = true
	}

	rctx, cancel := context.WithCancel(ctx)
	e.cancelResolve = cancel

	go func() {
		cand, err := e.resolver.Resolve(rctx, genre, func(fp Fingerprint) bool {
			return excl[fp]
		})
		select {
		case e.results <- resolveResult{cycle: cyc, cand: cand, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (e *Engine) onResolved(res resolveResult) {
	if res.cycle != e.cycle || !e.running {
		e.log.Debug("discarding stale resolution", "cycle", res.cycle, "current", e.cycle)
		return
	}
	if res.err != nil {
		switch {
		case errors.Is(res.err, context.Canceled):
			// superseded cycle, nothing to report
		case errors.Is(res.err, ErrEmptyCatalog):
			e.log.Info("nothing to play this cycle", "genre", e.genre)
		default:
			e.log.Warn("resolution failed", "genre", e.genre, "error", res.err)
		}
		return
	}

	cand := res.cand
	e.history.Add(cand.Fingerprint())
	e.lastTrack = &cand
	e.sink.DeliverTrack(cand)
	e.log.Info("track dispatched",
		"source", cand.Source, "title", cand.Title, "tag", cand.Tag, "cycle", res.cycle)
}

func (e *Engine) closeVote(now time.Time) (VoteResult, error) {
	res, err := e.vote.Close(now, e.cfg.VoteCooldown)
	if err != nil {
		return VoteResult{}, err
	}
	e.voteTimer.Stop()
	if res.Winner == "" {
		e.log.Info("vote closed with no ballots", "genre", e.genre)
		return res, nil
	}
	e.genre = res.Winner
	e.sink.AnnounceGenreChange(res.Winner, res.Votes)
	e.log.Info("vote closed", "winner", res.Winner, "votes", res.Votes, "total", res.Total)
	return res, nil
}

func (e *Engine) snapshotStatus() Status {
	st := Status{
		Running:      e.running,
		Genre:        e.genre,
		SourceOrder:  e.resolver.Order(),
		NextDispatch: e.nextDispatch,
		HistorySize:  e.history.Len(),
	}
	if e.lastTrack != nil {
		c := *e.lastTrack
		st.LastTrack = &c
	}
	if e.vote.Phase() == VoteCollecting {
		st.Vote = &VoteStatus{
			Candidates: e.vote.Candidates(),
			Counts:     e.vote.Counts(),
			ClosesAt:   e.vote.Deadline(),
		}
	}
	return st
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

// resetTimer re-arms a loop-owned timer, draining a pending fire so the
// old deadline cannot leak through after the reset.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
