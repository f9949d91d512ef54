package radio

import (
	"fmt"
	"time"
)

// VotePhase is the lifecycle phase of a VoteSession.
type VotePhase int

const (
	VoteIdle VotePhase = iota
	VoteCollecting
	VoteTallying
	VoteClosed
)

func (p VotePhase) String() string {
	switch p {
	case VoteIdle:
		return "idle"
	case VoteCollecting:
		return "collecting"
	case VoteTallying:
		return "tallying"
	case VoteClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// VoteResult is the outcome of a tally.
type VoteResult struct {
	Winner string
	Votes  int            // votes for the winner
	Total  int            // ballots cast
	Counts map[string]int // per-candidate tally, zero entries included
}

// VoteSession is a single-instance vote state machine:
// Idle → Collecting → Tallying → Closed → Idle. Not safe for concurrent
// use; the engine loop owns it and serializes every call.
type VoteSession struct {
	phase      VotePhase
	candidates []string // insertion order, deduplicated
	index      map[string]int
	ballots    map[int64]string // voter id → genre, last write wins
	openedAt   time.Time
	deadline   time.Time
	cooldownTo time.Time
}

func NewVoteSession() *VoteSession {
	return &VoteSession{phase: VoteIdle}
}

func (v *VoteSession) Phase() VotePhase     { return v.phase }
func (v *VoteSession) Deadline() time.Time  { return v.deadline }
func (v *VoteSession) Candidates() []string { return append([]string(nil), v.candidates...) }

func (v *VoteSession) ballotCount() int { return len(v.ballots) }

// Counts returns the current per-candidate tally. Valid in any phase;
// empty outside an open session.
func (v *VoteSession) Counts() map[string]int {
	out := make(map[string]int, len(v.candidates))
	for _, c := range v.candidates {
		out[c] = 0
	}
	for _, g := range v.ballots {
		out[g]++
	}
	return out
}

// settle completes the Closed → Idle transition once the post-close
// cooldown has passed. A no-op in every other phase.
func (v *VoteSession) settle(now time.Time) {
	if v.phase == VoteClosed && !now.Before(v.cooldownTo) {
		v.phase = VoteIdle
	}
}

// Open moves Idle → Collecting, seeding the candidate set from seed in
// order, dropping blanks and duplicates. An empty effective seed is
// ErrConfig. A session still open, tallying, or closed with its cooldown
// window still running is ErrInvalidState.
func (v *VoteSession) Open(seed []string, now time.Time, duration time.Duration) error {
	v.settle(now)
	if v.phase == VoteCollecting || v.phase == VoteTallying {
		return fmt.Errorf("%w: vote already open", ErrInvalidState)
	}
	if v.phase == VoteClosed {
		return fmt.Errorf("%w: vote just closed, in cooldown until %s",
			ErrInvalidState, v.cooldownTo.Format("15:04:05"))
	}
	cands := make([]string, 0, len(seed))
	index := make(map[string]int, len(seed))
	for _, g := range seed {
		g = normTag(g)
		if g == "" {
			continue
		}
		if _, dup := index[g]; dup {
			continue
		}
		index[g] = len(cands)
		cands = append(cands, g)
	}
	if len(cands) == 0 {
		return fmt.Errorf("%w: empty vote candidate set", ErrConfig)
	}
	v.phase = VoteCollecting
	v.candidates = cands
	v.index = index
	v.ballots = make(map[int64]string)
	v.openedAt = now
	v.deadline = now.Add(duration)
	return nil
}

// Cast records voter's choice while Collecting. A repeat vote overwrites
// the previous one. Genres outside the candidate set, and votes outside
// Collecting, are ErrInvalidState and leave the session untouched.
func (v *VoteSession) Cast(voter int64, genre string) error {
	if v.phase != VoteCollecting {
		return fmt.Errorf("%w: no vote in progress", ErrInvalidState)
	}
	genre = normTag(genre)
	if _, ok := v.index[genre]; !ok {
		return fmt.Errorf("%w: %q is not on the ballot", ErrInvalidState, genre)
	}
	v.ballots[voter] = genre
	return nil
}

// Expired reports whether a Collecting session has passed its deadline.
func (v *VoteSession) Expired(now time.Time) bool {
	return v.phase == VoteCollecting && !now.Before(v.deadline)
}

// Close tallies and moves Collecting → Tallying → Closed in one step, then
// arms the cooldown window. Winner is the candidate with the strictly
// highest count; ties go to the candidate proposed earliest. With zero
// ballots the result carries Winner == "" (callers keep the current genre).
func (v *VoteSession) Close(now time.Time, cooldown time.Duration) (VoteResult, error) {
	if v.phase != VoteCollecting {
		return VoteResult{}, fmt.Errorf("%w: no vote in progress", ErrInvalidState)
	}
	v.phase = VoteTallying

	counts := v.Counts()
	res := VoteResult{Total: len(v.ballots), Counts: counts}
	if res.Total > 0 {
		best := -1
		for _, c := range v.candidates {
			if counts[c] > best {
				best = counts[c]
				res.Winner = c
				res.Votes = best
			}
		}
	}

	v.phase = VoteClosed
	v.cooldownTo = now.Add(cooldown)
	v.ballots = nil
	v.index = nil
	v.candidates = nil
	return res, nil
}
