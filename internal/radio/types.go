package radio

import (
	"context"
	"time"
)

// Candidate is one playable track as reported by a source.
type Candidate struct {
	Source    string        // source that produced it ("youtube", "spotify", ...)
	ID        string        // source-local track ID
	Title     string
	Artist    string
	URL       string
	Duration  time.Duration // zero when the source does not report one
	Tag       string        // the tag it was resolved for
	FetchedAt time.Time     // when the source returned it; cache hits keep the original stamp
}

// Fingerprint identifies a track across cycles for repetition checks.
// Two candidates with the same fingerprint are the same track even when
// titles were formatted differently.
type Fingerprint struct {
	Source string
	ID     string
}

func (c Candidate) Fingerprint() Fingerprint {
	return Fingerprint{Source: c.Source, ID: c.ID}
}

// Source is a music search backend. Search returns candidates for a tag,
// best match first. Implementations must honor ctx cancellation and map
// their failures onto ErrNoResults / ErrUnavailable.
type Source interface {
	Name() string
	Search(ctx context.Context, tag string, limit int) ([]Candidate, error)
}

// Sink receives engine output. Implementations must not block: they enqueue
// and return, the engine loop calls them inline.
type Sink interface {
	DeliverTrack(c Candidate)
	AnnounceVoteOpen(candidates []string, closesAt time.Time)
	AnnounceGenreChange(genre string, votes int)
}

// SearchCache stores raw source results keyed by (source, tag) so repeated
// resolutions within the TTL skip the network. A nil cache is valid and
// means no caching.
type SearchCache interface {
	Get(ctx context.Context, source, tag string) ([]Candidate, bool)
	Put(ctx context.Context, source, tag string, cands []Candidate) error
}

// Status is a point-in-time snapshot of the engine, safe to format outside
// the loop goroutine.
type Status struct {
	Running      bool
	Genre        string
	SourceOrder  []string
	NextDispatch time.Time
	LastTrack    *Candidate
	Vote         *VoteStatus
	HistorySize  int
}

// VoteStatus describes an open vote inside a Status snapshot.
type VoteStatus struct {
	Candidates []string
	Counts     map[string]int
	ClosesAt   time.Time
}
