package radio

import (
	"errors"
	"testing"
	"time"
)

func openVote(t *testing.T, seed []string) (*VoteSession, time.Time) {
	t.Helper()
	v := NewVoteSession()
	now := time.Now()
	if err := v.Open(seed, now, 5*time.Minute); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return v, now
}

func TestVoteLifecycle(t *testing.T) {
	v, now := openVote(t, []string{"rock", "jazz"})
	if v.Phase() != VoteCollecting {
		t.Fatalf("expected collecting, got %s", v.Phase())
	}
	if err := v.Cast(1, "rock"); err != nil {
		t.Fatalf("Cast: %v", err)
	}
	res, err := v.Close(now.Add(time.Minute), time.Minute)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if res.Winner != "rock" || res.Votes != 1 || res.Total != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if v.Phase() != VoteClosed {
		t.Fatalf("expected closed, got %s", v.Phase())
	}
}

func TestVoteTieBreakIsInsertionOrder(t *testing.T) {
	v, now := openVote(t, []string{"rock", "jazz"})
	// three ballots each
	for i := int64(1); i <= 3; i++ {
		if err := v.Cast(i, "rock"); err != nil {
			t.Fatalf("Cast rock: %v", err)
		}
		if err := v.Cast(i+10, "jazz"); err != nil {
			t.Fatalf("Cast jazz: %v", err)
		}
	}
	res, err := v.Close(now, 0)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if res.Winner != "rock" {
		t.Fatalf("tie must go to the earliest candidate, got %q", res.Winner)
	}
	if res.Counts["rock"] != 3 || res.Counts["jazz"] != 3 {
		t.Fatalf("unexpected counts: %v", res.Counts)
	}
}

func TestVoteLastWriteWins(t *testing.T) {
	v, now := openVote(t, []string{"rock", "jazz"})
	if err := v.Cast(7, "rock"); err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if err := v.Cast(7, "jazz"); err != nil {
		t.Fatalf("re-Cast: %v", err)
	}
	res, _ := v.Close(now, 0)
	if res.Total != 1 {
		t.Fatalf("repeat vote must not double count, total=%d", res.Total)
	}
	if res.Winner != "jazz" {
		t.Fatalf("last write must win, got %q", res.Winner)
	}
}

func TestVoteRejectsOutOfSetAndLate(t *testing.T) {
	v, now := openVote(t, []string{"rock"})
	if err := v.Cast(1, "polka"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for out-of-set vote, got %v", err)
	}
	if v.ballotCount() != 0 {
		t.Fatalf("rejected vote must not touch the session")
	}
	if _, err := v.Close(now, 0); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := v.Cast(1, "rock"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after close, got %v", err)
	}
}

func TestVoteZeroBallots(t *testing.T) {
	v, now := openVote(t, []string{"rock", "jazz"})
	res, err := v.Close(now, 0)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if res.Winner != "" || res.Total != 0 {
		t.Fatalf("zero ballots must yield no winner: %+v", res)
	}
}

func TestVoteCooldownBlocksReopen(t *testing.T) {
	v, now := openVote(t, []string{"rock"})
	if _, err := v.Close(now, time.Minute); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := v.Open([]string{"rock"}, now.Add(10*time.Second), time.Minute)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected cooldown rejection, got %v", err)
	}
	if err := v.Open([]string{"rock"}, now.Add(2*time.Minute), time.Minute); err != nil {
		t.Fatalf("reopen after cooldown: %v", err)
	}
}

func TestVoteClosedSettlesToIdle(t *testing.T) {
	v, now := openVote(t, []string{"rock"})
	if _, err := v.Close(now, time.Minute); err != nil {
		t.Fatalf("Close: %v", err)
	}

	v.settle(now.Add(30 * time.Second))
	if v.Phase() != VoteClosed {
		t.Fatalf("cooldown still running, expected closed, got %s", v.Phase())
	}

	v.settle(now.Add(time.Minute))
	if v.Phase() != VoteIdle {
		t.Fatalf("expected idle after cooldown, got %s", v.Phase())
	}
	if err := v.Open([]string{"jazz"}, now.Add(time.Minute), time.Minute); err != nil {
		t.Fatalf("Open from idle: %v", err)
	}
}

func TestVoteOpenWhileOpen(t *testing.T) {
	v, _ := openVote(t, []string{"rock"})
	err := v.Open([]string{"jazz"}, time.Now(), time.Minute)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestVoteEmptySeedIsConfigError(t *testing.T) {
	v := NewVoteSession()
	err := v.Open([]string{"", "  "}, time.Now(), time.Minute)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestVoteSeedDeduplicated(t *testing.T) {
	v, _ := openVote(t, []string{"Rock", "rock", "jazz"})
	got := v.Candidates()
	if len(got) != 2 || got[0] != "rock" || got[1] != "jazz" {
		t.Fatalf("unexpected candidate set: %v", got)
	}
}

func TestVoteExpired(t *testing.T) {
	v, now := openVote(t, []string{"rock"})
	if v.Expired(now.Add(time.Minute)) {
		t.Fatalf("should not be expired before the deadline")
	}
	if !v.Expired(now.Add(5 * time.Minute)) {
		t.Fatalf("should be expired at the deadline")
	}
}
