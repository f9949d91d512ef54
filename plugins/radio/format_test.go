package radio

import (
	"strings"
	"testing"
	"time"

	"grooveradio/internal/radio"
)

func TestFormatTrack(t *testing.T) {
	got := formatTrack(radio.Candidate{
		Title:    "Take Five",
		Artist:   "Dave Brubeck",
		URL:      "https://example.com/t/1",
		Duration: 5*time.Minute + 24*time.Second,
	})
	for _, want := range []string{"Dave Brubeck — Take Five", "(5:24)", "https://example.com/t/1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}

	bare := formatTrack(radio.Candidate{Title: "Untitled"})
	if strings.Contains(bare, "—") || strings.Contains(bare, "(") {
		t.Fatalf("bare track should omit artist and duration: %q", bare)
	}
}

func TestFormatStatus(t *testing.T) {
	last := radio.Candidate{Title: "Lofi Mix"}
	st := radio.Status{
		Running:      true,
		Genre:        "lofi",
		SourceOrder:  []string{"youtube", "deezer"},
		NextDispatch: time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
		LastTrack:    &last,
		HistorySize:  7,
		Vote: &radio.VoteStatus{
			Candidates: []string{"rock", "jazz"},
			Counts:     map[string]int{"rock": 2, "jazz": 1},
			ClosesAt:   time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
		},
	}
	got := formatStatus(st, time.Time{}, false)
	for _, want := range []string{
		"radio: on",
		"genre: lofi",
		"youtube → deezer",
		"18:30:00",
		"last: Lofi Mix",
		"history: 7 tracks",
		"rock=2 jazz=1",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}

	off := formatStatus(radio.Status{Genre: "lofi", SourceOrder: []string{"youtube"}}, time.Time{}, false)
	if !strings.Contains(off, "radio: off") || strings.Contains(off, "next track") {
		t.Fatalf("unexpected off status:\n%s", off)
	}
}

func TestFormatStatusNextVote(t *testing.T) {
	st := radio.Status{Genre: "lofi", SourceOrder: []string{"youtube"}}
	nextVote := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	got := formatStatus(st, nextVote, false)
	if !strings.Contains(got, "next vote: 18:00") {
		t.Fatalf("missing next vote time in:\n%s", got)
	}

	// an open vote supersedes the schedule line
	st.Vote = &radio.VoteStatus{
		Candidates: []string{"rock"},
		Counts:     map[string]int{"rock": 0},
		ClosesAt:   time.Date(2026, 3, 1, 17, 45, 0, 0, time.UTC),
	}
	got = formatStatus(st, nextVote, false)
	if strings.Contains(got, "next vote:") || !strings.Contains(got, "vote open until 17:45") {
		t.Fatalf("open vote must replace the schedule line:\n%s", got)
	}
}

func TestFormatStatusVerbose(t *testing.T) {
	last := radio.Candidate{
		Title:     "Lofi Mix",
		Source:    "deezer",
		URL:       "https://example.com/t/9",
		FetchedAt: time.Date(2026, 3, 1, 18, 29, 30, 0, time.UTC),
	}
	st := radio.Status{Genre: "lofi", SourceOrder: []string{"deezer"}, LastTrack: &last}

	plain := formatStatus(st, time.Time{}, false)
	if strings.Contains(plain, "example.com") || strings.Contains(plain, "[deezer]") {
		t.Fatalf("plain status must stay compact:\n%s", plain)
	}

	verbose := formatStatus(st, time.Time{}, true)
	for _, want := range []string{"[deezer]", "fetched 18:29:30", "https://example.com/t/9"} {
		if !strings.Contains(verbose, want) {
			t.Fatalf("missing %q in:\n%s", want, verbose)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "0:42"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, c := range cases {
		if got := fmtDuration(c.in); got != c.want {
			t.Errorf("fmtDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
