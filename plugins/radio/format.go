package radio

import (
	"fmt"
	"strings"
	"time"

	"grooveradio/internal/radio"
)

func formatTrack(c radio.Candidate) string {
	var b strings.Builder
	b.WriteString("🎵 ")
	if c.Artist != "" {
		b.WriteString(c.Artist)
		b.WriteString(" — ")
	}
	b.WriteString(c.Title)
	if c.Duration > 0 {
		fmt.Fprintf(&b, " (%s)", fmtDuration(c.Duration))
	}
	if c.URL != "" {
		b.WriteString("\n")
		b.WriteString(c.URL)
	}
	return b.String()
}

func formatVoteOpen(candidates []string, closesAt time.Time) string {
	return fmt.Sprintf("🗳 genre vote is open: %s\ncloses at %s",
		strings.Join(candidates, " / "), closesAt.Format("15:04"))
}

func formatGenreChange(genre string, votes int) string {
	return fmt.Sprintf("🎶 the people have spoken: %s (%d votes)", genre, votes)
}

func formatStatus(st radio.Status, nextVote time.Time, verbose bool) string {
	var b strings.Builder
	if st.Running {
		b.WriteString("radio: on")
	} else {
		b.WriteString("radio: off")
	}
	fmt.Fprintf(&b, "\ngenre: %s", st.Genre)
	fmt.Fprintf(&b, "\nsources: %s", strings.Join(st.SourceOrder, " → "))
	if st.Running && !st.NextDispatch.IsZero() {
		fmt.Fprintf(&b, "\nnext track: %s", st.NextDispatch.Format("15:04:05"))
	}
	if st.LastTrack != nil {
		fmt.Fprintf(&b, "\nlast: %s", st.LastTrack.Title)
		if verbose {
			fmt.Fprintf(&b, " [%s]", st.LastTrack.Source)
			if !st.LastTrack.FetchedAt.IsZero() {
				fmt.Fprintf(&b, " fetched %s", st.LastTrack.FetchedAt.Format("15:04:05"))
			}
			if st.LastTrack.URL != "" {
				fmt.Fprintf(&b, "\n%s", st.LastTrack.URL)
			}
		}
	}
	fmt.Fprintf(&b, "\nhistory: %d tracks", st.HistorySize)
	switch {
	case st.Vote != nil:
		fmt.Fprintf(&b, "\nvote open until %s:", st.Vote.ClosesAt.Format("15:04"))
		for _, g := range st.Vote.Candidates {
			fmt.Fprintf(&b, " %s=%d", g, st.Vote.Counts[g])
		}
	case !nextVote.IsZero():
		fmt.Fprintf(&b, "\nnext vote: %s", nextVote.Format("15:04"))
	}
	return b.String()
}

func formatSearchResults(query string, cands []radio.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "results for “%s”:", query)
	max := len(cands)
	if max > 5 {
		max = 5
	}
	for i := 0; i < max; i++ {
		c := cands[i]
		fmt.Fprintf(&b, "\n%d. ", i+1)
		if c.Artist != "" {
			b.WriteString(c.Artist)
			b.WriteString(" — ")
		}
		b.WriteString(c.Title)
		if c.Duration > 0 {
			fmt.Fprintf(&b, " (%s)", fmtDuration(c.Duration))
		}
		fmt.Fprintf(&b, " [%s]", c.Source)
		if c.URL != "" {
			b.WriteString("\n   ")
			b.WriteString(c.URL)
		}
	}
	return b.String()
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
