package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	libspotify "github.com/zmb3/spotify"

	"grooveradio/internal/radio"
)

type fakeSearcher struct {
	lastQuery string
	lastType  libspotify.SearchType
	lastLimit int
	result    *libspotify.SearchResult
	err       error
}

func (f *fakeSearcher) SearchOpt(query string, t libspotify.SearchType, opt *libspotify.Options) (*libspotify.SearchResult, error) {
	f.lastQuery = query
	f.lastType = t
	if opt != nil && opt.Limit != nil {
		f.lastLimit = *opt.Limit
	}
	return f.result, f.err
}

func TestSpotifySearch(t *testing.T) {
	track := libspotify.FullTrack{
		SimpleTrack: libspotify.SimpleTrack{
			ID:           "sp1",
			Name:         "Song",
			Duration:     210000,
			Artists:      []libspotify.SimpleArtist{{Name: "Artist"}},
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/sp1"},
		},
	}
	fs := &fakeSearcher{result: &libspotify.SearchResult{
		Tracks: &libspotify.FullTrackPage{Tracks: []libspotify.FullTrack{track}},
	}}
	s := &Spotify{client: fs}

	cands, err := s.Search(context.Background(), "lofi", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if fs.lastQuery != "lofi" || fs.lastType != libspotify.SearchTypeTrack || fs.lastLimit != 5 {
		t.Fatalf("unexpected call: q=%q type=%v limit=%d", fs.lastQuery, fs.lastType, fs.lastLimit)
	}
	c := cands[0]
	if c.Source != "spotify" || c.ID != "sp1" || c.Title != "Song" || c.Artist != "Artist" {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Duration != 3*time.Minute+30*time.Second {
		t.Fatalf("unexpected duration: %v", c.Duration)
	}
	if c.URL != "https://open.spotify.com/track/sp1" {
		t.Fatalf("unexpected URL: %q", c.URL)
	}
}

func TestSpotifySearchEmpty(t *testing.T) {
	s := &Spotify{client: &fakeSearcher{result: &libspotify.SearchResult{
		Tracks: &libspotify.FullTrackPage{},
	}}}
	if _, err := s.Search(context.Background(), "nothing", 5); !errors.Is(err, radio.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestSpotifySearchError(t *testing.T) {
	s := &Spotify{client: &fakeSearcher{err: errors.New("rate limited")}}
	if _, err := s.Search(context.Background(), "lofi", 5); !errors.Is(err, radio.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSpotifySearchHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &Spotify{client: &fakeSearcher{}}
	if _, err := s.Search(ctx, "lofi", 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
