package sources

import (
	"context"
	"fmt"
	"time"

	libspotify "github.com/zmb3/spotify"
	"golang.org/x/oauth2/clientcredentials"

	"grooveradio/internal/radio"
)

// searcher is the slice of the spotify client this adapter uses, kept as an
// interface so tests can substitute the concrete client.
type searcher interface {
	SearchOpt(query string, t libspotify.SearchType, opt *libspotify.Options) (*libspotify.SearchResult, error)
}

// Spotify searches the Spotify catalog through the client credentials
// flow: application token only, no user login.
type Spotify struct {
	client searcher
}

var _ radio.Source = (*Spotify)(nil)

// NewSpotify authenticates with the client credentials flow. The token is
// fetched eagerly so a bad credential pair fails at startup.
func NewSpotify(ctx context.Context, clientID, clientSecret string) (*Spotify, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     libspotify.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: spotify auth: %v", radio.ErrUnavailable, err)
	}
	c := libspotify.Authenticator{}.NewClient(token)
	return &Spotify{client: &c}, nil
}

func (s *Spotify) Name() string { return "spotify" }

// Search implements radio.Source. The wrapped library takes no context, so
// cancellation is checked before the call.
func (s *Spotify) Search(ctx context.Context, tag string, limit int) ([]radio.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := s.client.SearchOpt(tag, libspotify.SearchTypeTrack, &libspotify.Options{Limit: &limit})
	if err != nil {
		return nil, fmt.Errorf("%w: spotify: %v", radio.ErrUnavailable, err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, fmt.Errorf("%w: spotify: %q", radio.ErrNoResults, tag)
	}

	cands := make([]radio.Candidate, 0, len(results.Tracks.Tracks))
	for _, t := range results.Tracks.Tracks {
		artist := ""
		if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
		cands = append(cands, radio.Candidate{
			Source:   s.Name(),
			ID:       string(t.ID),
			Title:    t.Name,
			Artist:   artist,
			URL:      t.ExternalURLs["spotify"],
			Duration: time.Duration(t.Duration) * time.Millisecond,
		})
	}
	return cands, nil
}
