package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"grooveradio/internal/radio"
)

const deezerAPIBase = "https://api.deezer.com"

// Deezer searches the public Deezer API. No credentials are required,
// which makes it a useful tail of the chain.
type Deezer struct {
	BaseURL string
	Client  *http.Client
}

var _ radio.Source = (*Deezer)(nil)

func (d *Deezer) Name() string { return "deezer" }

func (d *Deezer) Search(ctx context.Context, tag string, limit int) ([]radio.Candidate, error) {
	base := d.BaseURL
	if base == "" {
		base = deezerAPIBase
	}
	params := url.Values{
		"q":     {tag},
		"limit": {strconv.Itoa(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: deezer: %v", radio.ErrUnavailable, err)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: deezer: %v", radio.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: deezer: %s", radio.ErrUnavailable, resp.Status)
	}

	var body struct {
		Data []struct {
			ID       int64  `json:"id"`
			Title    string `json:"title"`
			Link     string `json:"link"`
			Duration int    `json:"duration"` // seconds
			Artist   struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: deezer: decode: %v", radio.ErrUnavailable, err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("%w: deezer: %s", radio.ErrUnavailable, body.Error.Message)
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("%w: deezer: %q", radio.ErrNoResults, tag)
	}

	cands := make([]radio.Candidate, 0, len(body.Data))
	for _, t := range body.Data {
		cands = append(cands, radio.Candidate{
			Source:   d.Name(),
			ID:       strconv.FormatInt(t.ID, 10),
			Title:    t.Title,
			Artist:   t.Artist.Name,
			URL:      t.Link,
			Duration: time.Duration(t.Duration) * time.Second,
		})
	}
	return cands, nil
}
