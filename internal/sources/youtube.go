// Package sources implements the music search backends behind the radio
// resolver. Each adapter maps its provider's failures onto the resolver's
// error vocabulary: nothing found is radio.ErrNoResults, transport and
// quota problems are radio.ErrUnavailable, deadlines bubble up for the
// resolver to treat as a timeout.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"grooveradio/internal/radio"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTube searches the YouTube Data API. Durations come from a second
// videos.list call since the search endpoint does not return them.
type YouTube struct {
	APIKey  string
	BaseURL string       // overridable for tests; defaults to the Data API
	Client  *http.Client // defaults to http.DefaultClient
}

var _ radio.Source = (*YouTube)(nil)

func (y *YouTube) Name() string { return "youtube" }

func (y *YouTube) Search(ctx context.Context, tag string, limit int) ([]radio.Candidate, error) {
	params := url.Values{
		"part":            {"snippet"},
		"type":            {"video"},
		"videoCategoryId": {"10"}, // music
		"maxResults":      {strconv.Itoa(limit)},
		"q":               {tag},
		"key":             {y.APIKey},
	}
	var body struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := y.get(ctx, "/search", params, &body); err != nil {
		return nil, err
	}
	if len(body.Items) == 0 {
		return nil, fmt.Errorf("%w: youtube: %q", radio.ErrNoResults, tag)
	}

	cands := make([]radio.Candidate, 0, len(body.Items))
	ids := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ID.VideoID == "" {
			continue
		}
		ids = append(ids, item.ID.VideoID)
		cands = append(cands, radio.Candidate{
			Source: y.Name(),
			ID:     item.ID.VideoID,
			Title:  item.Snippet.Title,
			Artist: item.Snippet.ChannelTitle,
			URL:    "https://youtu.be/" + item.ID.VideoID,
		})
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: youtube: %q", radio.ErrNoResults, tag)
	}

	if durs, err := y.durations(ctx, ids); err == nil {
		for i := range cands {
			cands[i].Duration = durs[cands[i].ID]
		}
	}
	return cands, nil
}

// durations resolves video lengths via videos.list contentDetails. A
// failure here is not fatal: candidates simply carry a zero duration.
func (y *YouTube) durations(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	params := url.Values{
		"part": {"contentDetails"},
		"id":   {strings.Join(ids, ",")},
		"key":  {y.APIKey},
	}
	var body struct {
		Items []struct {
			ID             string `json:"id"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := y.get(ctx, "/videos", params, &body); err != nil {
		return nil, err
	}
	out := make(map[string]time.Duration, len(body.Items))
	for _, item := range body.Items {
		if d, err := parseISO8601Duration(item.ContentDetails.Duration); err == nil {
			out[item.ID] = d
		}
	}
	return out, nil
}

func (y *YouTube) get(ctx context.Context, path string, params url.Values, out any) error {
	base := y.BaseURL
	if base == "" {
		base = youtubeAPIBase
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: youtube: %v", radio.ErrUnavailable, err)
	}
	client := y.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: youtube: %v", radio.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: youtube: %s", radio.ErrUnavailable, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: youtube: decode: %v", radio.ErrUnavailable, err)
	}
	return nil
}

// parseISO8601Duration handles the PT#H#M#S form the Data API uses.
func parseISO8601Duration(s string) (time.Duration, error) {
	rest, ok := strings.CutPrefix(s, "PT")
	if !ok {
		return 0, fmt.Errorf("unsupported duration %q", s)
	}
	var total time.Duration
	num := ""
	for _, r := range rest {
		if r >= '0' && r <= '9' {
			num += string(r)
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, fmt.Errorf("bad duration %q", s)
		}
		switch r {
		case 'H':
			total += time.Duration(n) * time.Hour
		case 'M':
			total += time.Duration(n) * time.Minute
		case 'S':
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("bad duration %q", s)
		}
		num = ""
	}
	if num != "" {
		return 0, fmt.Errorf("bad duration %q", s)
	}
	return total, nil
}
