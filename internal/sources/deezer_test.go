package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grooveradio/internal/radio"
)

func TestDeezerSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "jazz" {
			t.Errorf("unexpected query %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "3" {
			t.Errorf("limit not forwarded: %q", got)
		}
		w.Write([]byte(`{"data":[
			{"id":1001,"title":"Take Five","link":"https://deezer.com/track/1001","duration":324,"artist":{"name":"Dave Brubeck"}},
			{"id":1002,"title":"So What","link":"https://deezer.com/track/1002","duration":545,"artist":{"name":"Miles Davis"}}
		]}`))
	}))
	defer srv.Close()

	d := &Deezer{BaseURL: srv.URL}
	cands, err := d.Search(context.Background(), "jazz", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	c := cands[0]
	if c.Source != "deezer" || c.ID != "1001" || c.Title != "Take Five" || c.Artist != "Dave Brubeck" {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Duration != 324*time.Second {
		t.Fatalf("unexpected duration: %v", c.Duration)
	}
}

func TestDeezerSearchEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	d := &Deezer{BaseURL: srv.URL}
	if _, err := d.Search(context.Background(), "nothing", 5); !errors.Is(err, radio.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestDeezerAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"quota limit exceeded"}}`))
	}))
	defer srv.Close()

	d := &Deezer{BaseURL: srv.URL}
	if _, err := d.Search(context.Background(), "jazz", 5); !errors.Is(err, radio.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDeezerContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	d := &Deezer{BaseURL: srv.URL}
	_, err := d.Search(ctx, "jazz", 5)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
