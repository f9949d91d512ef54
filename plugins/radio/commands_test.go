package radio

import (
	"context"
	"errors"
	"testing"

	"grooveradio/internal/core"
	"grooveradio/internal/kit"
)

type fakeAdapter struct {
	sent    []string
	edits   []kit.MessageRef
	editErr error
	nextID  int
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.sent = append(f.sent, text)
	f.nextID++
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: f.nextID}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, ref)
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func TestStatusPanelEditsInPlace(t *testing.T) {
	p := New()
	ad := &fakeAdapter{}
	req := &core.Request{Chat: kit.ChatTarget{ChatID: 42}, Adapter: ad}
	ctx := context.Background()

	if err := p.postStatusPanel(ctx, req, "first"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(ad.sent) != 1 || len(ad.edits) != 0 {
		t.Fatalf("first status must post a message: sent=%d edits=%d", len(ad.sent), len(ad.edits))
	}

	if err := p.postStatusPanel(ctx, req, "second"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(ad.sent) != 1 || len(ad.edits) != 1 {
		t.Fatalf("second status must edit the panel: sent=%d edits=%d", len(ad.sent), len(ad.edits))
	}
	if ad.edits[0].MessageID != 1 || ad.edits[0].ChatID != 42 {
		t.Fatalf("edited the wrong message: %+v", ad.edits[0])
	}
}

func TestStatusPanelRepostsWhenEditFails(t *testing.T) {
	p := New()
	ad := &fakeAdapter{}
	req := &core.Request{Chat: kit.ChatTarget{ChatID: 42}, Adapter: ad}
	ctx := context.Background()

	if err := p.postStatusPanel(ctx, req, "first"); err != nil {
		t.Fatalf("post: %v", err)
	}

	// panel message was deleted in the chat
	ad.editErr = errors.New("message to edit not found")
	if err := p.postStatusPanel(ctx, req, "second"); err != nil {
		t.Fatalf("post after failed edit: %v", err)
	}
	if len(ad.sent) != 2 {
		t.Fatalf("failed edit must fall back to a fresh message: sent=%d", len(ad.sent))
	}

	// the fresh message becomes the new panel
	ad.editErr = nil
	if err := p.postStatusPanel(ctx, req, "third"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(ad.edits) != 1 || ad.edits[0].MessageID != 2 {
		t.Fatalf("expected edit of the reposted panel: %+v", ad.edits)
	}
}

func TestStatusPanelPerChat(t *testing.T) {
	p := New()
	ad := &fakeAdapter{}
	ctx := context.Background()

	reqA := &core.Request{Chat: kit.ChatTarget{ChatID: 1}, Adapter: ad}
	reqB := &core.Request{Chat: kit.ChatTarget{ChatID: 2}, Adapter: ad}

	if err := p.postStatusPanel(ctx, reqA, "a"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := p.postStatusPanel(ctx, reqB, "b"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(ad.sent) != 2 || len(ad.edits) != 0 {
		t.Fatalf("a different chat must get its own message: sent=%d edits=%d", len(ad.sent), len(ad.edits))
	}
}

func TestPickCount(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 5},
		{"3", 3},
		{"1", 1},
		{"9", 5},
		{"0", 5},
		{"-2", 5},
		{"many", 5},
	}
	for _, c := range cases {
		if got := pickCount(c.raw); got != c.want {
			t.Errorf("pickCount(%q) = %d, want %d", c.raw, got, c.want)
		}
	}
}
