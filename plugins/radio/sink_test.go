package radio

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"grooveradio/internal/kit"
	"grooveradio/internal/radio"
)

type captureNotifier struct {
	sent []kit.Notification
}

func (c *captureNotifier) Notify(_ context.Context, n kit.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func newTestSink() (*notifySink, *captureNotifier) {
	n := &captureNotifier{}
	return &notifySink{
		notifier: n,
		chat:     kit.ChatTarget{ChatID: -100123, ThreadID: 7},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, n
}

func TestSinkDeliverTrack(t *testing.T) {
	s, n := newTestSink()
	s.DeliverTrack(radio.Candidate{Title: "Take Five", Artist: "Dave Brubeck"})

	if len(n.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.sent))
	}
	got := n.sent[0]
	if got.Target != (kit.ChatTarget{ChatID: -100123, ThreadID: 7}) {
		t.Fatalf("wrong target: %+v", got.Target)
	}
	if !strings.Contains(got.Text, "Take Five") {
		t.Fatalf("unexpected text: %q", got.Text)
	}
}

func TestSinkVoteKeyboard(t *testing.T) {
	s, n := newTestSink()
	s.AnnounceVoteOpen([]string{"rock", "jazz", "lofi"}, time.Now().Add(5*time.Minute))

	if len(n.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.sent))
	}
	opt := n.sent[0].Options
	if opt == nil {
		t.Fatalf("vote announcement must carry a keyboard")
	}
	markup, ok := opt.ReplyMarkupAdapter.(*tele.ReplyMarkup)
	if !ok {
		t.Fatalf("unexpected markup type %T", opt.ReplyMarkupAdapter)
	}
	var buttons []tele.InlineButton
	for _, row := range markup.InlineKeyboard {
		buttons = append(buttons, row...)
	}
	if len(buttons) != 3 {
		t.Fatalf("expected one button per candidate, got %d", len(buttons))
	}
	if buttons[0].Data != "radio:vote:rock" || buttons[0].Text != "rock" {
		t.Fatalf("unexpected button: %+v", buttons[0])
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("expected buttons in rows of two, got %d rows", len(markup.InlineKeyboard))
	}
}

func TestSinkGenreChange(t *testing.T) {
	s, n := newTestSink()
	s.AnnounceGenreChange("jazz", 4)
	if len(n.sent) != 1 || !strings.Contains(n.sent[0].Text, "jazz") {
		t.Fatalf("unexpected announcement: %+v", n.sent)
	}
}
