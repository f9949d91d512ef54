package radio

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"grooveradio/internal/core"
	"grooveradio/internal/kit"
	"grooveradio/internal/radio"
)

// notifySink forwards engine output into the broadcast chat through the
// shared notifier. Every method only enqueues, so the engine loop is never
// blocked on Telegram.
type notifySink struct {
	notifier core.NotifierPort
	chat     kit.ChatTarget
	log      *slog.Logger
}

var _ radio.Sink = (*notifySink)(nil)

func (s *notifySink) DeliverTrack(c radio.Candidate) {
	s.enqueue(kit.Notification{
		Priority: 5,
		Target:   s.chat,
		Text:     formatTrack(c),
		Options:  &kit.SendOptions{DisablePreview: false},
	})
}

func (s *notifySink) AnnounceVoteOpen(candidates []string, closesAt time.Time) {
	markup := &tele.ReplyMarkup{}
	rows := make([][]tele.InlineButton, 0, (len(candidates)+1)/2)
	row := []tele.InlineButton{}
	for _, g := range candidates {
		row = append(row, tele.InlineButton{Text: g, Data: "radio:vote:" + g})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	markup.InlineKeyboard = rows

	s.enqueue(kit.Notification{
		Priority: 8,
		Target:   s.chat,
		Text:     formatVoteOpen(candidates, closesAt),
		Options:  &kit.SendOptions{ReplyMarkupAdapter: markup, DisablePreview: true},
	})
}

func (s *notifySink) AnnounceGenreChange(genre string, votes int) {
	s.enqueue(kit.Notification{
		Priority: 8,
		Target:   s.chat,
		Text:     formatGenreChange(genre, votes),
	})
}

func (s *notifySink) enqueue(n kit.Notification) {
	if err := s.notifier.Notify(context.Background(), n); err != nil {
		s.log.Warn("radio announcement dropped", "error", err)
	}
}
