package radio

import (
	"context"
	"errors"
	"strings"

	"grooveradio/internal/core"
	"grooveradio/internal/radio"
)

func (p *Plugin) Callbacks() []core.CallbackRoute {
	return []core.CallbackRoute{
		{
			Action:      "vote",
			Description: "cast a ballot from the vote keyboard",
			Handle:      p.cbVote,
		},
		{
			Action:      "play",
			Description: "post a picked search result to the radio chat",
			Handle:      p.cbPlay,
		},
	}
}

func (p *Plugin) cbPlay(ctx context.Context, req *core.Request, payload string) error {
	cb := req.Update.Callback
	c, ok := p.lookupPick(strings.TrimSpace(payload))
	if !ok {
		if cb == nil {
			return nil
		}
		return req.Adapter.AnswerCallback(ctx, cb.ID, "that search expired, run /play again")
	}
	p.sink.DeliverTrack(c)
	if cb == nil {
		return nil
	}
	return req.Adapter.AnswerCallback(ctx, cb.ID, "queued: "+c.Title)
}

func (p *Plugin) cbVote(ctx context.Context, req *core.Request, payload string) error {
	genre := strings.TrimSpace(payload)
	if genre == "" {
		return nil
	}
	err := p.engine.CastVote(req.FromID, genre)
	cb := req.Update.Callback
	if cb == nil {
		return err
	}
	switch {
	case err == nil:
		return req.Adapter.AnswerCallback(ctx, cb.ID, "voted: "+genre)
	case errors.Is(err, radio.ErrInvalidState):
		return req.Adapter.AnswerCallback(ctx, cb.ID, strings.TrimPrefix(err.Error(), "radio: "))
	default:
		return err
	}
}
