package radio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"grooveradio/internal/core"
	"grooveradio/internal/kit"
	"grooveradio/internal/radio"
)

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Route:       "radio on",
			Description: "start the broadcast",
			Usage:       "/radio on",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdOn,
		},
		{
			Route:       "radio off",
			Description: "stop the broadcast",
			Usage:       "/radio off",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdOff,
		},
		{
			Route:       "radio skip",
			Aliases:     []string{"skip"},
			Description: "skip to the next track now",
			Usage:       "/radio skip",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdSkip,
		},
		{
			Route:       "radio source",
			Description: "reorder the source chain",
			Usage:       "/radio source <name> [name...]",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdSource,
		},
		{
			Route:       "radio status",
			Description: "show broadcast status",
			Usage:       "/radio status [-v]",
			Access:      core.AccessEveryone,
			Handle:      p.cmdStatus,
		},
		{
			Route:       "vote",
			Description: "open a genre vote",
			Usage:       "/vote",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdVote,
		},
		{
			Route:       "vote close",
			Description: "close the vote and tally now",
			Usage:       "/vote close",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdVoteClose,
		},
		{
			Route:       "play",
			Description: "search for a track by name",
			Usage:       "/play <query> [-n <1..5>]",
			Access:      core.AccessEveryone,
			Timeout:     45 * time.Second,
			Handle:      p.cmdPlay,
		},
	}
}

func (p *Plugin) reply(ctx context.Context, req *core.Request, text string, opt *kit.SendOptions) error {
	_, err := req.Adapter.SendText(ctx, req.Chat, text, opt)
	return err
}

// replyErr turns engine errors into short chat answers; rejected commands
// are user feedback, not failures.
func (p *Plugin) replyErr(ctx context.Context, req *core.Request, err error) error {
	if errors.Is(err, radio.ErrInvalidState) {
		return p.reply(ctx, req, strings.TrimPrefix(err.Error(), "radio: "), nil)
	}
	return err
}

func (p *Plugin) cmdOn(ctx context.Context, req *core.Request) error {
	if err := p.engine.StartBroadcast(); err != nil {
		return p.replyErr(ctx, req, err)
	}
	return p.reply(ctx, req, "radio is on 📻", nil)
}

func (p *Plugin) cmdOff(ctx context.Context, req *core.Request) error {
	if err := p.engine.StopBroadcast(); err != nil {
		return p.replyErr(ctx, req, err)
	}
	return p.reply(ctx, req, "radio is off", nil)
}

func (p *Plugin) cmdSkip(ctx context.Context, req *core.Request) error {
	if err := p.engine.Skip(); err != nil {
		return p.replyErr(ctx, req, err)
	}
	return p.reply(ctx, req, "skipping…", nil)
}

func (p *Plugin) cmdSource(ctx context.Context, req *core.Request) error {
	if len(req.Args) == 0 {
		st, err := p.engine.Status()
		if err != nil {
			return err
		}
		return p.reply(ctx, req, "source order: "+strings.Join(st.SourceOrder, " → "), nil)
	}
	if err := p.engine.SetSourceOrder(req.Args); err != nil {
		return p.replyErr(ctx, req, err)
	}
	return p.reply(ctx, req, "source order updated: "+strings.Join(req.Args, " → "), nil)
}

func (p *Plugin) cmdStatus(ctx context.Context, req *core.Request) error {
	st, err := p.engine.Status()
	if err != nil {
		return p.replyErr(ctx, req, err)
	}
	nextVote := req.Services.Scheduler.Next(voteJobName)
	text := formatStatus(st, nextVote, req.BoolFlags["v"])
	return p.postStatusPanel(ctx, req, text)
}

// postStatusPanel keeps one live status message per chat: when the previous
// panel is still known it is edited in place, otherwise a fresh message is
// posted and remembered.
func (p *Plugin) postStatusPanel(ctx context.Context, req *core.Request, text string) error {
	opt := &kit.SendOptions{DisablePreview: true}

	p.panelMu.Lock()
	ref := p.panel
	p.panelMu.Unlock()

	if ref.MessageID != 0 && ref.ChatID == req.Chat.ChatID {
		if err := req.Adapter.EditText(ctx, ref, text, opt); err == nil {
			return nil
		}
		// panel gone (deleted, or too old to edit): repost below
	}

	newRef, err := req.Adapter.SendText(ctx, req.Chat, text, opt)
	if err != nil {
		return err
	}
	p.panelMu.Lock()
	p.panel = newRef
	p.panelMu.Unlock()
	return nil
}

func (p *Plugin) cmdVote(ctx context.Context, req *core.Request) error {
	if err := p.engine.TriggerVote(true); err != nil {
		return p.replyErr(ctx, req, err)
	}
	// the ballot itself is announced through the sink
	return nil
}

func (p *Plugin) cmdVoteClose(ctx context.Context, req *core.Request) error {
	res, err := p.engine.CloseVote()
	if err != nil {
		return p.replyErr(ctx, req, err)
	}
	if res.Winner == "" {
		return p.reply(ctx, req, "vote closed, nobody voted. genre stays.", nil)
	}
	return nil // outcome is announced through the sink
}

func (p *Plugin) cmdPlay(ctx context.Context, req *core.Request) error {
	query := strings.TrimSpace(strings.Join(req.Args, " "))
	if query == "" {
		return p.reply(ctx, req, "usage: /play <query>", nil)
	}
	cands, err := p.engine.Search(ctx, query)
	if err != nil {
		if errors.Is(err, radio.ErrNoResults) {
			return p.reply(ctx, req, "nothing found for “"+query+"”", nil)
		}
		return err
	}
	if n := pickCount(req.Flags["n"]); len(cands) > n {
		cands = cands[:n]
	}
	p.rememberPicks(cands)
	return p.reply(ctx, req, formatSearchResults(query, cands), &kit.SendOptions{
		DisablePreview:     true,
		ReplyMarkupAdapter: pickKeyboard(cands),
	})
}

// pickCount caps how many /play results are shown: -n <count>, clamped to
// 1..5, default 5.
func pickCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 5
	}
	if n > 5 {
		return 5
	}
	return n
}

// pickKeyboard puts one numbered button per result; pressing it posts the
// track to the radio chat.
func pickKeyboard(cands []radio.Candidate) *tele.ReplyMarkup {
	row := make([]tele.InlineButton, 0, len(cands))
	for i, c := range cands {
		row = append(row, tele.InlineButton{
			Text: fmt.Sprintf("▶ %d", i+1),
			Data: "radio:play:" + pickKey(c),
		})
	}
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{row}}
}
