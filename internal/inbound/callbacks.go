package inbound

import (
	"context"
	"errors"

	"boardbot/internal/engine"
	"boardbot/internal/store"
	"boardbot/internal/transport"
	"boardbot/pkg/logx"
	"boardbot/pkg/tgui"
)

// handleCallback routes an interactive button press. The originally
// delivered message is edited to a re-rendered posting card with the
// confirmation appended and its keyboard removed (editing an already
// edited message is harmless), and the callback is always acknowledged so
// the sender's pending indicator clears.
func (p *Processor) handleCallback(ctx context.Context, cb transport.Callback) {
	scope, action, postingID := tgui.Split(cb.Data)
	if scope != "resp" || postingID == "" {
		p.ack(ctx, cb.ID, "Unknown action.")
		return
	}
	act, ok := store.ParseAction(action)
	if !ok {
		p.ack(ctx, cb.ID, "Unknown action.")
		return
	}

	confirmation, err := p.eng.RecordResponse(ctx, cb.ChatID, postingID, act)
	if errors.Is(err, store.ErrNotFound) {
		p.ack(ctx, cb.ID, "That posting is gone.")
		return
	}
	if err != nil {
		p.log.Error("response record failed",
			logx.Int64("chat_id", cb.ChatID),
			logx.String("posting_id", postingID),
			logx.Err(err))
		p.ack(ctx, cb.ID, "Something went wrong, please try again.")
		return
	}

	posting, err := p.st.GetPosting(ctx, postingID)
	if err == nil {
		ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
		p.appendConfirmation(ctx, ref, *posting, confirmation)
	}
	p.ack(ctx, cb.ID, confirmation)
}

// appendConfirmation edits the source message: re-renders the posting card,
// appends the confirmation line, and sends no choices so the keyboard drops.
func (p *Processor) appendConfirmation(ctx context.Context, ref transport.MessageRef, posting store.Posting, confirmation string) {
	text := engine.PostingCard(posting) + "\n\n" + tgui.Esc(confirmation)
	opt := &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}
	if err := p.ch.EditText(ctx, ref, text, opt); err != nil {
		// Editing twice (or a deleted message) is non-fatal.
		p.log.Debug("confirmation edit failed", logx.Int64("chat_id", ref.ChatID), logx.Err(err))
	}
}

func (p *Processor) ack(ctx context.Context, callbackID, text string) {
	if err := p.ch.AnswerCallback(ctx, callbackID, text); err != nil {
		p.log.Debug("callback ack failed", logx.Err(err))
	}
}
