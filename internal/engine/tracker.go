package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardbot/internal/store"
)

// RecordResponse upserts a recipient's response to a posting and appends a
// button_click event. Safe to call twice with identical arguments: the
// response row is overwritten in place while the journal accumulates one
// event per call. Returns the confirmation text shown to the recipient.
func (e *Engine) RecordResponse(ctx context.Context, chatID int64, postingID string, action store.Action) (string, error) {
	p, err := e.st.GetPosting(ctx, postingID)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("record response: posting %s: %w", postingID, store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("record response: %w", err)
	}

	now := time.Now().UTC()
	err = e.st.UpsertResponse(ctx, store.Response{
		ChatID:      chatID,
		PostingID:   postingID,
		Action:      action,
		RespondedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("record response: %w", err)
	}

	var account string
	if rec, err := e.st.FindRecipientByChat(ctx, chatID); err == nil {
		account = rec.Email
	}
	err = e.st.AppendEvent(ctx, store.Event{
		Type:      store.EventButtonClick,
		ChatID:    chatID,
		Account:   account,
		PostingID: postingID,
		Action:    string(action),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("record response: %w", err)
	}

	e.obs.ResponseRecorded()
	return confirmation(action, p), nil
}

func confirmation(action store.Action, p *store.Posting) string {
	switch action {
	case store.ActionApplied:
		return "✅ Marked as applied to " + p.Org + ". Good luck!"
	case store.ActionNotInterested:
		return "👌 Got it — no more reminders for " + p.Title + "."
	case store.ActionRemind:
		return "⏰ Noted! I'll nudge you about " + p.Title + " again later."
	}
	return "Response recorded."
}
