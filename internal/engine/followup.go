package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardbot/internal/dispatch"
	"boardbot/internal/store"
	"boardbot/pkg/logx"
)

// RunFollowUpScan re-sends a posting once to each recipient who answered
// "remind me later" at least FollowUpDelay ago. The follow-up is one-shot
// per (chat, posting): the existence of a reminder_sent event, not its age,
// makes the pair permanently ineligible here. Repeat reminders after this
// point are the cooldown-based ones from RunScan.
func (e *Engine) RunFollowUpScan(ctx context.Context, now time.Time) error {
	e.obs.ScanRan("followup_scan")

	pending, err := e.st.ListResponsesByAction(ctx, store.ActionRemind)
	if err != nil {
		return fmt.Errorf("follow-up scan: %w", err)
	}

	for _, r := range pending {
		if now.Sub(r.RespondedAt) < e.cfg.FollowUpDelay {
			continue
		}
		done, err := e.st.HasEvent(ctx, store.EventReminderSent, r.ChatID, r.PostingID)
		if err != nil {
			e.log.Error("follow-up gate check failed",
				logx.Int64("chat_id", r.ChatID), logx.String("posting_id", r.PostingID), logx.Err(err))
			continue
		}
		if done {
			continue
		}

		p, err := e.st.GetPosting(ctx, r.PostingID)
		if errors.Is(err, store.ErrNotFound) {
			// Posting expired between the response and now.
			continue
		}
		if err != nil {
			e.log.Error("follow-up posting lookup failed", logx.String("posting_id", r.PostingID), logx.Err(err))
			continue
		}
		if !p.Deadline.After(now) {
			continue
		}

		var account string
		if rec, err := e.st.FindRecipientByChat(ctx, r.ChatID); err == nil {
			account = rec.Email
		}

		res := e.dp.Deliver(ctx, []dispatch.Item{{
			To:        chatTarget(r.ChatID),
			Text:      formatFollowUp(*p, now),
			Options:   choiceOptions(p.ID),
			PostingID: p.ID,
			Account:   account,
			Reminder:  true,
		}})
		if res.Sent != 1 {
			// Delivery failed; leave the pair eligible for the next scan.
			continue
		}

		err = e.st.AppendEvent(ctx, store.Event{
			Type:      store.EventReminderSent,
			ChatID:    r.ChatID,
			Account:   account,
			PostingID: p.ID,
			CreatedAt: now,
		})
		if err != nil {
			e.log.Error("reminder_sent event append failed",
				logx.Int64("chat_id", r.ChatID), logx.String("posting_id", p.ID), logx.Err(err))
		}
	}
	return nil
}
