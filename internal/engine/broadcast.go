package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"boardbot/internal/dispatch"
	"boardbot/internal/store"
	"boardbot/pkg/logx"
)

// OnPostingCreated broadcasts a newly created posting to every linked
// recipient, with the interactive choice set attached. This is the first
// contact for the posting and deliberately bypasses the cooldown policy;
// the outcome is recorded as a posting_created event so a dropped broadcast
// is visible in the journal.
func (e *Engine) OnPostingCreated(ctx context.Context, p store.Posting) error {
	recipients, err := e.st.ListLinkedRecipients(ctx)
	if err != nil {
		return fmt.Errorf("posting broadcast: %w", err)
	}

	items := make([]dispatch.Item, 0, len(recipients))
	for _, r := range recipients {
		if !r.Linked() {
			continue
		}
		items = append(items, dispatch.Item{
			To:        chatTarget(*r.ChatID),
			Text:      formatNewPosting(p),
			Options:   choiceOptions(p.ID),
			PostingID: p.ID,
			Account:   r.Email,
		})
	}

	res := e.dp.Deliver(ctx, items)
	err = e.st.AppendEvent(ctx, store.Event{
		Type:      store.EventPostingCreated,
		PostingID: p.ID,
		Metadata:  "sent=" + strconv.Itoa(res.Sent) + " failed=" + strconv.Itoa(res.Failed),
	})
	if err != nil {
		e.log.Error("broadcast event append failed", logx.String("posting_id", p.ID), logx.Err(err))
	}
	e.log.Info("new posting broadcast",
		logx.String("posting_id", p.ID),
		logx.Int("sent", res.Sent),
		logx.Int("failed", res.Failed))
	return nil
}

// ForcePush re-sends the given postings to every eligible recipient,
// ignoring cooldowns (operator override) but still honoring opt-outs.
// Postings are processed strictly sequentially with an inter-posting pause
// so the per-second ceiling holds across the whole batch.
func (e *Engine) ForcePush(ctx context.Context, postingIDs []string, now time.Time) (dispatch.Result, error) {
	recipients, err := e.st.ListLinkedRecipients(ctx)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("force push: %w", err)
	}

	var total dispatch.Result
	for i, id := range postingIDs {
		if i > 0 {
			e.dp.BatchPause(ctx)
		}
		p, err := e.st.GetPosting(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			e.log.Warn("force push skipped unknown posting", logx.String("posting_id", id))
			continue
		}
		if err != nil {
			return total, fmt.Errorf("force push: %w", err)
		}
		if !p.Deadline.After(now) {
			e.log.Warn("force push skipped expired posting", logx.String("posting_id", id))
			continue
		}

		hoursLeft := p.Deadline.Sub(now).Hours()
		var items []dispatch.Item
		for _, r := range recipients {
			if !r.Linked() {
				continue
			}
			resp, err := e.st.GetResponse(ctx, *r.ChatID, p.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return total, fmt.Errorf("force push: %w", err)
			}
			if resp != nil && resp.Action.OptsOut() {
				continue
			}
			items = append(items, dispatch.Item{
				To:        chatTarget(*r.ChatID),
				Text:      formatReminder(*p, hoursLeft),
				Options:   choiceOptions(p.ID),
				PostingID: p.ID,
				Account:   r.Email,
				Reminder:  true,
			})
		}
		res := e.dp.Deliver(ctx, items)
		total.Sent += res.Sent
		total.Failed += res.Failed
	}

	e.log.Info("force push finished",
		logx.Int("postings", len(postingIDs)),
		logx.Int("sent", total.Sent),
		logx.Int("failed", total.Failed))
	return total, nil
}
