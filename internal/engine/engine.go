// Package engine implements the deadline notification and response
// tracking core: periodic deadline scans under a cooldown policy,
// first-contact broadcasts for new postings, one-shot delayed follow-ups
// for "remind me later" responses, and expiry cleanup.
//
// The engine owns no goroutines. Every operation takes the current time as
// an argument and re-derives its working set from the store, so scans are
// safe to repeat and nothing is lost across restarts.
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

type Config struct {
	// CooldownGrace is subtracted from the cooldown window when checking
	// the delivery log, absorbing scheduler jitter between ticks.
	CooldownGrace time.Duration

	// FollowUpDelay is how long after a "remind" response the one-shot
	// follow-up fires.
	FollowUpDelay time.Duration
}

// Dispatcher is the slice of the dispatch service the engine drives.
type Dispatcher interface {
	Deliver(ctx context.Context, items []dispatch.Item) dispatch.Result
	BatchPause(ctx context.Context)
}

// Observer receives engine-level counts (wired to Prometheus).
type Observer interface {
	ScanRan(task string)
	ResponseRecorded()
}

type nopObserver struct{}

func (nopObserver) ScanRan(string)    {}
func (nopObserver) ResponseRecorded() {}

type Engine struct {
	cfg Config
	st  *store.Store
	dp  Dispatcher
	obs Observer
	log logx.Logger
}

func New(cfg Config, st *store.Store, dp Dispatcher, obs Observer, log logx.Logger) *Engine {
	if cfg.CooldownGrace <= 0 {
		cfg.CooldownGrace = 30 * time.Minute
	}
	if cfg.FollowUpDelay <= 0 {
		cfg.FollowUpDelay = 4 * time.Hour
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{cfg: cfg, st: st, dp: dp, obs: obs, log: log}
}

// RunScan walks every active posting and queues a reminder for each linked
// recipient that has not opted out and is outside the cooldown window.
func (e *Engine) RunScan(ctx context.Context, now time.Time) error {
	e.obs.ScanRan("deadline_scan")

	postings, err := e.st.ListActivePostings(ctx, now)
	if err != nil {
		return fmt.Errorf("deadline scan: %w", err)
	}
	recipients, err := e.st.ListLinkedRecipients(ctx)
	if err != nil {
		return fmt.Errorf("deadline scan: %w", err)
	}
	if len(postings) == 0 || len(recipients) == 0 {
		return nil
	}

	var total dispatch.Result
	for _, p := range postings {
		hoursLeft := p.Deadline.Sub(now).Hours()
		items, err := e.reminderItems(ctx, p, recipients, now)
		if err != nil {
			// One bad posting must not halt the scan.
			e.log.Error("posting skipped during scan", logx.String("posting_id", p.ID), logx.Err(err))
			continue
		}
		if len(items) == 0 {
			continue
		}
		res := e.dp.Deliver(ctx, items)
		total.Sent += res.Sent
		total.Failed += res.Failed
		e.log.Info("reminders dispatched",
			logx.String("posting_id", p.ID),
			logx.Float64("hours_left", hoursLeft),
			logx.Int("sent", res.Sent),
			logx.Int("failed", res.Failed))
	}

	e.log.Info("deadline scan finished",
		logx.Int("postings", len(postings)),
		logx.Int("recipients", len(recipients)),
		logx.Int("sent", total.Sent),
		logx.Int("failed", total.Failed))
	return nil
}

// reminderItems applies the eligibility and cooldown policy for one posting.
func (e *Engine) reminderItems(ctx context.Context, p store.Posting, recipients []store.Recipient, now time.Time) ([]dispatch.Item, error) {
	hoursLeft := p.Deadline.Sub(now).Hours()
	cooldown := cooldownFor(hoursLeft)
	threshold := now.Add(-(cooldown - e.cfg.CooldownGrace))

	var items []dispatch.Item
	for _, r := range recipients {
		if !r.Linked() {
			continue
		}
		chatID := *r.ChatID

		resp, err := e.st.GetResponse(ctx, chatID, p.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if resp != nil && resp.Action.OptsOut() {
			continue
		}

		last, ok, err := e.st.LastDelivery(ctx, chatID, p.ID)
		if err != nil {
			return nil, err
		}
		if ok && !last.Before(threshold) {
			continue
		}

		items = append(items, dispatch.Item{
			To:        chatTarget(chatID),
			Text:      formatReminder(p, hoursLeft),
			Options:   choiceOptions(p.ID),
			PostingID: p.ID,
			Account:   r.Email,
			Reminder:  true,
		})
	}
	return items, nil
}

// RunCleanup deletes postings whose deadline has passed. Responses and
// delivery log rows cascade away with them; an audit event per posting
// survives in the journal.
func (e *Engine) RunCleanup(ctx context.Context, now time.Time) error {
	e.obs.ScanRan("expiry_cleanup")

	expired, err := e.st.ListExpiredPostings(ctx, now)
	if err != nil {
		return fmt.Errorf("expiry cleanup: %w", err)
	}
	for _, p := range expired {
		if err := e.st.DeletePosting(ctx, p.ID); err != nil {
			e.log.Error("posting delete failed", logx.String("posting_id", p.ID), logx.Err(err))
			continue
		}
		err := e.st.AppendEvent(ctx, store.Event{
			Type:      store.EventPostingExpired,
			PostingID: p.ID,
			Metadata:  p.Title + " @ " + p.Org,
			CreatedAt: now,
		})
		if err != nil {
			e.log.Error("expiry event append failed", logx.String("posting_id", p.ID), logx.Err(err))
		}
		e.log.Info("expired posting removed",
			logx.String("posting_id", p.ID),
			logx.Time("deadline", p.Deadline))
	}
	return nil
}
