// Package dispatch fans messages out through the delivery channel.
//
// Delivery is strictly sequential and rate limited: the channel imposes a
// global per-second ceiling, so items are spaced by a limiter rather than
// sent in parallel. Transient failures are retried with the channel's
// mandated wait; permanent failures are recorded and skipped. One bad item
// never aborts the batch.
package dispatch

import (
	"context"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"

	"boardbot/internal/store"
	"boardbot/internal/transport"
	"boardbot/pkg/logx"
)

type Config struct {
	RatePerSec int
	RetryMax   int
	BatchPause time.Duration
}

// Item is one pending delivery. Reminder-class items get a delivery log
// entry on success so the cooldown policy can see them.
type Item struct {
	To        transport.ChatTarget
	Text      string
	Options   *transport.SendOptions
	PostingID string
	Account   string
	Reminder  bool
}

// Result summarizes one batch.
type Result struct {
	Sent   int
	Failed int
}

// journal is the slice of the store the dispatcher writes to.
type journal interface {
	AppendDelivery(ctx context.Context, e store.DeliveryEntry) error
	AppendEvent(ctx context.Context, e store.Event) error
}

// Observer receives delivery outcome counts (wired to Prometheus).
type Observer interface {
	DeliverySent()
	DeliveryFailed()
}

type nopObserver struct{}

func (nopObserver) DeliverySent()   {}
func (nopObserver) DeliveryFailed() {}

type Dispatcher struct {
	cfg     Config
	ch      transport.Channel
	journal journal
	limiter *rate.Limiter
	obs     Observer
	log     logx.Logger
}

func New(cfg Config, ch transport.Channel, j journal, obs Observer, log logx.Logger) *Dispatcher {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Dispatcher{
		cfg:     cfg,
		ch:      ch,
		journal: j,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		obs:     obs,
		log:     log,
	}
}

// Deliver sends every item in order and reports (sent, failed). The batch
// continues past individual failures; it stops early only when ctx ends.
func (d *Dispatcher) Deliver(ctx context.Context, items []Item) Result {
	var res Result
	for _, it := range items {
		if ctx.Err() != nil {
			res.Failed++
			continue
		}
		if err := d.sendOne(ctx, it); err != nil {
			res.Failed++
			d.obs.DeliveryFailed()
			d.log.Warn("delivery failed",
				logx.Int64("chat_id", it.To.ChatID),
				logx.String("posting_id", it.PostingID),
				logx.Bool("permanent", transport.IsPermanent(err)),
				logx.Err(err))
			continue
		}
		res.Sent++
		d.obs.DeliverySent()
		d.record(it)
	}
	return res
}

// BatchPause sleeps the configured inter-posting pause, honoring ctx. Used
// between postings of an operator-triggered force push so the per-second
// ceiling holds across postings too.
func (d *Dispatcher) BatchPause(ctx context.Context) {
	pause := d.cfg.BatchPause
	if pause <= 0 {
		return
	}
	t := time.NewTimer(pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, it Item) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return retry.Do(
		func() error {
			_, err := d.ch.SendText(ctx, it.To, it.Text, it.Options)
			return err
		},
		retry.Attempts(uint(d.cfg.RetryMax)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !transport.IsPermanent(err)
		}),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(time.Minute),
		retry.DelayType(func(n uint, err error, cfg *retry.Config) time.Duration {
			// Rate-limit signals carry the wait the channel demands.
			if after, ok := transport.RetryAfter(err); ok && after > 0 {
				return after
			}
			return retry.BackOffDelay(n, err, cfg)
		}),
		retry.OnRetry(func(n uint, err error) {
			d.log.Debug("delivery retry scheduled",
				logx.Int64("chat_id", it.To.ChatID),
				logx.String("posting_id", it.PostingID),
				logx.Int("attempt", int(n)+2),
				logx.Err(err))
		}),
	)
}

// record writes the delivery log entry and audit event for a success.
// Bookkeeping failures are logged, not propagated: the message is already
// out and the scan must go on.
func (d *Dispatcher) record(it Item) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if it.Reminder {
		err := d.journal.AppendDelivery(ctx, store.DeliveryEntry{
			ChatID:    it.To.ChatID,
			PostingID: it.PostingID,
			SentAt:    now,
		})
		if err != nil {
			d.log.Error("delivery log append failed", logx.Err(err))
		}
	}
	err := d.journal.AppendEvent(ctx, store.Event{
		Type:      store.EventNotificationSent,
		ChatID:    it.To.ChatID,
		Account:   it.Account,
		PostingID: it.PostingID,
		CreatedAt: now,
	})
	if err != nil {
		d.log.Error("event append failed", logx.Err(err))
	}
}
