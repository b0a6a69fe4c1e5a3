package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"boardbot/internal/store"
	"boardbot/internal/transport"
	"boardbot/pkg/logx"
)

// scriptChannel counts SendText calls and delegates the outcome to send.
type scriptChannel struct {
	mu    sync.Mutex
	calls int
	send  func(call int, to transport.ChatTarget) error
}

func (c *scriptChannel) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (c *scriptChannel) Stop(ctx context.Context) error                               { return nil }

func (c *scriptChannel) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	c.mu.Unlock()
	if c.send != nil {
		if err := c.send(call, to); err != nil {
			return transport.MessageRef{}, err
		}
	}
	return transport.MessageRef{ChatID: to.ChatID, MessageID: call}, nil
}

func (c *scriptChannel) SendMedia(ctx context.Context, to transport.ChatTarget, data []byte, caption string) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}

func (c *scriptChannel) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	return nil
}

func (c *scriptChannel) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func (c *scriptChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// memJournal collects bookkeeping writes in memory.
type memJournal struct {
	mu         sync.Mutex
	deliveries []store.DeliveryEntry
	events     []store.Event
}

func (j *memJournal) AppendDelivery(ctx context.Context, e store.DeliveryEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deliveries = append(j.deliveries, e)
	return nil
}

func (j *memJournal) AppendEvent(ctx context.Context, e store.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

func testConfig() Config {
	// High rate so the limiter never slows the tests down.
	return Config{RatePerSec: 1000, RetryMax: 1, BatchPause: 5 * time.Millisecond}
}

func makeItems(n int) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, Item{
			To:        transport.ChatTarget{ChatID: int64(100 + i)},
			Text:      "hello",
			PostingID: "p1",
			Reminder:  true,
		})
	}
	return items
}

func TestDeliverContinuesPastFailures(t *testing.T) {
	t.Parallel()
	ch := &scriptChannel{
		send: func(call int, to transport.ChatTarget) error {
			if to.ChatID == 102 {
				return &transport.PermanentError{Reason: "blocked"}
			}
			return nil
		},
	}
	j := &memJournal{}
	d := New(testConfig(), ch, j, nil, logx.Nop())

	res := d.Deliver(context.Background(), makeItems(5))
	if res.Sent != 4 || res.Failed != 1 {
		t.Fatalf("Result = %+v, want Sent=4 Failed=1", res)
	}
	if n := len(j.deliveries); n != 4 {
		t.Fatalf("delivery log rows = %d, want 4", n)
	}
	if n := len(j.events); n != 4 {
		t.Fatalf("events = %d, want 4", n)
	}
	for _, e := range j.events {
		if e.Type != store.EventNotificationSent {
			t.Fatalf("unexpected event type %s", e.Type)
		}
		if e.ChatID == 102 {
			t.Fatal("failed delivery must not produce a sent event")
		}
	}
}

func TestSendOneRetriesAfterRateLimit(t *testing.T) {
	t.Parallel()
	ch := &scriptChannel{
		send: func(call int, to transport.ChatTarget) error {
			if call == 1 {
				return &transport.RateLimitedError{RetryAfter: 5 * time.Millisecond}
			}
			return nil
		},
	}
	j := &memJournal{}
	cfg := testConfig()
	cfg.RetryMax = 3
	d := New(cfg, ch, j, nil, logx.Nop())

	res := d.Deliver(context.Background(), makeItems(1))
	if res.Sent != 1 || res.Failed != 0 {
		t.Fatalf("Result = %+v, want Sent=1", res)
	}
	if got := ch.callCount(); got != 2 {
		t.Fatalf("SendText calls = %d, want 2 (one retry)", got)
	}
}

func TestSendOneDoesNotRetryPermanentFailures(t *testing.T) {
	t.Parallel()
	ch := &scriptChannel{
		send: func(call int, to transport.ChatTarget) error {
			return &transport.PermanentError{Reason: "chat deleted", Err: errors.New("403")}
		},
	}
	j := &memJournal{}
	cfg := testConfig()
	cfg.RetryMax = 5
	d := New(cfg, ch, j, nil, logx.Nop())

	res := d.Deliver(context.Background(), makeItems(1))
	if res.Sent != 0 || res.Failed != 1 {
		t.Fatalf("Result = %+v, want Failed=1", res)
	}
	if got := ch.callCount(); got != 1 {
		t.Fatalf("SendText calls = %d, want 1 (no retries)", got)
	}
	if len(j.deliveries) != 0 || len(j.events) != 0 {
		t.Fatal("failed delivery must leave no bookkeeping")
	}
}

func TestRecordSkipsDeliveryLogForNonReminders(t *testing.T) {
	t.Parallel()
	ch := &scriptChannel{}
	j := &memJournal{}
	d := New(testConfig(), ch, j, nil, logx.Nop())

	items := makeItems(1)
	items[0].Reminder = false
	res := d.Deliver(context.Background(), items)
	if res.Sent != 1 {
		t.Fatalf("Result = %+v, want Sent=1", res)
	}
	if len(j.deliveries) != 0 {
		t.Fatal("broadcast item must not enter the cooldown delivery log")
	}
	if len(j.events) != 1 {
		t.Fatalf("events = %d, want 1", len(j.events))
	}
}

func TestDeliverStopsSendingWhenContextEnds(t *testing.T) {
	t.Parallel()
	ch := &scriptChannel{}
	j := &memJournal{}
	d := New(testConfig(), ch, j, nil, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := d.Deliver(ctx, makeItems(3))
	if res.Sent != 0 || res.Failed != 3 {
		t.Fatalf("Result = %+v, want Failed=3", res)
	}
	if got := ch.callCount(); got != 0 {
		t.Fatalf("SendText calls = %d, want 0", got)
	}
}

func TestBatchPauseHonorsContext(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BatchPause = time.Minute
	d := New(cfg, &scriptChannel{}, &memJournal{}, nil, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	d.BatchPause(ctx)
	if took := time.Since(start); took > time.Second {
		t.Fatalf("BatchPause ignored canceled context, took %v", took)
	}
}
