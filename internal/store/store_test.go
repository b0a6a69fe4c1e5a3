package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"boardbot/pkg/logx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "boardbot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPosting(id string, deadline time.Time) Posting {
	return Posting{
		ID:       id,
		Title:    "Backend Engineer",
		Org:      "Acme",
		Link:     "https://acme.example/jobs/" + id,
		Deadline: deadline,
	}
}

func TestUpsertResponseOverwrites(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.CreatePosting(ctx, testPosting("p1", now.Add(48*time.Hour))); err != nil {
		t.Fatalf("CreatePosting: %v", err)
	}

	first := Response{ChatID: 100, PostingID: "p1", Action: ActionRemind, RespondedAt: now}
	if err := s.UpsertResponse(ctx, first); err != nil {
		t.Fatalf("UpsertResponse: %v", err)
	}
	second := Response{ChatID: 100, PostingID: "p1", Action: ActionApplied, RespondedAt: now.Add(time.Minute)}
	if err := s.UpsertResponse(ctx, second); err != nil {
		t.Fatalf("UpsertResponse overwrite: %v", err)
	}

	got, err := s.GetResponse(ctx, 100, "p1")
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if got.Action != ActionApplied {
		t.Fatalf("Action = %s, want %s", got.Action, ActionApplied)
	}

	all, err := s.ListResponsesForPosting(ctx, "p1")
	if err != nil {
		t.Fatalf("ListResponsesForPosting: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single response row, got %d", len(all))
	}
}

func TestDeletePostingCascades(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.CreatePosting(ctx, testPosting("p1", now.Add(time.Hour))); err != nil {
		t.Fatalf("CreatePosting: %v", err)
	}
	if err := s.UpsertResponse(ctx, Response{ChatID: 100, PostingID: "p1", Action: ActionRemind}); err != nil {
		t.Fatalf("UpsertResponse: %v", err)
	}
	if err := s.AppendDelivery(ctx, DeliveryEntry{ChatID: 100, PostingID: "p1", SentAt: now}); err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}
	if err := s.AppendEvent(ctx, Event{Type: EventButtonClick, ChatID: 100, PostingID: "p1"}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	if err := s.DeletePosting(ctx, "p1"); err != nil {
		t.Fatalf("DeletePosting: %v", err)
	}

	if _, err := s.GetResponse(ctx, 100, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("response survived cascade: %v", err)
	}
	n, err := s.CountDeliveries(ctx, "p1")
	if err != nil {
		t.Fatalf("CountDeliveries: %v", err)
	}
	if n != 0 {
		t.Fatalf("delivery log survived cascade: %d rows", n)
	}

	// Events have no foreign key and outlive the posting.
	ok, err := s.HasEvent(ctx, EventButtonClick, 100, "p1")
	if err != nil {
		t.Fatalf("HasEvent: %v", err)
	}
	if !ok {
		t.Fatal("audit event was deleted with the posting")
	}
}

func TestDeletePostingMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	if err := s.DeletePosting(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecipientLinkLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.UpsertRecipient(ctx, "alice@example.com", "Alice"); err != nil {
		t.Fatalf("UpsertRecipient: %v", err)
	}

	rec, err := s.FindRecipientByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindRecipientByEmail: %v", err)
	}
	if rec.Linked() {
		t.Fatal("fresh account should not be linked")
	}

	if err := s.SetChat(ctx, "alice@example.com", 100, now); err != nil {
		t.Fatalf("SetChat: %v", err)
	}
	rec, err = s.FindRecipientByChat(ctx, 100)
	if err != nil {
		t.Fatalf("FindRecipientByChat: %v", err)
	}
	if rec.Email != "alice@example.com" || !rec.Linked() {
		t.Fatalf("unexpected recipient after link: %+v", rec)
	}

	linked, err := s.ListLinkedRecipients(ctx)
	if err != nil {
		t.Fatalf("ListLinkedRecipients: %v", err)
	}
	if len(linked) != 1 {
		t.Fatalf("expected 1 linked recipient, got %d", len(linked))
	}

	if err := s.ClearChat(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ClearChat: %v", err)
	}
	if _, err := s.FindRecipientByChat(ctx, 100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("chat link survived ClearChat: %v", err)
	}
}

func TestSetChatRejectsSharedChat(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if err := s.UpsertRecipient(ctx, email, ""); err != nil {
			t.Fatalf("UpsertRecipient(%s): %v", email, err)
		}
	}
	if err := s.SetChat(ctx, "a@example.com", 100, now); err != nil {
		t.Fatalf("SetChat first: %v", err)
	}
	if err := s.SetChat(ctx, "b@example.com", 100, now); err == nil {
		t.Fatal("one chat bound to two accounts, want unique violation")
	}
}

func TestLastDelivery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.CreatePosting(ctx, testPosting("p1", now.Add(time.Hour))); err != nil {
		t.Fatalf("CreatePosting: %v", err)
	}

	_, ok, err := s.LastDelivery(ctx, 100, "p1")
	if err != nil {
		t.Fatalf("LastDelivery empty: %v", err)
	}
	if ok {
		t.Fatal("ok=true with an empty delivery log")
	}

	first := now.Add(-6 * time.Hour)
	second := now.Add(-time.Hour)
	for _, at := range []time.Time{first, second} {
		if err := s.AppendDelivery(ctx, DeliveryEntry{ChatID: 100, PostingID: "p1", SentAt: at}); err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}

	got, ok, err := s.LastDelivery(ctx, 100, "p1")
	if err != nil {
		t.Fatalf("LastDelivery: %v", err)
	}
	if !ok {
		t.Fatal("ok=false after two deliveries")
	}
	if !got.Equal(second) {
		t.Fatalf("LastDelivery = %v, want %v", got, second)
	}
}

func TestListActiveAndExpiredPostings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	deadlines := map[string]time.Time{
		"soon":  now.Add(2 * time.Hour),
		"later": now.Add(72 * time.Hour),
		"past":  now.Add(-time.Hour),
	}
	for id, dl := range deadlines {
		if err := s.CreatePosting(ctx, testPosting(id, dl)); err != nil {
			t.Fatalf("CreatePosting(%s): %v", id, err)
		}
	}

	active, err := s.ListActivePostings(ctx, now)
	if err != nil {
		t.Fatalf("ListActivePostings: %v", err)
	}
	if len(active) != 2 || active[0].ID != "soon" || active[1].ID != "later" {
		t.Fatalf("unexpected active set: %+v", active)
	}

	expired, err := s.ListExpiredPostings(ctx, now)
	if err != nil {
		t.Fatalf("ListExpiredPostings: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "past" {
		t.Fatalf("unexpected expired set: %+v", expired)
	}
}

func TestHasEventScopedToPair(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendEvent(ctx, Event{Type: EventReminderSent, ChatID: 100, PostingID: "p1"}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	tests := []struct {
		name      string
		chatID    int64
		postingID string
		want      bool
	}{
		{"same pair", 100, "p1", true},
		{"other chat", 200, "p1", false},
		{"other posting", 100, "p2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := s.HasEvent(ctx, EventReminderSent, tt.chatID, tt.postingID)
			if err != nil {
				t.Fatalf("HasEvent: %v", err)
			}
			if ok != tt.want {
				t.Fatalf("HasEvent = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestEventAggregations(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	events := []Event{
		{Type: EventButtonClick, ChatID: 100, Account: "a@example.com"},
		{Type: EventButtonClick, ChatID: 100, Account: "a@example.com"},
		{Type: EventLinkSuccess, ChatID: 200, Account: "b@example.com"},
		{Type: EventPostingCreated},
	}
	for _, e := range events {
		if err := s.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	byType, err := s.CountEventsByType(ctx)
	if err != nil {
		t.Fatalf("CountEventsByType: %v", err)
	}
	if byType[EventButtonClick] != 2 || byType[EventLinkSuccess] != 1 {
		t.Fatalf("unexpected counts: %v", byType)
	}

	byAccount, err := s.EventCountsByAccount(ctx)
	if err != nil {
		t.Fatalf("EventCountsByAccount: %v", err)
	}
	if len(byAccount) != 2 {
		t.Fatalf("expected 2 accounts, system events excluded, got %+v", byAccount)
	}
	if byAccount[0].Account != "a@example.com" || byAccount[0].Events != 2 {
		t.Fatalf("expected busiest account first, got %+v", byAccount[0])
	}
}
