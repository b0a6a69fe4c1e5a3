package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Action is a recipient's current response to one posting.
type Action string

const (
	ActionApplied       Action = "applied"
	ActionNotInterested Action = "not_interested"
	ActionRemind        Action = "remind"
)

// ParseAction validates a raw action string from an inbound payload.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionApplied, ActionNotInterested, ActionRemind:
		return Action(s), true
	}
	return "", false
}

// OptsOut reports whether the action permanently suppresses reminders for
// its posting. Absence of a response defaults to "remind".
func (a Action) OptsOut() bool {
	return a == ActionApplied || a == ActionNotInterested
}

// Event types written to the journal.
const (
	EventNotificationSent = "notification_sent"
	EventButtonClick      = "button_click"
	EventReminderSent     = "reminder_sent"
	EventLinkSuccess      = "link_success"
	EventLinkFailed       = "link_failed"
	EventUnlinkSuccess    = "unlink_success"
	EventPostingCreated   = "posting_created"
	EventPostingExpired   = "posting_expired"
)

// Posting is a time-bound opening recipients are notified about.
// Kind, Location, Source and PostedBy are display-only extras carried
// through to the formatted message.
type Posting struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Org       string    `db:"org"`
	Link      string    `db:"link"`
	Kind      string    `db:"kind"`
	Location  string    `db:"location"`
	Source    string    `db:"source"`
	PostedBy  string    `db:"posted_by"`
	Deadline  time.Time `db:"deadline"`
	CreatedAt time.Time `db:"created_at"`
}

// Recipient is a board member. ChatID is nil while the account is not
// linked to a Telegram chat; at most one live chat per account and at most
// one account per chat (both enforced by the schema).
type Recipient struct {
	Email    string     `db:"email"`
	Name     string     `db:"name"`
	ChatID   *int64     `db:"chat_id"`
	LinkedAt *time.Time `db:"linked_at"`
}

// Linked reports whether the recipient currently has a live chat link.
func (r Recipient) Linked() bool { return r.ChatID != nil }

// Response is the current response of one chat to one posting, unique per
// (chat_id, posting_id). Later responses overwrite earlier ones.
type Response struct {
	ChatID      int64     `db:"chat_id"`
	PostingID   string    `db:"posting_id"`
	Action      Action    `db:"action"`
	RespondedAt time.Time `db:"responded_at"`
}

// DeliveryEntry records one successful reminder delivery. Append-only;
// used solely for cooldown checks and pruned by posting expiry.
type DeliveryEntry struct {
	ChatID    int64     `db:"chat_id"`
	PostingID string    `db:"posting_id"`
	SentAt    time.Time `db:"sent_at"`
}

// Event is an append-only audit record. Events are never mutated and
// outlive the postings they reference.
type Event struct {
	ID        string    `db:"id"`
	Type      string    `db:"event_type"`
	ChatID    int64     `db:"chat_id"`
	Account   string    `db:"account"`
	PostingID string    `db:"posting_id"`
	Action    string    `db:"action"`
	Metadata  string    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}
