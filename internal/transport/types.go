package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

// Update is a single inbound event from the delivery channel, either a text
// message or an interactive-button callback.
type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type Callback struct {
	ID        string
	ChatID    int64
	FromID    int64
	MessageID int
	Data      string
}

// ChatTarget addresses a recipient on the channel.
type ChatTarget struct {
	ChatID int64
}

// MessageRef identifies a previously delivered message so it can be edited.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Choice is one interactive button attached to a message. Data is the opaque
// callback payload echoed back in Callback.Data when pressed.
type Choice struct {
	Label string
	Data  string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Choices        []Choice
}

// Channel is the outbound delivery capability the engine depends on.
// Implementations classify failures via the error taxonomy in errors.go:
// a *RateLimitedError is transient and carries the channel-mandated wait,
// a *PermanentError must not be retried.
type Channel interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendMedia(ctx context.Context, to ChatTarget, data []byte, caption string) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}
