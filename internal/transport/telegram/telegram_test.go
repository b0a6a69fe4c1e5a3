package telegram

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"boardbot/internal/transport"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("nil", func(t *testing.T) {
		if classify(nil) != nil {
			t.Fatal("classify(nil) != nil")
		}
	})

	t.Run("flood wait", func(t *testing.T) {
		err := classify(tele.FloodError{RetryAfter: 7})
		after, ok := transport.RetryAfter(err)
		if !ok || after != 7*time.Second {
			t.Fatalf("RetryAfter = (%v,%v), want (7s,true)", after, ok)
		}
		if transport.IsPermanent(err) {
			t.Fatal("flood wait classified as permanent")
		}
	})

	t.Run("flood wait without delay", func(t *testing.T) {
		err := classify(tele.FloodError{})
		after, ok := transport.RetryAfter(err)
		if !ok || after != time.Second {
			t.Fatalf("RetryAfter = (%v,%v), want 1s fallback", after, ok)
		}
	})

	t.Run("4xx is permanent", func(t *testing.T) {
		src := &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
		err := classify(src)
		if !transport.IsPermanent(err) {
			t.Fatalf("4xx not classified permanent: %v", err)
		}
		if !errors.Is(err, src) {
			t.Fatal("permanent error lost its cause")
		}
	})

	t.Run("5xx stays transient", func(t *testing.T) {
		err := classify(&tele.Error{Code: 502, Description: "Bad Gateway"})
		if transport.IsPermanent(err) {
			t.Fatal("5xx classified as permanent")
		}
	})

	t.Run("network errors stay transient", func(t *testing.T) {
		src := errors.New("dial tcp: connection refused")
		err := classify(src)
		if err != src {
			t.Fatalf("network error rewritten: %v", err)
		}
	})
}

func TestSendOptions(t *testing.T) {
	t.Parallel()

	if got := sendOptions(nil); got == nil || got.ReplyMarkup != nil {
		t.Fatalf("sendOptions(nil) = %+v", got)
	}

	opt := &transport.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
		Choices: []transport.Choice{
			{Label: "A", Data: "resp:applied:p1"},
			{Label: "B", Data: "resp:remind:p1"},
		},
	}
	got := sendOptions(opt)
	if got.ParseMode != "HTML" || !got.DisableWebPagePreview {
		t.Fatalf("unexpected options: %+v", got)
	}
	if got.ReplyMarkup == nil || len(got.ReplyMarkup.InlineKeyboard) != 2 {
		t.Fatalf("expected one row per choice, got %+v", got.ReplyMarkup)
	}
	row := got.ReplyMarkup.InlineKeyboard[0]
	if len(row) != 1 || row[0].Text != "A" || row[0].Data != "resp:applied:p1" {
		t.Fatalf("unexpected first row: %+v", row)
	}
}
