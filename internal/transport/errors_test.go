package transport

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsPermanent(t *testing.T) {
	t.Parallel()
	base := &PermanentError{Reason: "blocked", Err: errors.New("403")}
	if !IsPermanent(base) {
		t.Fatal("PermanentError not detected")
	}
	if !IsPermanent(fmt.Errorf("send: %w", base)) {
		t.Fatal("wrapped PermanentError not detected")
	}
	if IsPermanent(errors.New("timeout")) {
		t.Fatal("plain error classified as permanent")
	}
	if IsPermanent(&RateLimitedError{RetryAfter: time.Second}) {
		t.Fatal("rate limit classified as permanent")
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()
	after, ok := RetryAfter(fmt.Errorf("send: %w", &RateLimitedError{RetryAfter: 7 * time.Second}))
	if !ok || after != 7*time.Second {
		t.Fatalf("RetryAfter = (%v,%v), want (7s,true)", after, ok)
	}
	if _, ok := RetryAfter(errors.New("timeout")); ok {
		t.Fatal("plain error yielded a retry-after")
	}
}

func TestPermanentErrorUnwrap(t *testing.T) {
	t.Parallel()
	inner := errors.New("chat not found")
	err := &PermanentError{Reason: "api", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("PermanentError does not unwrap to its cause")
	}
}
