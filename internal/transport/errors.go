package transport

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitedError reports that the channel refused a delivery because the
// global rate ceiling was hit. RetryAfter is the wait the channel mandated
// before the same item may be retried.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by channel, retry after %s", e.RetryAfter)
}

// PermanentError reports a delivery failure that retrying cannot fix
// (blocked bot, deleted chat, malformed payload).
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("permanent delivery failure (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("permanent delivery failure (%s)", e.Reason)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// RetryAfter extracts the channel-mandated wait from a rate-limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var re *RateLimitedError
	if errors.As(err, &re) {
		return re.RetryAfter, true
	}
	return 0, false
}
