package utils

import (
	"errors"
	"time"
)

// PollFunc is one probe of a polled condition. Returning done=true stops the
// poll successfully. A returned error is remembered as the last failure but does
// not stop the poll.
type PollFunc func(attempt int) (done bool, err error)

// Poll runs fn up to maxAttempts times, sleeping interval between attempts.
// It returns the number of attempts made and the error of the last probe when
// the budget is exhausted. Every polling loop in the automation (commit retry,
// CSR file wait, certificate status wait, API readiness) funnels through here so
// the attempt/interval contract lives in one place.
func Poll(interval time.Duration, maxAttempts int, fn PollFunc) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		done, err := fn(attempt)
		if done {
			return attempt, nil
		}
		if err != nil {
			lastErr = err
		}

		if attempt < maxAttempts {
			time.Sleep(interval)
		}
	}

	if lastErr == nil {
		lastErr = ErrBudgetExhausted
	}

	return maxAttempts, lastErr
}

// ErrBudgetExhausted is returned by Poll when no probe succeeded and none of
// them produced a more specific error.
var ErrBudgetExhausted = errors.New("polling budget exhausted")
