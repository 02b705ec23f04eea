// Package retry wraps a value.Reply-returning call with bounded,
// exponentially-backed-off retries that honor cooperative cancellation.
package retry

import (
	"context"
	"time"

	"github.com/corewave/agentcore/value"
)

// InitialDelay is the wait before the second attempt; it doubles after
// every subsequent failed attempt.
const InitialDelay = 50 * time.Millisecond

// Do invokes fn at most maxRetries times total (attempts 0..maxRetries-1).
// A reply is returned as-is once it is ok, or once it was produced on the
// final attempt — a failing final attempt surfaces, it is never masked.
// Cancellation is checked before every attempt and during the inter-attempt
// wait; either point yields a cancelled reply immediately without running
// fn again.
func Do(ctx context.Context, maxRetries int, fn func() value.Reply) value.Reply {
	delay := InitialDelay
	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return value.CancelledReply()
		default:
		}

		reply := fn()
		if reply.OK || attempt == maxRetries-1 {
			return reply
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return value.CancelledReply()
		case <-timer.C:
		}
		delay *= 2
	}
	// Reached only when maxRetries <= 0: fn is never called and a
	// cancelled-shaped reply is returned.
	return value.CancelledReply()
}
