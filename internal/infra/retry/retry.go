package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// Policy is a fixed-delay retry budget.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// AttemptTimeout bounds each individual attempt. Zero means no extra deadline.
	AttemptTimeout time.Duration
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, or the policy is
// exhausted. The last error is returned on failure.
func Do[T any](ctx context.Context, p Policy, logger *logrus.Entry, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0

	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		return op(attemptCtx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			if logger != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"attempt":  attempt,
					"attempts": attempts,
					"retry_in": next.String(),
				}).Warn("Attempt failed, retrying")
			}
		}),
	)
}
