package stream

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how long a line may wait for the device to become ready.
type RetryPolicy struct {
	// MaxAttempts is the number of polls per line before giving up with
	// ErrTimeout. Zero polls forever.
	MaxAttempts int

	// BackOff returns the delay schedule between unanswered polls.
	// A nil BackOff polls again immediately.
	BackOff func() backoff.BackOff
}

// ConstantRetry polls up to attempts times, waiting d between polls.
func ConstantRetry(attempts int, d time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(d)
		},
	}
}

// ExponentialRetry polls up to attempts times, doubling the wait from
// initial up to max between polls.
func ExponentialRetry(attempts int, initial, max time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = max
			b.MaxElapsedTime = 0
			b.RandomizationFactor = 0
			b.Multiplier = 2
			b.Reset()
			return b
		},
	}
}

// schedule returns a fresh delay schedule for one line. It reports
// backoff.Stop once MaxAttempts polls have gone unanswered.
func (p RetryPolicy) schedule() backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.BackOff != nil {
		b = p.BackOff()
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	b.Reset()
	return b
}
