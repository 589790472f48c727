// Package retry runs an operation again when it failed for a reason that
// may go away on its own. Page objects never retry; callers opt in here.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pom_automation/domain/entities"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Logger     logrus.FieldLogger
}

// DefaultPolicy tries three times, waiting 500ms and then 1s.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Delay:      500 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   30 * time.Second,
	}
}

// Retryable returns true if the error might succeed on retry: a
// navigation or wait that ran out of time. Contract violations never are.
func Retryable(err error) bool {
	if err == nil || entities.IsContractViolation(err) {
		return false
	}
	return entities.IsTimeout(err)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts are used up. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !Retryable(err) || attempt >= attempts {
			return err
		}

		if p.Logger != nil {
			p.Logger.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
			}).Warn("retrying")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry canceled after %d attempt(s): %w", attempt, err)
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
