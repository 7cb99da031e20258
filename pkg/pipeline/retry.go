package pipeline

import (
	"context"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/metrics"
	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds the retries around each collaborator call.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (rc RetryConfig) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if rc.InitialInterval > 0 {
		eb.InitialInterval = rc.InitialInterval
	}
	if rc.MaxInterval > 0 {
		eb.MaxInterval = rc.MaxInterval
	}
	eb.MaxElapsedTime = 0
	retries := rc.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// withRetry runs fn until it succeeds, fails permanently, or the attempt budget runs out.
// Only errors for which IsTransient holds are retried.
func withRetry[T any](ctx context.Context, rc RetryConfig, logger Logger, collaborator string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	attempt := 0
	op := func() error {
		attempt++
		v, err := fn(ctx)
		if err != nil {
			if !IsTransient(err) {
				metrics.CollaboratorCalls.WithLabelValues(collaborator, "permanent_error").Inc()
				return backoff.Permanent(err)
			}
			metrics.CollaboratorCalls.WithLabelValues(collaborator, "transient_error").Inc()
			return err
		}
		metrics.CollaboratorCalls.WithLabelValues(collaborator, "ok").Inc()
		out = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnf("%s call failed (attempt %d/%d), retrying in %s: %v", collaborator, attempt, rc.MaxAttempts, wait, err)
	}
	if err := backoff.RetryNotify(op, rc.policy(ctx), notify); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
