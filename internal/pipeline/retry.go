package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/joseph-ayodele/docverify/internal/llm"
)

// RetryPolicy bounds how often a single model call (invoke + parse) is attempted.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NoRetry makes exactly one attempt.
var NoRetry = RetryPolicy{Attempts: 1}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		b.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		b.MaxInterval = p.MaxBackoff
	}
	return b
}

func (p RetryPolicy) attempts() uint {
	if p.Attempts < 1 {
		return 1
	}
	return uint(p.Attempts)
}

// Call invokes the gateway and parses the reply as T, retrying transport
// errors, parse errors and failed checks up to policy.Attempts times.
func Call[T llm.Payload](ctx context.Context, gw llm.Gateway, policy RetryPolicy, prompt string, logger *slog.Logger, checks ...func(T) error) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var zero T
	kind := zero.Kind()
	attempt := 0

	op := func() (T, error) {
		attempt++
		raw, err := gw.Invoke(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return zero, backoff.Permanent(err)
			}
			return zero, err
		}
		v, err := llm.Parse[T](raw)
		if err != nil {
			return zero, err
		}
		for _, check := range checks {
			if err := check(v); err != nil {
				return zero, err
			}
		}
		return v, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(policy.attempts()),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("pipeline.call.retry",
				"kind", kind,
				"attempt", attempt,
				"max_attempts", policy.attempts(),
				"wait_ms", wait.Milliseconds(),
				"error", err,
			)
		}),
	)
}
