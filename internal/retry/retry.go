package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

const maxDelay = time.Hour

// Policy bounds the retry behavior for one operation.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// RetryDelay is the wait between attempts.
	RetryDelay time.Duration
	// BackoffMultiplier scales the delay per attempt when > 1; otherwise the
	// delay is fixed.
	BackoffMultiplier float64
}

// Do invokes op under the policy. Retries happen only for errors classified
// retriable; anything else surfaces after the first attempt. The returned
// error wraps the last failure with the operation name and attempt count.
func Do(ctx context.Context, logger *slog.Logger, operation string, policy Policy, op func(context.Context) error) error {
	if op == nil {
		return services.Wrap(services.ErrInvalidArgument, "", operation, "operation is nil", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempts++
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !services.IsRetriable(lastErr) {
			break
		}
		if attempt == policy.MaxRetries {
			break
		}

		delay := delayFor(policy, attempt)
		logger.Warn("operation failed; retrying",
			logging.String("operation", operation),
			logging.Int(logging.FieldAttempts, attempts),
			logging.Int("remaining", policy.MaxRetries-attempt),
			logging.Duration("delay", delay),
			logging.Error(lastErr),
		)
		if err := wait(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s failed after %d attempt%s: %w", operation, attempts, plural(attempts), lastErr)
}

func delayFor(policy Policy, attempt int) time.Duration {
	delay := policy.RetryDelay
	if delay < 0 {
		delay = 0
	}
	if policy.BackoffMultiplier > 1 && attempt > 0 {
		scaled := float64(delay) * math.Pow(policy.BackoffMultiplier, float64(attempt))
		if scaled > float64(maxDelay) {
			return maxDelay
		}
		delay = time.Duration(scaled)
	}
	return delay
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
