package entropy

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// RateLimited waits on limiter before forwarding each request to src. A
// request that cannot be admitted before ctx ends is ErrUnavailable.
func RateLimited(src Source, limiter *rate.Limiter) Source {
	return SourceFunc(func(ctx context.Context, n int) (Bits, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, Unavailable(errors.Wrap(err, "entropy rate limit"))
		}
		return src.RequestBits(ctx, n)
	})
}

// Retrying retries failed requests to src up to attempts additional times,
// spacing them with the policy returned by newBackOff (exponential when nil).
// Capacity and context errors are not retried.
func Retrying(src Source, attempts uint64, newBackOff func() backoff.BackOff) Source {
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	return SourceFunc(func(ctx context.Context, n int) (Bits, error) {
		var out Bits
		op := func() error {
			bits, err := src.RequestBits(ctx, n)
			if err != nil {
				if errors.Is(err, ErrCapacityExceeded) || ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
			out = bits
			return nil
		}
		b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), attempts), ctx)
		if err := backoff.Retry(op, b); err != nil {
			return nil, Unavailable(err)
		}
		return out, nil
	})
}

// BreakerSettings configures Breaker.
type BreakerSettings = gobreaker.Settings

// Breaker guards src with a circuit breaker. While the circuit is open,
// requests fail fast with ErrUnavailable. Capacity errors do not count as
// backend failures.
func Breaker(src Source, settings BreakerSettings) Source {
	if settings.Name == "" {
		settings.Name = "entropy"
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, ErrCapacityExceeded)
		}
	}
	cb := gobreaker.NewCircuitBreaker(settings)
	return SourceFunc(func(ctx context.Context, n int) (Bits, error) {
		res, err := cb.Execute(func() (interface{}, error) {
			return src.RequestBits(ctx, n)
		})
		if err != nil {
			return nil, Unavailable(errors.Wrap(err, "entropy breaker"))
		}
		return res.(Bits), nil
	})
}
