package entropy

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// flaky fails the first n requests.
type flaky struct {
	failures int
	calls    int
	err      error
}

func (f *flaky) RequestBits(ctx context.Context, n int) (Bits, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return make(Bits, n), nil
}

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestRetryingRecovers(t *testing.T) {
	src := &flaky{failures: 2, err: errors.New("backend busy")}
	b, err := Retrying(src, 3, zeroBackOff).RequestBits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, b, 10)
	require.Equal(t, 3, src.calls)
}

func TestRetryingGivesUp(t *testing.T) {
	src := &flaky{failures: 10, err: errors.New("backend down")}
	_, err := Retrying(src, 2, zeroBackOff).RequestBits(context.Background(), 10)
	require.True(t, errors.Is(err, ErrUnavailable))
	require.Equal(t, 3, src.calls)
}

func TestRetryingSkipsCapacityErrors(t *testing.T) {
	sim, err := NewSeededSimulator(8, 1)
	require.NoError(t, err)
	calls := 0
	src := SourceFunc(func(ctx context.Context, n int) (Bits, error) {
		calls++
		return sim.RequestBits(ctx, n)
	})
	_, err = Retrying(src, 5, zeroBackOff).RequestBits(context.Background(), 9)
	require.True(t, errors.Is(err, ErrCapacityExceeded))
	require.True(t, errors.Is(err, ErrUnavailable))
	require.Equal(t, 1, calls)
}

func TestBreakerOpens(t *testing.T) {
	src := &flaky{failures: 100, err: errors.New("backend down")}
	guarded := Breaker(src, BreakerSettings{
		Timeout: time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	})
	for i := 0; i < 2; i++ {
		_, err := guarded.RequestBits(context.Background(), 4)
		require.True(t, errors.Is(err, ErrUnavailable))
	}
	_, err := guarded.RequestBits(context.Background(), 4)
	require.True(t, errors.Is(err, ErrUnavailable))
	require.True(t, errors.Is(err, gobreaker.ErrOpenState))
	require.Equal(t, 2, src.calls)
}

func TestBreakerPassesThrough(t *testing.T) {
	src := &flaky{}
	b, err := Breaker(src, BreakerSettings{}).RequestBits(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, b, 6)
}

func TestRateLimited(t *testing.T) {
	src := &flaky{}
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	limited := RateLimited(src, lim)

	_, err := limited.RequestBits(context.Background(), 3)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.RequestBits(ctx, 3)
	require.True(t, errors.Is(err, ErrUnavailable))
	require.Equal(t, 1, src.calls)
}
