// Package entropytest provides entropy sources for tests.
package entropytest

import (
	"context"
	"sync"

	"github.com/avahowell/qpass/entropy"
)

// Recorder wraps a Source and records every request made to it.
type Recorder struct {
	Source entropy.Source

	mu       sync.Mutex
	requests []int
}

// RequestBits records n and forwards the request.
func (r *Recorder) RequestBits(ctx context.Context, n int) (entropy.Bits, error) {
	r.mu.Lock()
	r.requests = append(r.requests, n)
	r.mu.Unlock()
	return r.Source.RequestBits(ctx, n)
}

// Calls returns the number of requests made so far.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Requests returns the requested lengths in call order.
func (r *Recorder) Requests() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.requests...)
}

// Fixed returns responses in order, one per request, ignoring the requested
// length. Once exhausted it fails with entropy.ErrUnavailable.
func Fixed(responses ...string) *Recorder {
	var mu sync.Mutex
	return &Recorder{Source: entropy.SourceFunc(func(ctx context.Context, n int) (entropy.Bits, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(responses) == 0 {
			return nil, entropy.ErrUnavailable
		}
		s := responses[0]
		responses = responses[1:]
		return entropy.ParseBits(s)
	})}
}

// Failing returns a Recorder whose every request fails with err.
func Failing(err error) *Recorder {
	return &Recorder{Source: entropy.SourceFunc(func(ctx context.Context, n int) (entropy.Bits, error) {
		return nil, err
	})}
}

// Seeded returns a Recorder over a deterministic simulator.
func Seeded(seed int64) *Recorder {
	sim, err := entropy.NewSeededSimulator(1<<20, seed)
	if err != nil {
		panic(err)
	}
	return &Recorder{Source: sim}
}
