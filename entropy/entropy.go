// Package entropy defines the source of uniformly distributed random bits
// consumed by the password generator, along with the backends and decorators
// that implement it.
package entropy

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnavailable is the mark carried by every error a Source returns when
	// it cannot deliver exactly the requested number of bits.
	ErrUnavailable = errors.New("entropy unavailable")

	// ErrCapacityExceeded is returned when a request is larger than a backend
	// can serve in one measurement. It is also marked ErrUnavailable.
	ErrCapacityExceeded = errors.New("entropy request exceeds source capacity")
)

// Source supplies independent, uniformly distributed bits. RequestBits must
// either return exactly n bits or an error marked ErrUnavailable.
type Source interface {
	RequestBits(ctx context.Context, n int) (Bits, error)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc func(ctx context.Context, n int) (Bits, error)

// RequestBits calls f(ctx, n).
func (f SourceFunc) RequestBits(ctx context.Context, n int) (Bits, error) {
	return f(ctx, n)
}

// Unavailable marks err as ErrUnavailable unless it already is.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return errors.Mark(err, ErrUnavailable)
}

// Bits is a bit string, one element per bit, each element 0 or 1.
type Bits []byte

// ParseBits parses a string of '0' and '1' characters.
func ParseBits(s string) (Bits, error) {
	b := make(Bits, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
		case '1':
			b[i] = 1
		default:
			return nil, errors.Newf("invalid bit %q at offset %d", s[i], i)
		}
	}
	return b, nil
}

// FromBytes unpacks the first n bits of p, most significant bit first.
func FromBytes(p []byte, n int) Bits {
	b := make(Bits, n)
	for i := range b {
		b[i] = (p[i/8] >> (7 - uint(i%8))) & 1
	}
	return b
}

// Uint reads width bits starting at off as an unsigned integer, most
// significant bit first.
func (b Bits) Uint(off, width int) uint64 {
	var v uint64
	for _, bit := range b[off : off+width] {
		v = v<<1 | uint64(bit&1)
	}
	return v
}

func (b Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, bit := range b {
		sb.WriteByte('0' + bit&1)
	}
	return sb.String()
}

func checkRequest(ctx context.Context, n int) error {
	if n < 1 {
		return errors.Mark(errors.Newf("requested %d bits", n), ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return Unavailable(errors.Wrap(err, "entropy request"))
	}
	return nil
}
