package entropy

import (
	"context"
	"crypto/rand"
	"io"

	"github.com/cockroachdb/errors"
)

// Crypto reads bits from the operating system CSPRNG.
type Crypto struct {
	// Reader overrides crypto/rand.Reader when set.
	Reader io.Reader
}

// NewCrypto returns a Source backed by crypto/rand.
func NewCrypto() *Crypto {
	return &Crypto{Reader: rand.Reader}
}

// RequestBits reads ceil(n/8) bytes and returns their first n bits.
func (c *Crypto) RequestBits(ctx context.Context, n int) (Bits, error) {
	if err := checkRequest(ctx, n); err != nil {
		return nil, err
	}
	r := c.Reader
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, (n+7)/8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, Unavailable(errors.Wrap(err, "read system entropy"))
	}
	return FromBytes(buf, n), nil
}
