package entropy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestParseBits(t *testing.T) {
	b, err := ParseBits("0110")
	require.NoError(t, err)
	require.Equal(t, Bits{0, 1, 1, 0}, b)
	require.Equal(t, "0110", b.String())

	_, err = ParseBits("01x")
	require.Error(t, err)
}

func TestBitsUint(t *testing.T) {
	b, err := ParseBits("1011001")
	require.NoError(t, err)
	require.Equal(t, uint64(5), b.Uint(0, 3))
	require.Equal(t, uint64(9), b.Uint(3, 4))
	require.Equal(t, uint64(1), b.Uint(6, 1))
}

func TestFromBytes(t *testing.T) {
	require.Equal(t, "10100101", FromBytes([]byte{0xa5}, 8).String())
	require.Equal(t, "1111111100", FromBytes([]byte{0xff, 0x3f}, 10).String())
}

func TestCryptoSource(t *testing.T) {
	c := &Crypto{Reader: bytes.NewReader([]byte{0xa5, 0xff})}
	b, err := c.RequestBits(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "10100", b.String())

	b, err = NewCrypto().RequestBits(context.Background(), 77)
	require.NoError(t, err)
	require.Len(t, b, 77)
}

func TestCryptoSourceShortRead(t *testing.T) {
	c := &Crypto{Reader: bytes.NewReader([]byte{0xa5})}
	_, err := c.RequestBits(context.Background(), 16)
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestCanceledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCrypto().RequestBits(ctx, 8)
	require.True(t, errors.Is(err, ErrUnavailable))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestSimulatorDeterministic(t *testing.T) {
	a, err := NewSeededSimulator(0, 42)
	require.NoError(t, err)
	b, err := NewSeededSimulator(0, 42)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ba, err := a.RequestBits(context.Background(), 96)
		require.NoError(t, err)
		bb, err := b.RequestBits(context.Background(), 96)
		require.NoError(t, err)
		require.Len(t, ba, 96)
		require.Equal(t, ba, bb)
	}
}

func TestSimulatorBalanced(t *testing.T) {
	sim, err := NewSeededSimulator(1<<20, 7)
	require.NoError(t, err)
	const n = 200000
	b, err := sim.RequestBits(context.Background(), n)
	require.NoError(t, err)

	ones := 0
	for _, bit := range b {
		ones += int(bit)
	}
	require.InDelta(t, 0.5, float64(ones)/n, 0.01)
}

func TestSimulatorCapacity(t *testing.T) {
	sim, err := NewSimulator(16)
	require.NoError(t, err)
	require.Equal(t, 16, sim.MaxQubits())

	_, err = sim.RequestBits(context.Background(), 16)
	require.NoError(t, err)

	_, err = sim.RequestBits(context.Background(), 17)
	require.True(t, errors.Is(err, ErrUnavailable))
	require.True(t, errors.Is(err, ErrCapacityExceeded))
}

func TestHadamard(t *testing.T) {
	q := qubit{alpha: 1}
	q.hadamard()
	require.InDelta(t, 0.5, q.probOne(), 1e-12)
	q.hadamard()
	require.InDelta(t, 0, q.probOne(), 1e-12)
}

func TestVaultSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sys/tools/random/2" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"random_bytes": base64.StdEncoding.EncodeToString([]byte{0xf0, 0x0f}),
			},
		})
	}))
	defer srv.Close()

	v, err := NewVault(srv.URL, "root")
	require.NoError(t, err)

	b, err := v.RequestBits(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, "111100000000", b.String())

	_, err = v.RequestBits(context.Background(), 64)
	require.True(t, errors.Is(err, ErrUnavailable))
}
