package entropy

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"math/cmplx"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/chacha20"
)

// DefaultMaxQubits is the register size used when none is configured.
const DefaultMaxQubits = 4096

// qubit is a single-qubit state alpha|0> + beta|1>.
type qubit struct {
	alpha, beta complex128
}

func (q *qubit) hadamard() {
	a, b := q.alpha, q.beta
	q.alpha = (a + b) / math.Sqrt2
	q.beta = (a - b) / math.Sqrt2
}

func (q qubit) probOne() float64 {
	m := cmplx.Abs(q.beta)
	return m * m
}

// Simulator produces bits by preparing a register of qubits in |0>, putting
// each into superposition with a Hadamard gate and collapsing the whole
// register in a single joint measurement. Measurement outcomes are drawn from
// a chacha20 keystream.
type Simulator struct {
	maxQubits int

	mu     sync.Mutex
	stream *chacha20.Cipher
}

// NewSimulator returns a simulator keyed from crypto/rand.
func NewSimulator(maxQubits int) (*Simulator, error) {
	key := make([]byte, chacha20.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "seed simulator")
	}
	return newSimulator(maxQubits, key)
}

// NewSeededSimulator returns a simulator whose measurements are fully
// determined by seed.
func NewSeededSimulator(maxQubits int, seed int64) (*Simulator, error) {
	key := make([]byte, chacha20.KeySize)
	binary.LittleEndian.PutUint64(key, uint64(seed))
	return newSimulator(maxQubits, key)
}

func newSimulator(maxQubits int, key []byte) (*Simulator, error) {
	if maxQubits <= 0 {
		maxQubits = DefaultMaxQubits
	}
	stream, err := chacha20.NewUnauthenticatedCipher(key, make([]byte, chacha20.NonceSize))
	if err != nil {
		return nil, errors.Wrap(err, "init simulator keystream")
	}
	return &Simulator{maxQubits: maxQubits, stream: stream}, nil
}

// MaxQubits returns the largest register the simulator will measure.
func (s *Simulator) MaxQubits() int {
	return s.maxQubits
}

// RequestBits measures an n-qubit register once.
func (s *Simulator) RequestBits(ctx context.Context, n int) (Bits, error) {
	if err := checkRequest(ctx, n); err != nil {
		return nil, err
	}
	if n > s.maxQubits {
		return nil, errors.Mark(
			errors.WithHint(
				errors.Wrapf(ErrCapacityExceeded, "%d qubits requested, register holds %d", n, s.maxQubits),
				"use a shorter password or raise max-qubits"),
			ErrUnavailable)
	}

	register := make([]qubit, n)
	for i := range register {
		register[i] = qubit{alpha: 1}
		register[i].hadamard()
	}
	return s.measure(register), nil
}

// measure collapses the whole register against one contiguous slice of the
// keystream.
func (s *Simulator) measure(register []qubit) Bits {
	samples := make([]byte, 8*len(register))

	s.mu.Lock()
	s.stream.XORKeyStream(samples, samples)
	s.mu.Unlock()

	out := make(Bits, len(register))
	for i, q := range register {
		u := float64(binary.BigEndian.Uint64(samples[8*i:])>>11) / (1 << 53)
		if u < q.probOne() {
			out[i] = 1
		}
	}
	return out
}
