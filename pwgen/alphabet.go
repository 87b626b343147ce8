package pwgen

import (
	"math/bits"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Alphabet is an ordered set of distinct printable symbols. The zero value is
// an empty alphabet and is rejected by Requirements.
type Alphabet struct {
	symbols []rune
	index   map[rune]int
	bits    int
}

// NewAlphabet validates s and returns it as an Alphabet. Duplicates are
// rejected rather than removed.
func NewAlphabet(s string) (Alphabet, error) {
	if s == "" {
		return Alphabet{}, invalidf("alphabet is empty")
	}
	if !utf8.ValidString(s) {
		return Alphabet{}, invalidf("alphabet is not valid UTF-8")
	}
	symbols := []rune(s)
	if len(symbols) < 2 {
		return Alphabet{}, errors.WithHint(invalidf("alphabet %q has a single symbol", s),
			"an alphabet needs at least two symbols")
	}
	index := make(map[rune]int, len(symbols))
	for i, r := range symbols {
		if !unicode.IsPrint(r) {
			return Alphabet{}, invalidf("alphabet symbol %U at position %d is not printable", r, i)
		}
		if j, dup := index[r]; dup {
			return Alphabet{}, errors.WithHint(
				invalidf("alphabet symbol %q repeats at positions %d and %d", r, j, i),
				"remove the duplicate; it would change the bits per symbol and the bias profile")
		}
		index[r] = i
	}
	return Alphabet{
		symbols: symbols,
		index:   index,
		bits:    bits.Len(uint(len(symbols) - 1)),
	}, nil
}

// MustAlphabet is like NewAlphabet but panics on error.
func MustAlphabet(s string) Alphabet {
	a, err := NewAlphabet(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Size returns the number of symbols.
func (a Alphabet) Size() int { return len(a.symbols) }

// BitsPerSymbol returns the smallest b with 2^b >= Size().
func (a Alphabet) BitsPerSymbol() int { return a.bits }

func (a Alphabet) String() string { return string(a.symbols) }

// Symbol returns the symbol selected by a group value.
func (a Alphabet) Symbol(group uint64) rune {
	return a.symbols[a.Index(group)]
}

// Index reduces a group value to an alphabet index.
func (a Alphabet) Index(group uint64) int {
	return int(group % uint64(len(a.symbols)))
}

// IndexOf returns the position of r, or -1.
func (a Alphabet) IndexOf(r rune) int {
	if i, ok := a.index[r]; ok {
		return i
	}
	return -1
}

// Uniform reports whether the modulo mapping is unbiased, that is whether
// the size is a power of two.
func (a Alphabet) Uniform() bool {
	n := len(a.symbols)
	return n > 0 && n&(n-1) == 0
}

// Probabilities returns, for each index, the probability that the modulo
// mapping selects it from uniform input. Indices below 2^b mod n receive
// ceil(2^b/n) of the 2^b group values, the others floor(2^b/n).
func (a Alphabet) Probabilities() []float64 {
	n := len(a.symbols)
	span := 1 << uint(a.bits)
	low, extra := span/n, span%n
	probs := make([]float64, n)
	for i := range probs {
		hits := low
		if i < extra {
			hits++
		}
		probs[i] = float64(hits) / float64(span)
	}
	return probs
}
