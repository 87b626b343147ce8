// Package pwgen turns a string of uniformly distributed random bits into a
// fixed-length password over a fixed alphabet.
//
// Each symbol consumes the smallest number of bits b with 2^b >= size of the
// alphabet, and a b-bit group g selects the symbol at index g mod size. When
// the alphabet size is not a power of two this mapping is deliberately
// skewed toward the low indices; see Alphabet.Probabilities for the exact
// distribution and Generator.GenerateUniform for the unbiased alternative.
package pwgen

import (
	"strings"

	"github.com/avahowell/qpass/entropy"
	"github.com/cockroachdb/errors"
)

const (
	lowercase   = "abcdefghijklmnopqrstuvwxyz"
	uppercase   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// DefaultAlphabet is letters, digits and ASCII punctuation: 95 symbols.
	DefaultAlphabet = lowercase + uppercase + digits + punctuation
	// DefaultLength is the password length used when none is given.
	DefaultLength = 12
)

// Charsets maps the names accepted by LookupAlphabet to their symbols.
var Charsets = map[string]string{
	"default": DefaultAlphabet,
	"alpha":   lowercase + uppercase,
	"alnum":   lowercase + uppercase + digits,
	"lower":   lowercase,
	"digits":  digits,
	"hex":     digits + "abcdef",
}

var (
	// ErrInvalidConfiguration is returned for an unusable alphabet or length.
	// It is always returned before any entropy is requested.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEntropyUnavailable is returned when the source could not supply the
	// requested bits. No partial password accompanies it.
	ErrEntropyUnavailable = entropy.ErrUnavailable
)

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidConfiguration)
}

// LookupAlphabet resolves a charset name, or returns s unchanged if it does
// not name one.
func LookupAlphabet(s string) string {
	if cs, ok := Charsets[strings.ToLower(s)]; ok {
		return cs
	}
	return s
}

// Plan is the bit budget for one password.
type Plan struct {
	Alphabet      Alphabet
	Length        int
	BitsPerSymbol int
	TotalBits     int
}

// Requirements computes how many bits a password of length symbols over a
// needs.
func Requirements(a Alphabet, length int) (Plan, error) {
	if a.Size() == 0 {
		return Plan{}, invalidf("alphabet is empty")
	}
	if length < 1 {
		return Plan{}, errors.WithHint(invalidf("password length %d", length), "length must be at least 1")
	}
	return Plan{
		Alphabet:      a,
		Length:        length,
		BitsPerSymbol: a.BitsPerSymbol(),
		TotalBits:     length * a.BitsPerSymbol(),
	}, nil
}

// Partition splits bits into consecutive groups of width bits, left to right.
// Trailing bits that do not fill a group are ignored.
func Partition(bits entropy.Bits, width int) []uint64 {
	groups := make([]uint64, len(bits)/width)
	for i := range groups {
		groups[i] = bits.Uint(i*width, width)
	}
	return groups
}

// Assemble maps bits onto the plan's alphabet. len(bits) must equal
// p.TotalBits.
func Assemble(p Plan, bits entropy.Bits) string {
	var sb strings.Builder
	sb.Grow(p.Length)
	for _, g := range Partition(bits, p.BitsPerSymbol) {
		sb.WriteRune(p.Alphabet.Symbol(g))
	}
	return sb.String()
}
