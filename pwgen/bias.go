package pwgen

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
)

// Tally aggregates symbol frequencies over many generated passwords.
type Tally struct {
	Alphabet Alphabet
	Trials   int
	// Positions[p][i] counts how often alphabet index i appeared at
	// password position p.
	Positions [][]int
}

// Totals returns the per-index counts summed over all positions.
func (t Tally) Totals() []int {
	totals := make([]int, t.Alphabet.Size())
	for _, pos := range t.Positions {
		for i, c := range pos {
			totals[i] += c
		}
	}
	return totals
}

// Sample generates trials independent passwords with g and tallies them.
// progress, if non-nil, is called after each trial.
func Sample(ctx context.Context, g *Generator, a Alphabet, length, trials int, progress func()) (Tally, error) {
	if trials < 1 {
		return Tally{}, invalidf("trials %d", trials)
	}
	t := Tally{Alphabet: a, Trials: trials, Positions: make([][]int, length)}
	for p := range t.Positions {
		t.Positions[p] = make([]int, a.Size())
	}
	for n := 0; n < trials; n++ {
		pw, err := g.GenerateFrom(ctx, a, length)
		if err != nil {
			return Tally{}, errors.Wrapf(err, "trial %d", n)
		}
		for p, r := range []rune(pw) {
			t.Positions[p][a.IndexOf(r)]++
		}
		if progress != nil {
			progress()
		}
	}
	return t, nil
}

// ChiSquare returns Pearson's statistic for observed counts against the
// expected probabilities probs.
func ChiSquare(observed []int, probs []float64) float64 {
	total := 0
	for _, c := range observed {
		total += c
	}
	var stat float64
	for i, c := range observed {
		expected := probs[i] * float64(total)
		if expected == 0 {
			continue
		}
		d := float64(c) - expected
		stat += d * d / expected
	}
	return stat
}

// CriticalValue approximates the chi-square quantile with dof degrees of
// freedom lying z standard deviations above the mean (Wilson-Hilferty).
// z = 3.09 gives the 0.001 significance level.
func CriticalValue(dof int, z float64) float64 {
	k := float64(dof)
	c := 2 / (9 * k)
	return k * math.Pow(1-c+z*math.Sqrt(c), 3)
}

// UniformProbabilities returns n equal probabilities.
func UniformProbabilities(n int) []float64 {
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = 1 / float64(n)
	}
	return probs
}
