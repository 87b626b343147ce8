package main

import (
	"fmt"
	"strings"

	"github.com/avahowell/qpass/pwgen"
)

// z-score of the 0.001 significance level.
const significance = 3.09

func describeBias(a pwgen.Alphabet) string {
	var sb strings.Builder
	b := a.BitsPerSymbol()
	span := 1 << uint(b)
	fmt.Fprintf(&sb, "alphabet:        %v symbols\n", a.Size())
	fmt.Fprintf(&sb, "bits per symbol: %v (%v group values)\n", b, span)

	if a.Uniform() {
		fmt.Fprintf(&sb, "mapping:         modulo, uniform\n")
		fmt.Fprintf(&sb, "  every symbol:  p = 1/%v\n", a.Size())
		return sb.String()
	}

	favored := span % a.Size()
	symbols := []rune(a.String())
	probs := a.Probabilities()
	fmt.Fprintf(&sb, "mapping:         modulo, biased\n")
	fmt.Fprintf(&sb, "  indices 0-%v: p = %v/%v (%.6g) %v\n",
		favored-1, span/a.Size()+1, span, probs[0], string(symbols[:favored]))
	fmt.Fprintf(&sb, "  indices %v-%v: p = %v/%v (%.6g)\n",
		favored, a.Size()-1, span/a.Size(), span, probs[favored])
	return sb.String()
}

func describeSample(t pwgen.Tally) string {
	var sb strings.Builder
	totals := t.Totals()
	dof := t.Alphabet.Size() - 1
	fmt.Fprintf(&sb, "trials:          %v x %v symbols\n", t.Trials, len(t.Positions))
	fmt.Fprintf(&sb, "chi-square vs modulo prediction: %.2f\n", pwgen.ChiSquare(totals, t.Alphabet.Probabilities()))
	fmt.Fprintf(&sb, "chi-square vs uniform:           %.2f\n", pwgen.ChiSquare(totals, pwgen.UniformProbabilities(t.Alphabet.Size())))
	fmt.Fprintf(&sb, "critical value (p = 0.001):      %.2f\n", pwgen.CriticalValue(dof, significance))

	symbols := []rune(t.Alphabet.String())
	most, least := 0, 0
	for i, c := range totals {
		if c > totals[most] {
			most = i
		}
		if c < totals[least] {
			least = i
		}
	}
	n := float64(t.Trials * len(t.Positions))
	fmt.Fprintf(&sb, "most frequent:   %q (%.4f)\n", symbols[most], float64(totals[most])/n)
	fmt.Fprintf(&sb, "least frequent:  %q (%.4f)\n", symbols[least], float64(totals[least])/n)
	return sb.String()
}
