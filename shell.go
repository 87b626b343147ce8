package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/avahowell/qpass/config"
	"github.com/avahowell/qpass/pwgen"
	"github.com/avahowell/qpass/repl"
	"github.com/avahowell/qpass/secureclip"
	"github.com/cockroachdb/errors"
)

// session is the state of one interactive shell. Each gen command reads a
// snapshot of it, so settings changed later never affect a finished password.
type session struct {
	ctx      context.Context
	gen      *pwgen.Generator
	alphabet pwgen.Alphabet
	length   int
	uniform  bool
	clipper  *secureclip.Clipper
	last     string
}

func newSession(ctx context.Context, g *pwgen.Generator, cfg config.Config) (*session, error) {
	a, err := pwgen.NewAlphabet(pwgen.LookupAlphabet(cfg.Alphabet))
	if err != nil {
		return nil, err
	}
	return &session{
		ctx:      ctx,
		gen:      g,
		alphabet: a,
		length:   cfg.Length,
		uniform:  cfg.Uniform,
		clipper:  secureclip.New(cfg.ClipTimeout),
	}, nil
}

var (
	genCmd = func(s *session) repl.Command {
		return repl.Command{
			Name:   "gen",
			Action: gen(s),
			Usage:  "gen [count]: generate count passwords (default 1) with the current settings",
		}
	}

	lengthCmd = func(s *session) repl.Command {
		return repl.Command{
			Name:   "length",
			Action: length(s),
			Usage:  "length [n]: show or set the password length",
		}
	}

	alphabetCmd = func(s *session) repl.Command {
		return repl.Command{
			Name:   "alphabet",
			Action: alphabet(s),
			Usage:  "alphabet [symbols|name]: show or set the alphabet. Names: default, alpha, alnum, lower, digits, hex",
		}
	}

	modeCmd = func(s *session) repl.Command {
		return repl.Command{
			Name:   "mode",
			Action: mode(s),
			Usage:  "mode [modulo|uniform]: show or set how bit groups are mapped onto the alphabet",
		}
	}

	biasCmd = func(s *session) repl.Command {
		return repl.Command{
			Name:   "bias",
			Action: bias(s),
			Usage:  "bias: show the symbol distribution of the current alphabet",
		}
	}

	clipCmd = func(s *session) repl.Command {
		return repl.Command{
			Name:   "clip",
			Action: clip(s),
			Usage:  "clip: copy the last generated password to the clipboard, it is cleared after the clip timeout",
		}
	}
)

func (s *session) register(r *repl.REPL) {
	for _, cmd := range []func(*session) repl.Command{genCmd, lengthCmd, alphabetCmd, modeCmd, biasCmd, clipCmd} {
		r.AddCommand(cmd(s))
	}
}

func gen(s *session) repl.ActionFunc {
	return func(args []string) (string, error) {
		if len(args) > 1 {
			return "", fmt.Errorf("gen takes at most one argument. See help for usage.")
		}
		count := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return "", fmt.Errorf("count must be a positive integer, got %q", args[0])
			}
			count = n
		}

		a, length, uniform := s.alphabet, s.length, s.uniform
		var sb strings.Builder
		for i := 0; i < count; i++ {
			pw, err := generate(s.ctx, s.gen, a.String(), length, uniform)
			if err != nil {
				return "", err
			}
			sb.WriteString(pw + "\n")
			s.last = pw
		}
		return sb.String(), nil
	}
}

func length(s *session) repl.ActionFunc {
	return func(args []string) (string, error) {
		if len(args) == 0 {
			return fmt.Sprintf("length: %v\n", s.length), nil
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("length must be an integer, got %q", args[0])
		}
		if _, err := pwgen.Requirements(s.alphabet, n); err != nil {
			return "", err
		}
		s.length = n
		return fmt.Sprintf("length set to %v\n", n), nil
	}
}

func alphabet(s *session) repl.ActionFunc {
	return func(args []string) (string, error) {
		if len(args) == 0 {
			return fmt.Sprintf("alphabet (%v symbols): %v\n", s.alphabet.Size(), s.alphabet), nil
		}
		if len(args) > 1 {
			return "", fmt.Errorf("alphabet takes one argument; quote alphabets containing spaces")
		}
		a, err := pwgen.NewAlphabet(pwgen.LookupAlphabet(args[0]))
		if err != nil {
			return "", err
		}
		s.alphabet = a
		return fmt.Sprintf("alphabet set (%v symbols, %v bits per symbol)\n", a.Size(), a.BitsPerSymbol()), nil
	}
}

func mode(s *session) repl.ActionFunc {
	return func(args []string) (string, error) {
		if len(args) == 0 {
			return fmt.Sprintf("mode: %v\n", modeName(s.uniform)), nil
		}
		switch args[0] {
		case "modulo":
			s.uniform = false
		case "uniform":
			s.uniform = true
		default:
			return "", fmt.Errorf("unknown mode %q, want modulo or uniform", args[0])
		}
		return fmt.Sprintf("mode set to %v\n", args[0]), nil
	}
}

func bias(s *session) repl.ActionFunc {
	return func(args []string) (string, error) {
		out := describeBias(s.alphabet)
		if s.uniform {
			out += "uniform mode is active: generated passwords do not follow this table\n"
		}
		return out, nil
	}
}

func clip(s *session) repl.ActionFunc {
	return func(args []string) (string, error) {
		if s.last == "" {
			return "", errors.New("nothing to copy yet, run gen first")
		}
		if err := s.clipper.Clip(s.last); err != nil {
			return "", err
		}
		return fmt.Sprintf("password copied to clipboard, will clear in %v\n", s.clipper.Timeout()), nil
	}
}

func modeName(uniform bool) string {
	if uniform {
		return "uniform"
	}
	return "modulo"
}
