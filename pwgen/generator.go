package pwgen

import (
	"context"

	"github.com/avahowell/qpass/entropy"
	"github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State is a step of a single generation attempt.
type State int

const (
	Configured State = iota
	AwaitingEntropy
	Assembling
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case AwaitingEntropy:
		return "awaiting-entropy"
	case Assembling:
		return "assembling"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type (
	// Generator produces passwords from an entropy source. A Generator holds
	// no per-call state and may be used from multiple goroutines.
	Generator struct {
		source  entropy.Source
		log     *otelzap.Logger
		tracer  trace.Tracer
		observe func(State)
	}

	// Option configures a Generator.
	Option func(*Generator)
)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *otelzap.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithObserver registers f to receive every state a generation attempt
// enters. f must be safe for concurrent use if the Generator is shared.
func WithObserver(f func(State)) Option {
	return func(g *Generator) { g.observe = f }
}

// New returns a Generator drawing bits from src.
func New(src entropy.Source, opts ...Option) *Generator {
	g := &Generator{
		source: src,
		log:    otelzap.New(zap.NewNop()),
		tracer: otel.Tracer("github.com/avahowell/qpass/pwgen"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) enter(ctx context.Context, s State) {
	g.log.Ctx(ctx).Debug("password generation", zap.Stringer("state", s))
	if g.observe != nil {
		g.observe(s)
	}
}

// Generate returns a password of length symbols drawn from alphabet. It makes
// exactly one entropy request of length * BitsPerSymbol bits and maps each
// group with the modulo rule.
func (g *Generator) Generate(ctx context.Context, alphabet string, length int) (string, error) {
	a, err := NewAlphabet(alphabet)
	if err != nil {
		return "", err
	}
	return g.GenerateFrom(ctx, a, length)
}

// GenerateFrom is Generate for an already validated alphabet.
func (g *Generator) GenerateFrom(ctx context.Context, a Alphabet, length int) (string, error) {
	plan, err := Requirements(a, length)
	if err != nil {
		return "", err
	}
	ctx, span := g.start(ctx, "pwgen.Generate", plan)
	defer span.End()

	g.enter(ctx, Configured)
	g.enter(ctx, AwaitingEntropy)
	bits, err := g.request(ctx, plan.TotalBits)
	if err != nil {
		g.fail(ctx, span, err)
		return "", err
	}
	g.enter(ctx, Assembling)
	pw := Assemble(plan, bits)
	g.enter(ctx, Done)
	return pw, nil
}

// GenerateUniform is the unbiased alternative to Generate. Groups whose value
// is not below the alphabet size are discarded and replaced, so it may make
// more than one entropy request per password.
func (g *Generator) GenerateUniform(ctx context.Context, alphabet string, length int) (string, error) {
	a, err := NewAlphabet(alphabet)
	if err != nil {
		return "", err
	}
	plan, err := Requirements(a, length)
	if err != nil {
		return "", err
	}
	ctx, span := g.start(ctx, "pwgen.GenerateUniform", plan)
	defer span.End()

	size := uint64(a.Size())
	out := make([]rune, 0, length)
	g.enter(ctx, Configured)
	for rounds := 1; len(out) < length; rounds++ {
		g.enter(ctx, AwaitingEntropy)
		bits, err := g.request(ctx, (length-len(out))*plan.BitsPerSymbol)
		if err != nil {
			g.fail(ctx, span, err)
			return "", err
		}
		g.enter(ctx, Assembling)
		for _, group := range Partition(bits, plan.BitsPerSymbol) {
			if group < size {
				out = append(out, a.Symbol(group))
			}
		}
		span.SetAttributes(attribute.Int("rounds", rounds))
	}
	g.enter(ctx, Done)
	return string(out), nil
}

// request makes one call to the source and enforces the exact-length
// contract. Errors the source already marked unavailable are returned as is.
func (g *Generator) request(ctx context.Context, n int) (entropy.Bits, error) {
	bits, err := g.source.RequestBits(ctx, n)
	if err != nil {
		return nil, entropy.Unavailable(err)
	}
	if len(bits) != n {
		return nil, errors.Mark(
			errors.Newf("entropy source returned %d bits, requested %d", len(bits), n),
			ErrEntropyUnavailable)
	}
	return bits, nil
}

func (g *Generator) start(ctx context.Context, name string, p Plan) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int("length", p.Length),
		attribute.Int("alphabet_size", p.Alphabet.Size()),
		attribute.Int("bits_per_symbol", p.BitsPerSymbol),
		attribute.Int("total_bits", p.TotalBits),
	))
}

func (g *Generator) fail(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "entropy unavailable")
	g.log.Ctx(ctx).Warn("entropy request failed", zap.Error(err))
	g.enter(ctx, Failed)
}
