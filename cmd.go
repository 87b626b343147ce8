package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/avahowell/qpass/config"
	"github.com/avahowell/qpass/entropy"
	"github.com/avahowell/qpass/logger"
	"github.com/avahowell/qpass/pwgen"
	"github.com/avahowell/qpass/repl"
	"github.com/avahowell/qpass/secureclip"
	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// app carries what every command needs once flags are parsed.
type app struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	v       *viper.Viper
	cfgFile string

	cfg config.Config
	log *otelzap.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut, v: viper.New()}

	root := &cobra.Command{
		Use:   "qpass",
		Short: "Generate passwords from measured random bits",
		Long: `qpass requests length x ceil(log2(alphabet size)) random bits from an entropy
source in a single call and maps each group of bits onto the alphabet with
index = group mod size. Alphabets whose size is not a power of two are biased
toward their first symbols; run "qpass bias" to see by how much, or pass
--uniform to use rejection sampling instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: a.runGen,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	config.RegisterFlags(root.PersistentFlags())
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	gen := &cobra.Command{
		Use:   "gen",
		Short: "Generate passwords",
		Args:  cobra.NoArgs,
		RunE:  a.runGen,
	}

	var trials int
	bias := &cobra.Command{
		Use:   "bias",
		Short: "Show the symbol distribution of the modulo mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBias(cmd.Context(), trials)
		},
	}
	bias.Flags().IntVar(&trials, "trials", 0, "also generate this many passwords and compare the observed distribution")

	shell := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd.Context())
		},
	}

	root.AddCommand(gen, bias, shell)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, cmd.Flags(), a.cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, a.errOut)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	a.log.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("source", cfg.Source),
		zap.Int("length", cfg.Length))
	return nil
}

// generator builds the configured entropy source and a Generator over it.
func (a *app) generator() (*pwgen.Generator, error) {
	src, err := newSource(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	return pwgen.New(src, pwgen.WithLogger(a.log)), nil
}

func (a *app) runGen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	g, err := a.generator()
	if err != nil {
		return err
	}
	alphabet := pwgen.LookupAlphabet(a.cfg.Alphabet)

	var last string
	for i := 0; i < a.cfg.Count; i++ {
		pw, err := generate(ctx, g, alphabet, a.cfg.Length, a.cfg.Uniform)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, pw)
		last = pw
	}

	if a.cfg.Clip {
		return a.clipAndWait(ctx, last)
	}
	return nil
}

func generate(ctx context.Context, g *pwgen.Generator, alphabet string, length int, uniform bool) (string, error) {
	if uniform {
		return g.GenerateUniform(ctx, alphabet, length)
	}
	return g.Generate(ctx, alphabet, length)
}

// clipAndWait keeps the process alive until the clipboard has been cleared,
// or clears it early if ctx is canceled.
func (a *app) clipAndWait(ctx context.Context, pw string) error {
	c := secureclip.New(a.cfg.ClipTimeout)
	if err := c.Clip(pw); err != nil {
		return err
	}
	fmt.Fprintf(a.errOut, "copied to clipboard, will clear in %v\n", c.Timeout())
	select {
	case <-time.After(c.Timeout()):
	case <-ctx.Done():
	}
	return c.Clear()
}

func (a *app) runBias(ctx context.Context, trials int) error {
	alphabet, err := pwgen.NewAlphabet(pwgen.LookupAlphabet(a.cfg.Alphabet))
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, describeBias(alphabet))
	if trials <= 0 {
		return nil
	}

	g, err := a.generator()
	if err != nil {
		return err
	}
	bar := progressbar.NewOptions(trials,
		progressbar.OptionSetWriter(a.errOut),
		progressbar.OptionSetDescription("sampling"),
		progressbar.OptionClearOnFinish())
	tally, err := pwgen.Sample(ctx, g, alphabet, a.cfg.Length, trials, func() { bar.Add(1) })
	if err != nil {
		return err
	}
	bar.Finish()
	fmt.Fprint(a.out, describeSample(tally))
	return nil
}

func (a *app) runShell(ctx context.Context) error {
	g, err := a.generator()
	if err != nil {
		return err
	}
	s, err := newSession(ctx, g, a.cfg)
	if err != nil {
		return err
	}
	r := repl.New("qpass > ", a.in, a.out)
	s.register(r)
	r.OnStop(func() {
		if err := s.clipper.Clear(); err != nil {
			a.log.Warn("clear clipboard", zap.Error(err))
		}
	})
	return r.Loop()
}

// newSource builds the configured backend and wraps it with the configured
// rate limit, retry and circuit breaker policies.
func newSource(cfg config.Config, log *otelzap.Logger) (entropy.Source, error) {
	var src entropy.Source
	switch cfg.Source {
	case config.SourceCrypto:
		src = entropy.NewCrypto()
	case config.SourceSimulator:
		var (
			sim *entropy.Simulator
			err error
		)
		if cfg.Seed != 0 {
			sim, err = entropy.NewSeededSimulator(cfg.MaxQubits, cfg.Seed)
		} else {
			sim, err = entropy.NewSimulator(cfg.MaxQubits)
		}
		if err != nil {
			return nil, err
		}
		src = sim
	case config.SourceVault:
		v, err := entropy.NewVault(cfg.Vault.Address, cfg.Vault.Token)
		if err != nil {
			return nil, err
		}
		src = v
	default:
		return nil, errors.Mark(errors.Newf("unknown entropy source %q", cfg.Source), pwgen.ErrInvalidConfiguration)
	}

	if cfg.Rate > 0 {
		src = entropy.RateLimited(src, rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst))
	}
	if cfg.Retries > 0 {
		src = entropy.Retrying(src, uint64(cfg.Retries), nil)
	}
	if cfg.Breaker {
		src = entropy.Breaker(src, entropy.BreakerSettings{
			Name: cfg.Source,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("entropy breaker state changed",
					zap.String("source", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to))
			},
		})
	}
	log.Debug("entropy source ready", zap.String("source", cfg.Source))
	return src, nil
}
