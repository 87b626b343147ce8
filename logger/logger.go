// Package logger builds the zap loggers used by qpass.
package logger

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// New returns a console logger writing to w (stderr when nil) at the named
// level. Passwords go to stdout, so logs never share a stream with them.
func New(level string, w io.Writer) (*otelzap.Logger, error) {
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "log level"), "use one of debug, info, warn, error")
	}
	if w == nil {
		w = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))

	return otelzap.New(zap.New(core), otelzap.WithMinLevel(lvl)), nil
}

// Nop returns a logger that discards everything.
func Nop() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}
