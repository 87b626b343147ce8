// Package config loads qpass settings from flags, QPASS_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/avahowell/qpass/entropy"
	"github.com/avahowell/qpass/logger"
	"github.com/avahowell/qpass/pwgen"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Source kinds.
const (
	SourceCrypto    = "crypto"
	SourceSimulator = "simulator"
	SourceVault     = "vault"
)

type (
	// Config holds every setting qpass reads.
	Config struct {
		Length      int           `mapstructure:"length" validate:"gte=1"`
		Alphabet    string        `mapstructure:"alphabet" validate:"required"`
		Count       int           `mapstructure:"count" validate:"gte=1"`
		Uniform     bool          `mapstructure:"uniform"`
		Source      string        `mapstructure:"source" validate:"oneof=crypto simulator vault"`
		Seed        int64         `mapstructure:"seed"`
		MaxQubits   int           `mapstructure:"max-qubits" validate:"gte=1"`
		Rate        float64       `mapstructure:"rate" validate:"gte=0"`
		Burst       int           `mapstructure:"burst" validate:"gte=1"`
		Retries     int           `mapstructure:"retries" validate:"gte=0"`
		Breaker     bool          `mapstructure:"breaker"`
		Clip        bool          `mapstructure:"clip"`
		ClipTimeout time.Duration `mapstructure:"clip-timeout" validate:"gt=0"`
		LogLevel    string        `mapstructure:"log-level" validate:"oneof=debug info warn error"`
		Vault       VaultConfig   `mapstructure:"vault"`
	}

	// VaultConfig locates the Vault server used by the vault source.
	VaultConfig struct {
		Address string `mapstructure:"address"`
		Token   string `mapstructure:"token"`
	}
)

var defaults = map[string]interface{}{
	"length":        pwgen.DefaultLength,
	"alphabet":      pwgen.DefaultAlphabet,
	"count":         1,
	"uniform":       false,
	"source":        SourceCrypto,
	"seed":          int64(0),
	"max-qubits":    entropy.DefaultMaxQubits,
	"rate":          0.0,
	"burst":         1,
	"retries":       0,
	"breaker":       false,
	"clip":          false,
	"clip-timeout":  30 * time.Second,
	"log-level":     logger.DefaultLevel,
	"vault.address": "",
	"vault.token":   "",
}

// RegisterFlags adds the qpass flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP("length", "l", pwgen.DefaultLength, "password length in symbols")
	fs.StringP("alphabet", "a", pwgen.DefaultAlphabet, "symbols to draw from, or a charset name (default, alpha, alnum, lower, digits, hex)")
	fs.IntP("count", "c", 1, "number of passwords to generate")
	fs.Bool("uniform", false, "use rejection sampling instead of the modulo mapping")
	fs.StringP("source", "s", SourceCrypto, "entropy source: crypto, simulator or vault")
	fs.Int64("seed", 0, "simulator seed; 0 seeds from the system")
	fs.Int("max-qubits", entropy.DefaultMaxQubits, "simulator register size")
	fs.Float64("rate", 0, "maximum entropy requests per second; 0 is unlimited")
	fs.Int("burst", 1, "entropy request burst allowed by --rate")
	fs.Int("retries", 0, "retry failed entropy requests this many times")
	fs.Bool("breaker", false, "fail fast while the entropy backend keeps failing")
	fs.Bool("clip", false, "copy the last password to the clipboard")
	fs.Duration("clip-timeout", 30*time.Second, "clear the clipboard after this long")
	fs.String("log-level", logger.DefaultLevel, "debug, info, warn or error")
	fs.String("vault-address", "", "Vault server address for the vault source")
	fs.String("vault-token", "", "Vault token for the vault source")
}

// Load merges defaults, the config file at path (if any), the environment
// and the flags in fs, then validates the result.
func Load(v *viper.Viper, fs *pflag.FlagSet, path string) (Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("QPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, errors.Wrap(err, "bind flags")
		}
		for key, flag := range map[string]string{"vault.address": "vault-address", "vault.token": "vault-token"} {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, errors.Wrapf(err, "bind %s", flag)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against its field constraints.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.WithHint(errors.Mark(errors.Wrap(err, "config"), pwgen.ErrInvalidConfiguration),
			"see qpass --help for accepted values")
	}
	return nil
}
