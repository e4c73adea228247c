// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package config loads credgate configuration.
//
// Values are layered: built-in defaults, then the YAML file, then command-line
// flags that were set explicitly. Secrets never come from the file; the token
// signing secret and the database URL are read from the environment.
package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/credgate/credgate/internal/xdg"
)

// Environment variables holding secrets.
const (
	EnvTokenSecret = "CREDGATE_TOKEN_SECRET" //nolint:gosec // G101: variable name, not a credential
	EnvDatabaseURL = "DATABASE_URL"
)

// Config is the complete credgate configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Password PasswordConfig `koanf:"password" yaml:"password"`
	Token    TokenConfig    `koanf:"token" yaml:"token"`
	Corpus   CorpusConfig   `koanf:"corpus" yaml:"corpus"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
}

// LogConfig controls log output.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format" jsonschema:"enum=text,enum=json"`
	Level  string `koanf:"level" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// PasswordConfig controls hashing.
type PasswordConfig struct {
	WorkFactor     int `koanf:"work_factor" yaml:"work_factor" jsonschema:"minimum=4,maximum=31"`
	MaxConcurrency int `koanf:"max_concurrency" yaml:"max_concurrency" jsonschema:"minimum=0"`
}

// TokenConfig controls token issuance. Secret is read from EnvTokenSecret.
type TokenConfig struct {
	AccessLifetime time.Duration `koanf:"access_lifetime" yaml:"access_lifetime"`
	Issuer         string        `koanf:"issuer" yaml:"issuer"`
	Leeway         time.Duration `koanf:"leeway" yaml:"leeway"`
	Secret         string        `koanf:"-" yaml:"-"`
}

// CorpusConfig selects the common-password list. An empty path uses the
// embedded list.
type CorpusConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// DatabaseConfig controls the PostgreSQL pool. URL is read from EnvDatabaseURL.
type DatabaseConfig struct {
	MaxConns        int32         `koanf:"max_conns" yaml:"max_conns" jsonschema:"minimum=0"`
	ConnectAttempts int           `koanf:"connect_attempts" yaml:"connect_attempts" jsonschema:"minimum=0"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff" yaml:"connect_backoff"`
	URL             string        `koanf:"-" yaml:"-"`
}

// defaults are loaded before the file. Durations are strings so the merged
// tree validates against the schema the same way a file would.
var defaults = map[string]any{
	"log.format":                "text",
	"log.level":                 "info",
	"password.work_factor":      13,
	"password.max_concurrency":  0,
	"token.access_lifetime":     "15m",
	"token.issuer":              "",
	"token.leeway":              "0s",
	"corpus.path":               "",
	"database.max_conns":        4,
	"database.connect_attempts": 5,
	"database.connect_backoff":  "200ms",
}

// flagKeys maps command-line flags onto config keys. Flags not listed are
// not configuration.
var flagKeys = map[string]string{
	"log-format":      "log.format",
	"log-level":       "log.level",
	"work-factor":     "password.work_factor",
	"access-lifetime": "token.access_lifetime",
	"corpus":          "corpus.path",
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load("", nil)
	if err != nil {
		// defaults are static and always valid
		panic(err)
	}
	return cfg
}

// Load builds the configuration. When path is empty the default file under
// the XDG config directory is used if it exists; an explicit path must exist.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if path == "" {
		def, err := xdg.ConfigFile()
		if err == nil {
			if _, statErr := os.Stat(def); statErr == nil {
				path = def
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		code := "CONFIG_READ_FAILED"
		if errors.Is(err, fs.ErrNotExist) {
			code = "CONFIG_NOT_FOUND"
		}
		return nil, oops.Code(code).With("path", path).Wrap(err)
	}

	cfg, err := load(path, flags)
	if err != nil {
		return nil, err
	}
	cfg.Token.Secret = os.Getenv(EnvTokenSecret)
	cfg.Database.URL = os.Getenv(EnvDatabaseURL)
	return cfg, nil
}

func load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			if f.Value.Type() == "duration" {
				return key, f.Value.String()
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := validateTree(k.Raw()); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return &cfg, nil
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Password.WorkFactor < bcrypt.MinCost || c.Password.WorkFactor > bcrypt.MaxCost {
		return invalid("password.work_factor", "must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Token.AccessLifetime <= 0 {
		return invalid("token.access_lifetime", "must be positive")
	}
	if c.Token.Leeway < 0 {
		return invalid("token.leeway", "cannot be negative")
	}
	if c.Database.ConnectBackoff <= 0 {
		return invalid("database.connect_backoff", "must be positive")
	}
	return nil
}

// Sources reports which secrets were found in the environment, for display.
func (c *Config) Sources() map[string]string {
	return map[string]string{
		EnvTokenSecret: maskSecret(c.Token.Secret),
		EnvDatabaseURL: maskURL(c.Database.URL),
	}
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(key+" "+format, args...)
}

// jsonTree normalises a koanf tree into plain JSON values for schema
// validation.
func jsonTree(raw map[string]any) ([]byte, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return data, nil
}
