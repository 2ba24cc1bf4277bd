// Package config loads server settings from the environment.
//
// Variables are read from the process environment, optionally seeded from
// .env files. Variables already set in the environment take precedence over
// the files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/mnehpets/rpcbind/internal/logctx"
)

// Config holds the server settings.
type Config struct {
	// Addr is the listen address. ENV: RPCBIND_ADDR
	Addr string `env:"RPCBIND_ADDR,default=:8080"`
	// LogLevel is one of debug, info, warn or error. ENV: RPCBIND_LOG_LEVEL
	LogLevel LogLevel `env:"RPCBIND_LOG_LEVEL,default=info"`
	// LogFormat is text or json. ENV: RPCBIND_LOG_FORMAT
	LogFormat string `env:"RPCBIND_LOG_FORMAT,default=text"`
	// Discovery enables rpc.discover. ENV: RPCBIND_DISCOVERY
	Discovery bool `env:"RPCBIND_DISCOVERY,default=true"`
	// OIDCIssuer enables bearer authentication when set. ENV: RPCBIND_OIDC_ISSUER
	OIDCIssuer string `env:"RPCBIND_OIDC_ISSUER"`
	// OIDCAudience is the expected token audience. ENV: RPCBIND_OIDC_AUDIENCE
	OIDCAudience string `env:"RPCBIND_OIDC_AUDIENCE"`
	// OIDCSkipIssuerCheck accepts tokens whose issuer differs from
	// OIDCIssuer, as issued by multi-tenant providers.
	// ENV: RPCBIND_OIDC_SKIP_ISSUER_CHECK
	OIDCSkipIssuerCheck bool `env:"RPCBIND_OIDC_SKIP_ISSUER_CHECK,default=false"`
	// CORSOrigins is a comma separated list of browser origins allowed to
	// call the endpoint. ENV: RPCBIND_CORS_ORIGINS
	CORSOrigins string `env:"RPCBIND_CORS_ORIGINS"`
	// ShutdownTimeout bounds graceful shutdown. ENV: RPCBIND_SHUTDOWN_TIMEOUT
	ShutdownTimeout time.Duration `env:"RPCBIND_SHUTDOWN_TIMEOUT,default=10s"`
}

// LogLevel is a slog.Level decoded from its text form.
type LogLevel slog.Level

// Decode implements envdecode.Decoder.
func (l *LogLevel) Decode(s string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	*l = LogLevel(lvl)
	return nil
}

func (l LogLevel) String() string { return slog.Level(l).String() }

// Load reads the given .env files (".env" when none are given), then decodes
// the environment into a Config. Missing files are ignored.
func Load(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if c.OIDCIssuer != "" && c.OIDCAudience == "" {
		return errors.New("config: RPCBIND_OIDC_AUDIENCE is required when RPCBIND_OIDC_ISSUER is set")
	}
	return nil
}

// AuthEnabled reports whether bearer authentication is configured.
func (c *Config) AuthEnabled() bool {
	return c.OIDCIssuer != ""
}

// AllowedOrigins splits CORSOrigins.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// NewLogger builds a logger writing to w in the configured format. Records
// carry the request and RPC attributes found on their context.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.Level(c.LogLevel)}
	var h slog.Handler
	if c.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(logctx.Handler{Handler: h})
}
