// Package auth authenticates RPC requests with OIDC-issued bearer tokens.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/mnehpets/rpcbind/endpoint"
	"github.com/mnehpets/rpcbind/internal/logctx"
)

// Verifier verifies a raw token. *oidc.IDTokenVerifier implements it.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// Claims are the verified claims of the caller's token.
type Claims struct {
	Subject  string
	Issuer   string
	Audience []string
	Expiry   time.Time

	token *oidc.IDToken
}

// Decode unmarshals the token's full claim set into v.
func (c *Claims) Decode(v any) error {
	if c.token == nil {
		return fmt.Errorf("auth: no token")
	}
	return c.token.Claims(v)
}

// VerifiedEmail returns the email claim if email_verified is true.
func (c *Claims) VerifiedEmail() (string, bool) {
	var info oidc.UserInfo
	if err := c.Decode(&info); err != nil {
		return "", false
	}
	if !info.EmailVerified || info.Email == "" {
		return "", false
	}
	return info.Email, true
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by a Bearer processor.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

type bearerConfig struct {
	oidc     oidc.Config
	logger   *slog.Logger
	optional bool
}

// BearerOption configures a Bearer processor.
type BearerOption func(*bearerConfig)

// WithSkipIssuerCheck disables issuer validation in the token verifier.
// Use this for providers that issue tokens with a per-tenant issuer.
func WithSkipIssuerCheck() BearerOption {
	return func(c *bearerConfig) {
		c.oidc.SkipIssuerCheck = true
	}
}

// WithOptional lets requests without an Authorization header through
// unauthenticated. Invalid tokens are still rejected.
func WithOptional() BearerOption {
	return func(c *bearerConfig) {
		c.optional = true
	}
}

// WithLogger sets the logger for rejected tokens.
func WithLogger(logger *slog.Logger) BearerOption {
	return func(c *bearerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Bearer is an endpoint.Processor that requires a valid bearer token.
type Bearer struct {
	verifier Verifier
	logger   *slog.Logger
	optional bool
}

// NewBearer discovers the issuer's configuration and returns a processor that
// accepts tokens issued for audience.
func NewBearer(ctx context.Context, issuer, audience string, opts ...BearerOption) (*Bearer, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider %q: %w", issuer, err)
	}
	cfg := newBearerConfig(opts)
	cfg.oidc.ClientID = audience
	return newBearer(provider.Verifier(&cfg.oidc), cfg), nil
}

// NewBearerWithVerifier returns a processor using an existing verifier.
// Options that configure verification are ignored.
func NewBearerWithVerifier(v Verifier, opts ...BearerOption) *Bearer {
	return newBearer(v, newBearerConfig(opts))
}

func newBearerConfig(opts []BearerOption) *bearerConfig {
	cfg := &bearerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func newBearer(v Verifier, cfg *bearerConfig) *Bearer {
	return &Bearer{verifier: v, logger: cfg.logger, optional: cfg.optional}
}

func (b *Bearer) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	raw, ok := bearerToken(r)
	if !ok {
		if b.optional && r.Header.Get("Authorization") == "" {
			return next(w, r)
		}
		w.Header().Set("WWW-Authenticate", `Bearer`)
		return endpoint.Error(http.StatusUnauthorized, "missing bearer token", nil)
	}

	ctx := r.Context()
	token, err := b.verifier.Verify(ctx, raw)
	if err != nil {
		b.logger.DebugContext(ctx, "auth.token_rejected", slog.Any("error", err))
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		return endpoint.Error(http.StatusUnauthorized, "invalid bearer token", err)
	}

	claims := &Claims{
		Subject:  token.Subject,
		Issuer:   token.Issuer,
		Audience: token.Audience,
		Expiry:   token.Expiry,
		token:    token,
	}
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	if rd, ok := logctx.RequestDataFrom(ctx); ok {
		rd.Subject = claims.Subject
	} else {
		ctx = logctx.WithRequestData(ctx, &logctx.RequestData{Subject: claims.Subject})
	}
	return next(w, r.WithContext(ctx))
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
