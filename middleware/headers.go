// Package middleware holds endpoint processors shared by RPC servers.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mnehpets/rpcbind/endpoint"
)

// HeadersProcessor sets response headers suited to an RPC API and answers
// CORS preflight requests for browser clients.
//
// Defaults from NewHeadersProcessor:
//   - X-Content-Type-Options: nosniff
//   - Referrer-Policy: no-referrer
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - Cache-Control: no-store
//   - no HSTS, no CORS
type HeadersProcessor struct {
	// HSTSMaxAge enables Strict-Transport-Security when positive (seconds).
	HSTSMaxAge int

	ReferrerPolicy        string
	ContentSecurityPolicy string
	CacheControl          string
	NoSniff               bool

	// CORS enables cross-origin access. Nil disables CORS headers.
	CORS *CORSConfig
}

// CORSConfig configures Cross-Origin Resource Sharing for the RPC endpoint.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the endpoint. "*" allows
	// any origin unless AllowCredentials is set.
	AllowedOrigins []string
	// AllowedHeaders defaults to Accept, Authorization and Content-Type.
	AllowedHeaders []string
	// AllowCredentials lets browsers send cookies and auth headers.
	AllowCredentials bool
	// MaxAge is how long (seconds) preflight results may be cached.
	MaxAge int
}

var defaultAllowedHeaders = []string{"Accept", "Authorization", "Content-Type"}

// HeadersOption configures a HeadersProcessor.
type HeadersOption func(*HeadersProcessor)

// NewHeadersProcessor creates a HeadersProcessor with API defaults.
func NewHeadersProcessor(opts ...HeadersOption) *HeadersProcessor {
	p := &HeadersProcessor{
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		CacheControl:          "no-store",
		NoSniff:               true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithHSTS enables Strict-Transport-Security with includeSubDomains.
func WithHSTS(maxAge int) HeadersOption {
	return func(p *HeadersProcessor) {
		p.HSTSMaxAge = maxAge
	}
}

// WithCORS allows cross-origin calls from origins.
func WithCORS(config *CORSConfig) HeadersOption {
	return func(p *HeadersProcessor) {
		p.CORS = config
	}
}

// WithAllowedOrigins is shorthand for WithCORS with default settings. No
// origins leaves CORS disabled.
func WithAllowedOrigins(origins ...string) HeadersOption {
	return func(p *HeadersProcessor) {
		if len(origins) == 0 {
			return
		}
		p.CORS = &CORSConfig{AllowedOrigins: origins, MaxAge: 3600}
	}
}

// Process implements endpoint.Processor.
func (p *HeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	h := w.Header()
	if p.HSTSMaxAge > 0 {
		h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(p.HSTSMaxAge)+"; includeSubDomains")
	}
	if p.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", p.ReferrerPolicy)
	}
	if p.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", p.ContentSecurityPolicy)
	}
	if p.CacheControl != "" {
		h.Set("Cache-Control", p.CacheControl)
	}
	if p.NoSniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}

	if p.CORS != nil {
		setCORSHeaders(w, r, p.CORS)

		// Preflight requests never reach the endpoint, which only accepts POST.
		if r.Method == http.MethodOptions &&
			r.Header.Get("Origin") != "" &&
			r.Header.Get("Access-Control-Request-Method") != "" {
			return endpoint.Error(http.StatusNoContent, "", nil)
		}
	}

	return next(w, r)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	h := w.Header()
	h.Add("Vary", "Origin")

	switch {
	case slices.Contains(config.AllowedOrigins, origin):
		h.Set("Access-Control-Allow-Origin", origin)
	case slices.Contains(config.AllowedOrigins, "*") && !config.AllowCredentials:
		// Wildcard is never combined with credentials.
		h.Set("Access-Control-Allow-Origin", "*")
	default:
		return
	}

	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}

	if r.Method == http.MethodOptions {
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		headers := config.AllowedHeaders
		if len(headers) == 0 {
			headers = defaultAllowedHeaders
		}
		h.Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))
		if config.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
		}
	}
}

var _ endpoint.Processor = (*HeadersProcessor)(nil)
