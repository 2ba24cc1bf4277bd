package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mnehpets/rpcbind/endpoint"
)

func serveWith(p *HeadersProcessor, r *http.Request) (*httptest.ResponseRecorder, bool) {
	called := false
	h := endpoint.Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (endpoint.Renderer, error) {
		called = true
		return &endpoint.NoContentRenderer{Status: http.StatusOK}, nil
	}, p)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w, called
}

func TestHeadersProcessor_Defaults(t *testing.T) {
	w, called := serveWith(NewHeadersProcessor(), httptest.NewRequest(http.MethodPost, "/rpc", nil))
	if !called {
		t.Fatal("endpoint was not called")
	}

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS should be off by default, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS should be off by default, got %q", got)
	}
}

func TestHeadersProcessor_HSTS(t *testing.T) {
	w, _ := serveWith(NewHeadersProcessor(WithHSTS(600)), httptest.NewRequest(http.MethodPost, "/rpc", nil))
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=600; includeSubDomains" {
		t.Errorf("HSTS: got %q", got)
	}
}

func TestHeadersProcessor_CORS(t *testing.T) {
	p := NewHeadersProcessor(WithAllowedOrigins("https://app.example.com"))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantCalled bool
	}{
		{"SameOrigin", http.MethodPost, "", "", true},
		{"Allowed", http.MethodPost, "https://app.example.com", "https://app.example.com", true},
		{"Denied", http.MethodPost, "https://evil.example.com", "", true},
		{"Preflight", http.MethodOptions, "https://app.example.com", "https://app.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/rpc", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				r.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w, called := serveWith(p, r)
			if called != tt.wantCalled {
				t.Errorf("endpoint called = %v, want %v", called, tt.wantCalled)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin: got %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestHeadersProcessor_Preflight(t *testing.T) {
	p := NewHeadersProcessor(WithAllowedOrigins("*"))
	r := httptest.NewRequest(http.MethodOptions, "/rpc", nil)
	r.Header.Set("Origin", "https://any.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w, _ := serveWith(p, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "" {
		t.Errorf("Content-Type: got %q, want none", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods: got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Accept, Authorization, Content-Type" {
		t.Errorf("Access-Control-Allow-Headers: got %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("Access-Control-Max-Age: got %q", got)
	}
}

func TestHeadersProcessor_WildcardWithCredentials(t *testing.T) {
	p := NewHeadersProcessor(WithCORS(&CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}))
	r := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	r.Header.Set("Origin", "https://any.example.com")

	w, _ := serveWith(p, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("wildcard must not be used with credentials, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("credentials header without an allowed origin, got %q", got)
	}
}

func TestHeadersProcessor_NoOriginsLeavesCORSOff(t *testing.T) {
	p := NewHeadersProcessor(WithAllowedOrigins())
	if p.CORS != nil {
		t.Fatal("expected CORS to stay disabled")
	}
}
