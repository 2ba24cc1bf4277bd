package client

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/mnehpets/rpcbind/auth"
	"github.com/mnehpets/rpcbind/dispatch"
	"github.com/mnehpets/rpcbind/endpoint"
	"github.com/mnehpets/rpcbind/jsonrpc"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type recorder struct {
	mu       sync.Mutex
	messages []string
	subjects []string
}

func (r *recorder) add(ctx context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		r.subjects = append(r.subjects, claims.Subject)
	}
}

func newTable(t *testing.T, rec *recorder) *dispatch.Table {
	t.Helper()
	b := dispatch.NewBuilder()
	require.NoError(t, b.Declare(
		dispatch.Func2("sum", func(_ context.Context, a, b int) (int, error) { return a + b, nil }),
		dispatch.Func1("echo", func(_ context.Context, s string) (string, error) { return s, nil }),
		dispatch.Func1("norm", func(_ context.Context, p point) (float64, error) { return math.Hypot(p.X, p.Y), nil }),
		dispatch.Func2("div", func(_ context.Context, a, b int) (int, error) {
			if b == 0 {
				return 0, dispatch.NewError(dispatch.CodeInvalidParams, "division by zero")
			}
			return a / b, nil
		}).WithParamNames("dividend", "divisor"),
		dispatch.Proc1("log", func(ctx context.Context, s string) error {
			rec.add(ctx, s)
			return nil
		}).Annotate("notification"),
	))
	return b.Build()
}

func newServer(t *testing.T, rec *recorder, processors ...endpoint.Processor) *httptest.Server {
	t.Helper()
	e := jsonrpc.NewEndpoint(newTable(t, rec))
	srv := httptest.NewServer(endpoint.Handler(e.Endpoint, processors...))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Call(t *testing.T) {
	for _, codec := range []dispatch.Codec{dispatch.JSON, dispatch.CBOR} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			srv := newServer(t, &recorder{})
			c := New(srv.URL, WithCodec(codec))
			ctx := context.Background()

			var sum int
			require.NoError(t, c.Call(ctx, "sum", []int{2, 3}, &sum))
			assert.Equal(t, 5, sum)

			var echoed string
			require.NoError(t, c.Call(ctx, "echo", "hello", &echoed))
			assert.Equal(t, "hello", echoed)

			var norm float64
			require.NoError(t, c.Call(ctx, "norm", point{X: 3, Y: 4}, &norm))
			assert.InDelta(t, 5.0, norm, 1e-9)

			var quotient int
			require.NoError(t, c.Call(ctx, "div", map[string]int{"dividend": 9, "divisor": 3}, &quotient))
			assert.Equal(t, 3, quotient)

			require.NoError(t, c.Call(ctx, "sum", []int{1, 1}, nil))
		})
	}
}

func TestClient_Call_JSONDecodedParams(t *testing.T) {
	for _, codec := range []dispatch.Codec{dispatch.JSON, dispatch.CBOR} {
		t.Run(codec.ContentType(), func(t *testing.T) {
			srv := newServer(t, &recorder{})
			c := New(srv.URL, WithCodec(codec))
			ctx := context.Background()

			var positional any
			require.NoError(t, dispatch.JSON.Unmarshal([]byte(`[2, 3]`), &positional))
			var sum int
			require.NoError(t, c.Call(ctx, "sum", positional, &sum))
			assert.Equal(t, 5, sum)

			var named any
			require.NoError(t, dispatch.JSON.Unmarshal([]byte(`{"dividend": 9, "divisor": 3}`), &named))
			var quotient int
			require.NoError(t, c.Call(ctx, "div", named, &quotient))
			assert.Equal(t, 3, quotient)
		})
	}
}

func TestPlainNumbers(t *testing.T) {
	var v any
	require.NoError(t, dispatch.JSON.Unmarshal([]byte(`{"n": 7, "f": 1.5, "list": [1, "x", [2.25]]}`), &v))

	got := plainNumbers(v)
	assert.Equal(t, map[string]any{
		"n":    int64(7),
		"f":    1.5,
		"list": []any{int64(1), "x", []any{2.25}},
	}, got)
}

func TestClient_Errors(t *testing.T) {
	srv := newServer(t, &recorder{})
	c := New(srv.URL)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		params any
		code   dispatch.ErrorCode
	}{
		{"MethodNotFound", "nope", nil, dispatch.CodeMethodNotFound},
		{"WrongArity", "sum", []int{1}, dispatch.CodeInvalidParams},
		{"HandlerError", "div", []int{1, 0}, dispatch.CodeInvalidParams},
		{"NamedWithoutNames", "sum", map[string]int{"a": 1, "b": 2}, dispatch.CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out int
			err := c.Call(ctx, tt.method, tt.params, &out)
			var rpcErr *dispatch.Error
			require.True(t, errors.As(err, &rpcErr), "expected *dispatch.Error, got %v", err)
			assert.Equal(t, tt.code, rpcErr.Code)
		})
	}
}

func TestClient_Notify(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := New(srv.URL)

	require.NoError(t, c.Notify(context.Background(), "log", "first"))
	require.NoError(t, c.Notify(context.Background(), "log", []string{"second"}))
	// Unknown notifications are accepted silently.
	require.NoError(t, c.Notify(context.Background(), "nope", nil))

	assert.Equal(t, []string{"first", "second"}, rec.messages)
}

type staticVerifier map[string]string

func (v staticVerifier) Verify(_ context.Context, raw string) (*oidc.IDToken, error) {
	sub, ok := v[raw]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &oidc.IDToken{Subject: sub}, nil
}

func TestClient_TokenSource(t *testing.T) {
	rec := &recorder{}
	bearer := auth.NewBearerWithVerifier(staticVerifier{"good-token": "alice"})
	srv := newServer(t, rec, bearer)
	ctx := context.Background()

	err := New(srv.URL).Call(ctx, "sum", []int{1, 2}, nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr), "expected *HTTPError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)

	c := New(srv.URL, WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "good-token"})))
	var sum int
	require.NoError(t, c.Call(ctx, "sum", []int{1, 2}, &sum))
	assert.Equal(t, 3, sum)

	require.NoError(t, c.Notify(ctx, "log", "hi"))
	assert.Equal(t, []string{"alice"}, rec.subjects)
}
