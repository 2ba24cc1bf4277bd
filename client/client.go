// Package client calls methods served by the jsonrpc package over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sync/atomic"

	"golang.org/x/oauth2"

	"github.com/mnehpets/rpcbind/dispatch"
)

// maxResponseBytes bounds the size of a response body.
const maxResponseBytes = 4 << 20

// Client sends JSON-RPC 2.0 requests to a single URL.
type Client struct {
	url         string
	codec       dispatch.Codec
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	nextID      atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithCodec selects the request encoding. The default is dispatch.JSON.
func WithCodec(codec dispatch.Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenSource authenticates every request with a bearer token from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

// New creates a client for the endpoint at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		codec:      dispatch.JSON,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokenSource != nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		c.httpClient = oauth2.NewClient(ctx, c.tokenSource)
	}
	return c
}

// HTTPError is returned when the server answers with a non-RPC HTTP error,
// for example from a processor rejecting the request.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("client: http status %d: %s", e.StatusCode, e.Body)
}

// Call invokes method and decodes its result into result, which may be nil
// to discard it. params may be nil, a slice, a map or a struct; any other
// value is sent as the single positional parameter. json.Number values, as
// produced by dispatch.JSON, are sent as plain numbers.
//
// Errors returned by the server are *dispatch.Error.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	body, err := c.roundTrip(ctx, envelope(method, params, id))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("client: empty response")
	}

	var resp struct {
		Result any             `json:"result" cbor:"result"`
		Error  *dispatch.Error `json:"error" cbor:"error"`
	}
	if err := c.codec.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil {
		return nil
	}
	// Re-encode the canonical result so the caller's type drives decoding.
	raw, err := c.codec.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("client: decode result: %w", err)
	}
	if err := c.codec.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("client: decode result: %w", err)
	}
	return nil
}

// Notify sends method without an id. The server does not report the outcome.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	_, err := c.roundTrip(ctx, envelope(method, params, nil))
	return err
}

func envelope(method string, params, id any) map[string]any {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
	}
	if id != nil {
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = wireParams(params)
	}
	return msg
}

func wireParams(params any) any {
	params = plainNumbers(params)
	v := reflect.ValueOf(params)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return params
	default:
		return []any{params}
	}
}

// plainNumbers replaces json.Number values in a decoded JSON tree with int64 or
// float64 so that codecs other than JSON encode them as numbers.
func plainNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = plainNumbers(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = plainNumbers(e)
		}
		return out
	default:
		return v
	}
}

func (c *Client) roundTrip(ctx context.Context, msg map[string]any) ([]byte, error) {
	payload, err := c.codec.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", c.codec.ContentType())
	req.Header.Set("Accept", c.codec.ContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
}
