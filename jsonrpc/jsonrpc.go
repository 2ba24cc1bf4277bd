package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/mnehpets/rpcbind/dispatch"
	"github.com/mnehpets/rpcbind/endpoint"
	"github.com/mnehpets/rpcbind/internal/logctx"
)

// DiscoverMethod is the method name answered by endpoints created with
// WithDiscovery.
const DiscoverMethod = "rpc.discover"

const version = "2.0"

var (
	jsonMediaType = contenttype.NewMediaType(dispatch.JSON.ContentType())
	cborMediaType = contenttype.NewMediaType(dispatch.CBOR.ContentType())
)

// JSONRPCEndpoint serves the entries of a frozen dispatch table.
// Use endpoint.Handler(e.Endpoint, processors...) to create an http.Handler.
type JSONRPCEndpoint struct {
	table     *dispatch.Table
	logger    *slog.Logger
	discovery bool
}

// Option configures a JSONRPCEndpoint.
type Option func(*JSONRPCEndpoint)

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *JSONRPCEndpoint) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDiscovery answers "rpc.discover" with a description of every entry in
// the table. A table entry with the same name takes precedence.
func WithDiscovery() Option {
	return func(e *JSONRPCEndpoint) {
		e.discovery = true
	}
}

// NewEndpoint creates an endpoint serving table.
func NewEndpoint(table *dispatch.Table, opts ...Option) *JSONRPCEndpoint {
	e := &JSONRPCEndpoint{
		table:  table,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// rpcParams receives the raw body. The JSON-RPC envelope is decoded by the
// endpoint so that parse failures become JSON-RPC errors instead of HTTP ones.
type rpcParams struct {
	Body []byte `body:""`
}

// Endpoint is the endpoint function that processes JSON-RPC requests.
// Pass to endpoint.Handler() to create an http.Handler.
func (e *JSONRPCEndpoint) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	codec, err := requestCodec(r)
	if err != nil {
		return nil, err
	}
	available := []contenttype.MediaType{contenttype.NewMediaType(codec.ContentType())}
	if _, _, err := contenttype.GetAcceptableMediaType(r, available); err != nil {
		return nil, endpoint.Error(http.StatusNotAcceptable, "responses are encoded as "+codec.ContentType(), err)
	}

	ctx := r.Context()
	rd, ok := logctx.RequestDataFrom(ctx)
	if !ok {
		rd = &logctx.RequestData{}
		ctx = logctx.WithRequestData(ctx, rd)
	}
	if rd.TraceID == "" {
		rd.TraceID = uuid.NewString()
	}
	if rd.RemoteAddr == "" {
		rd.RemoteAddr = r.RemoteAddr
	}

	return e.handleBody(ctx, codec, params.Body), nil
}

// requestCodec selects the codec for the request's Content-Type. A missing
// Content-Type is treated as JSON.
func requestCodec(r *http.Request) (dispatch.Codec, error) {
	if r.Header.Get("Content-Type") == "" {
		return dispatch.JSON, nil
	}
	ctype, err := contenttype.GetMediaType(r)
	if err == nil {
		switch {
		case ctype.Matches(jsonMediaType):
			return dispatch.JSON, nil
		case ctype.Matches(cborMediaType):
			return dispatch.CBOR, nil
		}
	}
	return nil, endpoint.Error(http.StatusUnsupportedMediaType, "Content-Type must be application/json or application/cbor", err)
}

// request is a decoded JSON-RPC request envelope.
type request struct {
	Method string
	Params dispatch.Params
	// ID is nil for notifications.
	ID any
}

// handleBody processes a single request body and returns a renderer.
func (e *JSONRPCEndpoint) handleBody(ctx context.Context, codec dispatch.Codec, body []byte) endpoint.Renderer {
	var msg any
	if err := codec.Unmarshal(body, &msg); err != nil {
		e.logger.DebugContext(ctx, "jsonrpc.parse_error", slog.Any("error", err))
		return e.errorRenderer(codec, nil, dispatch.NewError(dispatch.CodeParseError, "parse error"))
	}

	obj, ok := msg.(map[string]any)
	if !ok {
		if _, batch := msg.([]any); batch {
			return e.errorRenderer(codec, nil, dispatch.NewError(dispatch.CodeInvalidRequest, "batch requests are not supported"))
		}
		return e.errorRenderer(codec, nil, dispatch.NewError(dispatch.CodeInvalidRequest, "invalid request"))
	}

	req, rpcErr := parseRequest(codec, obj)
	if rpcErr != nil {
		return e.errorRenderer(codec, req.ID, rpcErr)
	}

	msgType := "request"
	if req.ID == nil {
		msgType = "notification"
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     idString(req.ID),
		Type:   msgType,
	})

	entry, ok := e.table.Lookup(req.Method)
	if !ok {
		if req.ID == nil {
			e.logger.DebugContext(ctx, "jsonrpc.unknown_notification")
			return &endpoint.NoContentRenderer{}
		}
		if e.discovery && req.Method == DiscoverMethod {
			return e.respond(ctx, codec, req.ID, e.discover())
		}
		e.logger.DebugContext(ctx, "jsonrpc.method_not_found")
		return e.errorRenderer(codec, req.ID, dispatch.Errorf(dispatch.CodeMethodNotFound, "method not found: %s", req.Method))
	}

	switch entry := entry.(type) {
	case *dispatch.NotificationEntry:
		entry.Invoke(ctx, req.Params)
		return &endpoint.NoContentRenderer{}
	case *dispatch.MethodEntry:
		result, err := entry.Invoke(ctx, req.Params)
		if req.ID == nil {
			if err != nil {
				e.logger.DebugContext(ctx, "jsonrpc.notification_error", slog.Any("error", err))
			}
			return &endpoint.NoContentRenderer{}
		}
		if err != nil {
			return e.errorRenderer(codec, req.ID, mapError(err))
		}
		return e.respond(ctx, codec, req.ID, result)
	default:
		return e.errorRenderer(codec, req.ID, dispatch.NewError(dispatch.CodeInternalError, "internal error"))
	}
}

// parseRequest validates the envelope. On failure the returned request still
// carries the id when one could be read.
func parseRequest(codec dispatch.Codec, obj map[string]any) (request, *dispatch.Error) {
	var req request

	if raw, present := obj["id"]; present && raw != nil {
		if !validID(raw) {
			return req, dispatch.NewError(dispatch.CodeInvalidRequest, "id must be a string or a number")
		}
		req.ID = raw
	}

	if v, _ := obj["jsonrpc"].(string); v != version {
		return req, dispatch.NewError(dispatch.CodeInvalidRequest, "invalid request")
	}

	method, _ := obj["method"].(string)
	if method == "" {
		return req, dispatch.NewError(dispatch.CodeInvalidRequest, "method required")
	}
	req.Method = method

	params, err := dispatch.ParamsFromValue(codec, obj["params"])
	if err != nil {
		return req, mapError(err)
	}
	req.Params = params
	return req, nil
}

func validID(id any) bool {
	switch id.(type) {
	case string, json.Number, float64, float32, int64, uint64:
		return true
	default:
		return false
	}
}

func idString(id any) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}

// discover returns the table description as a codec-neutral value.
func (e *JSONRPCEndpoint) discover() any {
	data, err := json.Marshal(e.table.Describe())
	if err != nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

// mapError converts any error to a JSON-RPC error.
// *dispatch.Error values preserve their code; other errors become InternalError.
func mapError(err error) *dispatch.Error {
	var rpcErr *dispatch.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return dispatch.NewError(dispatch.CodeInternalError, err.Error())
}

func (e *JSONRPCEndpoint) respond(ctx context.Context, codec dispatch.Codec, id, result any) endpoint.Renderer {
	body, err := codec.Marshal(map[string]any{
		"jsonrpc": version,
		"result":  result,
		"id":      id,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "jsonrpc.encode_failed", slog.Any("error", err))
		return e.errorRenderer(codec, id, dispatch.NewError(dispatch.CodeInternalError, "failed to encode result"))
	}
	return &endpoint.BytesRenderer{ContentType: codec.ContentType(), Body: body}
}

func (e *JSONRPCEndpoint) errorRenderer(codec dispatch.Codec, id any, rpcErr *dispatch.Error) endpoint.Renderer {
	errObj := map[string]any{
		"code":    int(rpcErr.Code),
		"message": rpcErr.Message,
	}
	if rpcErr.Data != nil {
		errObj["data"] = rpcErr.Data
	}
	body, err := codec.Marshal(map[string]any{
		"jsonrpc": version,
		"error":   errObj,
		"id":      id,
	})
	if err != nil {
		// Data could not be encoded; drop it.
		delete(errObj, "data")
		body, err = codec.Marshal(map[string]any{
			"jsonrpc": version,
			"error":   errObj,
			"id":      id,
		})
		if err != nil {
			return endpoint.RendererFunc(func(http.ResponseWriter, *http.Request) error { return err })
		}
	}
	return &endpoint.BytesRenderer{ContentType: codec.ContentType(), Body: body}
}
