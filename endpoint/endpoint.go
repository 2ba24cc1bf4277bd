// Package endpoint provides the typed HTTP handler framework the RPC server is
// built on.
//
// A request passes through three phases:
//
//  1. Processors: middleware that may inspect the request, enrich its context or
//     reject it (authentication, logging).
//  2. Endpoint: the EndpointFunc receives params decoded from the request by
//     struct tags (see Unmarshal), executes the call and returns a Renderer.
//     It does not write to the response directly.
//  3. Render: the returned Renderer writes the status, headers and body.
//
// Errors returned from any phase are written as plain-text HTTP errors; an
// *EndpointError selects the status code. An *EndpointError with a status
// below 400 is written as a bare status line.
package endpoint

import (
	"errors"
	"log/slog"
	"net/http"
)

// EndpointError is a client-visible error that maps directly to an HTTP status code.
type EndpointError struct {
	Status int
	// Message is a short, human-readable description suitable for an HTTP error body.
	Message string
	Cause   error
}

func (e *EndpointError) Error() string {
	if e == nil {
		return "endpoint: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *EndpointError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error creates a new EndpointError. An err that already is an EndpointError
// is returned unchanged.
func Error(status int, message string, err error) error {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return err
	}
	return &EndpointError{Status: status, Message: message, Cause: err}
}

// Renderer writes a response. Renderers MUST call w.WriteHeader and may set
// Content-Type before doing so. A returned error means the response could not
// be written.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(w http.ResponseWriter, r *http.Request) error

func (f RendererFunc) Render(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Processor is middleware-style logic that runs before the endpoint.
//
// Processors MUST call next unless they short-circuit the request by returning
// an error, and MUST NOT write the response themselves.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// EndpointFunc receives the decoded params and returns the Renderer for the
// response.
type EndpointFunc[P any] func(w http.ResponseWriter, r *http.Request, params P) (Renderer, error)

// EndpointHandler is the http.Handler wrapper for an EndpointFunc.
type EndpointHandler[P any] struct {
	Endpoint   EndpointFunc[P]
	Processors []Processor
	// Logger receives server-side failures. Nil means slog.Default().
	Logger *slog.Logger
}

// Handler constructs an EndpointHandler. It exists so that P can be inferred
// from fn.
func Handler[P any](fn EndpointFunc[P], processors ...Processor) *EndpointHandler[P] {
	return &EndpointHandler[P]{
		Endpoint:   fn,
		Processors: processors,
	}
}

// HandleFunc adapts an EndpointFunc into an http.HandlerFunc.
func HandleFunc[P any](fn EndpointFunc[P], processors ...Processor) http.HandlerFunc {
	return Handler(fn, processors...).ServeHTTP
}

// WithLogger sets the logger and returns h.
func (h *EndpointHandler[P]) WithLogger(l *slog.Logger) *EndpointHandler[P] {
	h.Logger = l
	return h
}

// ServeHTTP implements http.Handler.
func (h *EndpointHandler[P]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Endpoint == nil {
		h.writeError(w, r, errors.New("endpoint: nil EndpointFunc"))
		return
	}
	if err := h.chain(0, w, r); err != nil {
		h.writeError(w, r, err)
	}
}

// chain runs processor i, or the endpoint once every processor has called next.
func (h *EndpointHandler[P]) chain(i int, w http.ResponseWriter, r *http.Request) error {
	if i < len(h.Processors) {
		p := h.Processors[i]
		if p == nil {
			return errors.New("endpoint: nil processor")
		}
		return p.Process(w, r, func(w http.ResponseWriter, r *http.Request) error {
			return h.chain(i+1, w, r)
		})
	}

	var params P
	if err := Unmarshal(r, &params); err != nil {
		return err
	}
	renderer, err := h.Endpoint(w, r, params)
	if err != nil {
		return err
	}
	if renderer == nil {
		return errors.New("endpoint: nil renderer")
	}
	return renderer.Render(w, r)
}

func (h *EndpointHandler[P]) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var ee *EndpointError
	if errors.As(err, &ee) && ee != nil {
		if ee.Status >= 100 {
			status = ee.Status
		}
		message = ee.Message
		if message == "" {
			message = http.StatusText(status)
		}
	}
	// Processors short-circuit with a success status, e.g. a CORS preflight
	// answered with 204. Such responses carry no body.
	if status < http.StatusBadRequest {
		w.WriteHeader(status)
		return
	}
	if status >= http.StatusInternalServerError {
		logger := h.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed", "status", status, "error", err)
	}
	http.Error(w, message, status)
}
