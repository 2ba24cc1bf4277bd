// Package jsonrpc serves a dispatch.Table as a JSON-RPC 2.0 endpoint,
// integrated with the endpoint processor chain.
//
// This package implements the JSON-RPC 2.0 specification (https://www.jsonrpc.org/specification)
// and JSON-RPC over HTTP (https://www.simple-is-better.org/json-rpc/transport_http.html).
//
// # Basic Usage
//
// Build a table, then serve it via HTTP:
//
//	b := dispatch.NewBuilder()
//	b.Declare(dispatch.Func2("sum", func(ctx context.Context, a, b int) (int, error) {
//	    return a + b, nil
//	}))
//	e := jsonrpc.NewEndpoint(b.Build(), jsonrpc.WithDiscovery())
//	http.Handle("/rpc", endpoint.Handler(e.Endpoint))
//	http.ListenAndServe(":8080", nil)
//
// # Encodings
//
// Requests are accepted as application/json (the default when no Content-Type
// is sent) or application/cbor. The response uses the request's encoding; a
// client whose Accept header excludes it receives 406.
//
// # Requests and Notifications
//
// A request with an id receives a result or an error object. A request
// without an id, or one addressed to a notification entry, is answered with
// 204 No Content once the handler has run. Batch requests are rejected with
// an Invalid Request error.
//
// # Error Handling
//
// Handlers return *dispatch.Error to choose the code sent to the caller:
//
//	return 0, dispatch.NewError(dispatch.CodeInvalidParams, "division by zero")
//
// Any other error is reported as Internal Error with the error's message.
//
// # Processor Integration
//
// Processors can be passed to endpoint.Handler for cross-cutting concerns:
//
//	http.Handle("/rpc", endpoint.Handler(e.Endpoint, authProcessor))
//
// Processor errors return HTTP error responses (not JSON-RPC errors).
package jsonrpc
