// Package dispatch binds typed handler functions into a frozen dispatch table
// for a JSON-RPC style service.
//
// Handlers are declared on a Builder, either through the typed adapters or by
// scanning the exported methods of a receiver:
//
//	b := dispatch.NewBuilder()
//	b.Declare(
//	    dispatch.Func2("sum", func(ctx context.Context, a, b int) (int, error) { return a + b, nil }),
//	    dispatch.Func0("internalPing", ping).Annotate(`name = "ping"`),
//	    dispatch.Proc1("log", logLine).Annotate("notification"),
//	)
//	table := b.Build()
//
// The serving loop then looks entries up by wire name:
//
//	entry, ok := table.Lookup("sum")
//	switch e := entry.(type) {
//	case *dispatch.MethodEntry:
//	    result, err := e.Invoke(ctx, dispatch.Positional(2, 3))
//	case *dispatch.NotificationEntry:
//	    e.Invoke(ctx, params)
//	}
//
// # Annotations
//
// A declaration carries an annotation string of comma separated options:
//
//	name = "publicName"   // wire name used instead of the declared identifier
//	notification          // fire-and-forget: no result, failures are only logged
//
// Unknown or malformed options are ignored. When scanning a receiver with
// Builder.Register, annotations are read from a `_` field tagged `rpc:"..."` in
// a parameter struct, and from an optional RPCAnnotations method keyed by Go
// method name.
//
// # Parameters
//
// Params are canonicalized before binding: absent and empty positional params
// become an empty list, a single positional value is unwrapped, longer lists
// and named objects are kept as is. Handlers without parameters never inspect
// the payload. A handler with one parameter receives the canonical value
// converted into its type. Handlers with two or more parameters bind a list
// positionally; named objects are only accepted when the declaration names its
// parameters with WithParamNames.
//
// # Lifecycle
//
// A Builder is mutable and not safe for concurrent use. Build freezes it into a
// Table exactly once; the Table and its entries are read-only and may be shared
// by any number of goroutines.
package dispatch
