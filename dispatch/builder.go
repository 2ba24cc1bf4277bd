package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
)

// Builder collects handler declarations. It is the mutable half of the table
// lifecycle: once Build is called the builder is frozen and only the returned
// Table remains usable. The zero value is an empty builder logging to
// slog.Default().
type Builder struct {
	entries map[string]Entry
	logger  *slog.Logger
	table   *Table
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used while building and by the produced entries.
// The default is slog.Default().
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		entries: make(map[string]Entry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Declare adds handlers to the table under construction. A declaration whose
// wire name is already taken replaces the earlier entry.
func (b *Builder) Declare(decls ...Declaration) error {
	for _, d := range decls {
		if err := b.declare(d); err != nil {
			return err
		}
	}
	return nil
}

// RegisterMethod adds a method under name with an explicit parameter list.
func (b *Builder) RegisterMethod(name string, paramTypes []reflect.Type, fn CallFunc) error {
	return b.declare(Declaration{Ident: name, Params: paramTypes, Call: fn})
}

// RegisterNotification adds a notification under name with an explicit
// parameter list. Any value returned by fn is dropped.
func (b *Builder) RegisterNotification(name string, paramTypes []reflect.Type, fn CallFunc) error {
	return b.declare(Declaration{Ident: name, Annotation: "notification", Params: paramTypes, Call: fn})
}

// Build freezes the builder and returns the table. Calling Build again returns
// the same table.
func (b *Builder) Build() *Table {
	if b.table == nil {
		b.table = &Table{entries: b.entries}
		b.entries = nil
		b.log().Debug("dispatch table frozen", "entries", len(b.table.entries))
	}
	return b.table
}

func (b *Builder) declare(d Declaration) error {
	if b.table != nil {
		return ErrFrozen
	}
	if d.Call == nil {
		return fmt.Errorf("dispatch: declare %q: nil call", d.Ident)
	}
	if len(d.ParamNames) > 0 && len(d.ParamNames) != len(d.Params) {
		return fmt.Errorf("dispatch: declare %q: %d param names for %d params", d.Ident, len(d.ParamNames), len(d.Params))
	}

	attrs := ParseAttributes(d.Annotation)
	name := d.Ident
	if override, ok := attrs.Name(); ok {
		name = override
	}
	if name == "" {
		return fmt.Errorf("dispatch: declare: empty wire name")
	}

	desc := Descriptor{
		Ident:        d.Ident,
		Name:         name,
		Notification: attrs.Notification(),
		Params:       slices.Clone(d.Params),
		ParamNames:   slices.Clone(d.ParamNames),
		Result:       d.Result,
	}

	var entry Entry
	if desc.Notification {
		desc.Result = nil
		entry = b.notificationEntry(desc, d.Call)
	} else {
		entry = b.methodEntry(desc, d.Call)
	}

	if prev, exists := b.entries[name]; exists {
		b.log().Debug("replacing dispatch entry", "rpc", name, "previous", prev.Descriptor().Ident, "ident", d.Ident)
	}
	if b.entries == nil {
		b.entries = make(map[string]Entry)
	}
	b.entries[name] = entry
	return nil
}

func (b *Builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.Default()
	}
	return b.logger
}

func (b *Builder) methodEntry(desc Descriptor, call CallFunc) *MethodEntry {
	logger := b.log()
	const kind = "method"
	return &MethodEntry{
		desc: desc,
		invoke: func(ctx context.Context, params Params) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "handler panic", "rpc", desc.Name, "kind", kind, "panic", r)
					result, err = nil, NewError(CodeInternalError, "internal error")
				}
			}()

			logReceiving(ctx, logger, desc, kind)
			args, perr := bindParams(params, desc.Params, desc.ParamNames)
			if perr != nil {
				logger.DebugContext(ctx, "invalid params", "rpc", desc.Name, "kind", kind, "error", perr)
				return nil, invalidParams(perr)
			}

			logger.DebugContext(ctx, "handling", "rpc", desc.Name, "kind", kind, "ident", desc.Ident)
			out, err := call(ctx, args)
			if err != nil {
				return nil, err
			}
			return serializeResult(params.Codec(), out)
		},
	}
}

func (b *Builder) notificationEntry(desc Descriptor, call CallFunc) *NotificationEntry {
	logger := b.log()
	const kind = "notification"
	return &NotificationEntry{
		desc: desc,
		invoke: func(ctx context.Context, params Params) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "handler panic", "rpc", desc.Name, "kind", kind, "panic", r)
				}
			}()

			logReceiving(ctx, logger, desc, kind)
			args, perr := bindParams(params, desc.Params, desc.ParamNames)
			if perr != nil {
				logger.ErrorContext(ctx, "wrong parameter types for notification, skip", "rpc", desc.Name, "kind", kind, "error", perr)
				return
			}

			logger.DebugContext(ctx, "handling", "rpc", desc.Name, "kind", kind, "ident", desc.Ident)
			if _, err := call(ctx, args); err != nil {
				logger.WarnContext(ctx, "notification handler failed", "rpc", desc.Name, "kind", kind, "error", err)
			}
		},
	}
}

func logReceiving(ctx context.Context, logger *slog.Logger, desc Descriptor, kind string) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	if len(desc.Params) == 0 {
		logger.DebugContext(ctx, "receiving", "rpc", desc.Name, "kind", kind, "ident", desc.Ident, "params", "none")
		return
	}
	logger.DebugContext(ctx, "receiving", "rpc", desc.Name, "kind", kind, "ident", desc.Ident, "params", describeTypes(desc.Params))
}
