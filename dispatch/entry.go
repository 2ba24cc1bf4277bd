package dispatch

import (
	"context"
	"reflect"
	"slices"
)

// Kind distinguishes methods from notifications.
type Kind int

const (
	KindMethod Kind = iota
	KindNotification
)

func (k Kind) String() string {
	if k == KindNotification {
		return "notification"
	}
	return "method"
}

// Descriptor records what was declared for one handler.
type Descriptor struct {
	// Ident is the declared identifier of the handler.
	Ident string
	// Name is the resolved wire name.
	Name         string
	Notification bool
	// Params lists the argument types in declaration order.
	Params []reflect.Type
	// ParamNames optionally names Params for binding named payloads.
	ParamNames []string
	// Result is nil for notifications and handlers without a result value.
	Result reflect.Type
}

// Arity returns the number of declared parameters.
func (d Descriptor) Arity() int {
	return len(d.Params)
}

func (d Descriptor) clone() Descriptor {
	d.Params = slices.Clone(d.Params)
	d.ParamNames = slices.Clone(d.ParamNames)
	return d
}

// Entry is a dispatch table entry: either a *MethodEntry or a
// *NotificationEntry.
type Entry interface {
	Kind() Kind
	Descriptor() Descriptor
	entry()
}

// MethodEntry invokes a handler that produces a result or an error.
type MethodEntry struct {
	desc   Descriptor
	invoke func(ctx context.Context, params Params) (any, error)
}

func (*MethodEntry) entry() {}

func (*MethodEntry) Kind() Kind { return KindMethod }

// Descriptor returns a copy of the declaration backing e.
func (e *MethodEntry) Descriptor() Descriptor { return e.desc.clone() }

// Invoke binds params, calls the handler and returns its canonical result.
// Binding failures are returned as an *Error with CodeInvalidParams; handler
// errors are returned unchanged.
func (e *MethodEntry) Invoke(ctx context.Context, params Params) (any, error) {
	return e.invoke(ctx, params)
}

// NotificationEntry invokes a fire-and-forget handler.
type NotificationEntry struct {
	desc   Descriptor
	invoke func(ctx context.Context, params Params)
}

func (*NotificationEntry) entry() {}

func (*NotificationEntry) Kind() Kind { return KindNotification }

// Descriptor returns a copy of the declaration backing e.
func (e *NotificationEntry) Descriptor() Descriptor { return e.desc.clone() }

// Invoke binds params and calls the handler. Nothing is returned: binding
// failures, handler errors and results are all dropped after logging.
func (e *NotificationEntry) Invoke(ctx context.Context, params Params) {
	e.invoke(ctx, params)
}
