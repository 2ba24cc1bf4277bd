package dispatch

import (
	"context"
	"fmt"
	"reflect"
)

// CallFunc invokes a handler with arguments already bound to the declared
// parameter types.
type CallFunc func(ctx context.Context, args []reflect.Value) (any, error)

// Declaration describes one handler before it is placed in a table.
type Declaration struct {
	// Ident is the declared identifier, used as the wire name unless the
	// annotation overrides it.
	Ident string
	// Annotation holds the handler options, see ParseAttributes.
	Annotation string
	Params     []reflect.Type
	ParamNames []string
	Result     reflect.Type
	Call       CallFunc
}

// Annotate returns a copy of d with annotation appended to its options.
func (d Declaration) Annotate(annotation string) Declaration {
	switch {
	case annotation == "":
	case d.Annotation == "":
		d.Annotation = annotation
	default:
		d.Annotation += ", " + annotation
	}
	return d
}

// WithParamNames returns a copy of d whose parameters can be bound from a
// named object. names must match the declared parameters one to one.
func (d Declaration) WithParamNames(names ...string) Declaration {
	d.ParamNames = names
	return d
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// argAs extracts an argument without panicking on nil interface values.
func argAs[T any](v reflect.Value) T {
	var out T
	if v.IsValid() {
		reflect.ValueOf(&out).Elem().Set(v)
	}
	return out
}

// Func0 declares a method without parameters.
func Func0[R any](ident string, fn func(context.Context) (R, error)) Declaration {
	return Declaration{
		Ident:  ident,
		Result: reflect.TypeFor[R](),
		Call: func(ctx context.Context, _ []reflect.Value) (any, error) {
			return fn(ctx)
		},
	}
}

// Func1 declares a method with one parameter.
func Func1[A, R any](ident string, fn func(context.Context, A) (R, error)) Declaration {
	return Declaration{
		Ident:  ident,
		Params: []reflect.Type{reflect.TypeFor[A]()},
		Result: reflect.TypeFor[R](),
		Call: func(ctx context.Context, args []reflect.Value) (any, error) {
			return fn(ctx, argAs[A](args[0]))
		},
	}
}

// Func2 declares a method with two positional parameters.
func Func2[A, B, R any](ident string, fn func(context.Context, A, B) (R, error)) Declaration {
	return Declaration{
		Ident:  ident,
		Params: []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()},
		Result: reflect.TypeFor[R](),
		Call: func(ctx context.Context, args []reflect.Value) (any, error) {
			return fn(ctx, argAs[A](args[0]), argAs[B](args[1]))
		},
	}
}

// Func3 declares a method with three positional parameters.
func Func3[A, B, C, R any](ident string, fn func(context.Context, A, B, C) (R, error)) Declaration {
	return Declaration{
		Ident:  ident,
		Params: []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]()},
		Result: reflect.TypeFor[R](),
		Call: func(ctx context.Context, args []reflect.Value) (any, error) {
			return fn(ctx, argAs[A](args[0]), argAs[B](args[1]), argAs[C](args[2]))
		},
	}
}

// Proc0 declares a handler without parameters or result, typically annotated
// as a notification.
func Proc0(ident string, fn func(context.Context) error) Declaration {
	return Declaration{
		Ident: ident,
		Call: func(ctx context.Context, _ []reflect.Value) (any, error) {
			return nil, fn(ctx)
		},
	}
}

// Proc1 declares a handler with one parameter and no result.
func Proc1[A any](ident string, fn func(context.Context, A) error) Declaration {
	return Declaration{
		Ident:  ident,
		Params: []reflect.Type{reflect.TypeFor[A]()},
		Call: func(ctx context.Context, args []reflect.Value) (any, error) {
			return nil, fn(ctx, argAs[A](args[0]))
		},
	}
}

// Proc2 declares a handler with two positional parameters and no result.
func Proc2[A, B any](ident string, fn func(context.Context, A, B) error) Declaration {
	return Declaration{
		Ident:  ident,
		Params: []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()},
		Call: func(ctx context.Context, args []reflect.Value) (any, error) {
			return nil, fn(ctx, argAs[A](args[0]), argAs[B](args[1]))
		},
	}
}

// FuncOf declares an arbitrary function through reflection. Supported shapes:
//
//	func([context.Context,] args...)
//	func([context.Context,] args...) error
//	func([context.Context,] args...) R
//	func([context.Context,] args...) (R, error)
//
// Variadic functions are rejected.
func FuncOf(ident string, fn any) (Declaration, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return Declaration{}, fmt.Errorf("dispatch: %s: handler must be a non-nil function", ident)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return Declaration{}, fmt.Errorf("dispatch: %s: variadic handlers are not supported", ident)
	}

	hasCtx := ft.NumIn() > 0 && ft.In(0) == contextType
	first := 0
	if hasCtx {
		first = 1
	}
	params := make([]reflect.Type, 0, ft.NumIn()-first)
	for i := first; i < ft.NumIn(); i++ {
		params = append(params, ft.In(i))
	}

	var (
		result reflect.Type
		hasErr bool
	)
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			hasErr = true
		} else {
			result = ft.Out(0)
		}
	case 2:
		if ft.Out(1) != errorType {
			return Declaration{}, fmt.Errorf("dispatch: %s: second result must be error", ident)
		}
		result = ft.Out(0)
		hasErr = true
	default:
		return Declaration{}, fmt.Errorf("dispatch: %s: too many results", ident)
	}

	call := func(ctx context.Context, args []reflect.Value) (any, error) {
		in := make([]reflect.Value, 0, len(args)+1)
		if hasCtx {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		in = append(in, args...)
		out := fv.Call(in)

		var err error
		if hasErr {
			if ev := out[len(out)-1]; !ev.IsNil() {
				err = ev.Interface().(error)
			}
		}
		if result == nil || err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}

	return Declaration{
		Ident:  ident,
		Params: params,
		Result: result,
		Call:   call,
	}, nil
}
