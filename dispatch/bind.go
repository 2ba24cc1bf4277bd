package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// bindParams binds p to the declared argument types. The arity decides how
// the canonical value is read:
//
//   - no parameters: the payload is ignored entirely;
//   - one parameter: the canonical value is converted into that type;
//   - more: the canonical value must be a list of exactly len(types) values,
//     or a named object when names are declared.
func bindParams(p Params, types []reflect.Type, names []string) ([]reflect.Value, *ParamsError) {
	switch len(types) {
	case 0:
		return nil, nil
	case 1:
		v, err := convert(p.Codec(), p.Canonical(), types[0])
		if err != nil {
			return nil, &ParamsError{Expected: types[0].String(), Err: err}
		}
		return []reflect.Value{v}, nil
	}

	expected := describeTypes(types)
	elems, err := sequence(p, len(types), names)
	if err != nil {
		return nil, &ParamsError{Expected: expected, Err: err}
	}
	args := make([]reflect.Value, len(types))
	for i, t := range types {
		v, err := convert(p.Codec(), elems[i], t)
		if err != nil {
			return nil, &ParamsError{Expected: expected, Err: fmt.Errorf("param %d: %w", i, err)}
		}
		args[i] = v
	}
	return args, nil
}

func sequence(p Params, n int, names []string) ([]any, error) {
	if p.Kind() == ParamsNamed {
		if len(names) == 0 {
			return nil, errors.New("named params not supported, send positional params")
		}
		elems := make([]any, n)
		for i, name := range names {
			v, ok := p.named[name]
			if !ok {
				return nil, fmt.Errorf("missing param %q", name)
			}
			elems[i] = v
		}
		return elems, nil
	}

	canonical := p.Canonical()
	elems, ok := canonical.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid type %T, want a sequence of %d values", canonical, n)
	}
	if len(elems) != n {
		return nil, fmt.Errorf("invalid length %d, want %d values", len(elems), n)
	}
	return elems, nil
}

// convert re-encodes a canonical value with codec and decodes it into a fresh
// value of type t.
func convert(codec Codec, value any, t reflect.Type) (reflect.Value, error) {
	data, err := codec.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	if err := codec.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func describeTypes(types []reflect.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return "(" + strings.Join(names, ", ") + ")"
}
