package dispatch

import (
	"errors"
	"reflect"
)

// Annotator is implemented by receivers that attach annotations to their
// methods. Keys are Go method names.
type Annotator interface {
	RPCAnnotations() map[string]string
}

// Register declares every exported method of receiver whose first parameter is
// a context.Context. Methods with other signatures are skipped.
//
// Annotations come from two places, applied in order so that the second wins:
// the `rpc` tag of a `_` field inside a struct parameter, then the entry for
// the method in RPCAnnotations.
//
//	type AddParams struct {
//	    _ struct{} `rpc:"name=add"`
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
func (b *Builder) Register(receiver any) error {
	if b.table != nil {
		return ErrFrozen
	}
	val := reflect.ValueOf(receiver)
	if !val.IsValid() {
		return errors.New("dispatch: register: nil receiver")
	}
	typ := val.Type()

	var annotations map[string]string
	if a, ok := receiver.(Annotator); ok {
		annotations = a.RPCAnnotations()
	}

	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() || method.Name == "RPCAnnotations" {
			continue
		}
		// method.Type includes the receiver as its first input.
		if method.Type.NumIn() < 2 || method.Type.In(1) != contextType {
			continue
		}

		decl, err := FuncOf(method.Name, val.Method(i).Interface())
		if err != nil {
			b.log().Debug("skipping method", "method", method.Name, "error", err)
			continue
		}
		decl = decl.Annotate(tagAnnotation(decl.Params))
		decl = decl.Annotate(annotations[method.Name])
		if err := b.declare(decl); err != nil {
			return err
		}
	}
	return nil
}

// tagAnnotation returns the `rpc` tag of the first `_` field found in a struct
// parameter.
func tagAnnotation(params []reflect.Type) string {
	for _, t := range params {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Name != "_" {
				continue
			}
			if tag, ok := f.Tag.Lookup("rpc"); ok {
				return tag
			}
		}
	}
	return ""
}
