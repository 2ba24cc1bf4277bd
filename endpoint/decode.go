package endpoint

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// defaultBodyLimit is the maximum number of body bytes read when a `body`
// field carries no maxLength tag.
//
// This is a var (not const) so tests/callers can override it if needed.
var defaultBodyLimit int64 = 1 << 20

// Unmarshal populates dst (a non-nil pointer to a struct) from the request.
//
// Supported struct tags:
//   - `body:""` on a []byte or string field: the raw request body
//   - `header:"Name"` on a string or []string field: request header values
//   - `maxLength:"n"` on a body field: maximum body size in bytes; "0" or ""
//     disables the limit. Oversized bodies are rejected with 413.
//
// Fields without data are left unchanged.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct"))
	}

	t := root.Type()
	bodySeen := false
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := root.Field(i)

		if _, ok := sf.Tag.Lookup("body"); ok {
			if bodySeen {
				return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: multiple body fields: %s", sf.Name))
			}
			bodySeen = true
			limit, err := bodyLimit(sf)
			if err != nil {
				return err
			}
			if err := setBody(r, fv, limit); err != nil {
				return err
			}
			continue
		}

		if name, ok := sf.Tag.Lookup("header"); ok {
			name = strings.TrimSpace(name)
			if name == "" {
				name = sf.Name
			}
			if err := setHeader(r, fv, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func bodyLimit(sf reflect.StructField) (int64, error) {
	val, has := sf.Tag.Lookup("maxLength")
	if !has {
		return defaultBodyLimit, nil
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n < 0 {
		return 0, Error(http.StatusInternalServerError, "", fmt.Errorf("maxLength: invalid value %q", val))
	}
	return n, nil
}

func setBody(r *http.Request, fv reflect.Value, limit int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	var src io.Reader = r.Body
	if limit > 0 {
		src = io.LimitReader(r.Body, limit+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
	}
	if limit > 0 && int64(len(b)) > limit {
		return Error(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body exceeds %d bytes", limit))
	}

	switch {
	case fv.Kind() == reflect.String:
		fv.SetString(string(b))
	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.Uint8:
		fv.SetBytes(b)
	default:
		return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: unsupported body field type %s", fv.Type()))
	}
	return nil
}

func setHeader(r *http.Request, fv reflect.Value, name string) error {
	// Access the map directly to distinguish present-but-empty from missing.
	values := r.Header[http.CanonicalHeaderKey(name)]
	if len(values) == 0 {
		return nil
	}
	switch {
	case fv.Kind() == reflect.String:
		fv.SetString(values[0])
	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String:
		fv.Set(reflect.ValueOf(append([]string(nil), values...)))
	default:
		return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: unsupported header field type %s", fv.Type()))
	}
	return nil
}
