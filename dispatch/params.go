package dispatch

// ParamsKind is the shape of a received parameter payload.
type ParamsKind int

const (
	ParamsAbsent ParamsKind = iota
	ParamsPositional
	ParamsNamed
)

func (k ParamsKind) String() string {
	switch k {
	case ParamsPositional:
		return "positional"
	case ParamsNamed:
		return "named"
	default:
		return "absent"
	}
}

// Params is the parameter payload of one request, as received. The zero value
// is an absent payload bound with the JSON codec.
type Params struct {
	kind  ParamsKind
	list  []any
	named map[string]any
	codec Codec
}

// NoParams returns an absent payload.
func NoParams() Params {
	return Params{}
}

// Positional returns a positional payload holding values in order.
func Positional(values ...any) Params {
	return Params{kind: ParamsPositional, list: values}
}

// Named returns a named payload.
func Named(values map[string]any) Params {
	if values == nil {
		values = map[string]any{}
	}
	return Params{kind: ParamsNamed, named: values}
}

// DecodeParams decodes a raw params member with codec. Empty input and null are
// an absent payload.
//
// It is the entry point for transports that hold the params member as raw
// bytes. The jsonrpc package decodes the whole request envelope at once and
// classifies the already decoded member with ParamsFromValue instead.
func DecodeParams(codec Codec, raw []byte) (Params, error) {
	if len(raw) == 0 {
		return NoParams().WithCodec(codec), nil
	}
	var v any
	if err := codec.Unmarshal(raw, &v); err != nil {
		return Params{}, Errorf(CodeParseError, "parse error: %w", err)
	}
	return ParamsFromValue(codec, v)
}

// ParamsFromValue classifies an already decoded canonical params value.
// Values other than nil, a list or an object are rejected.
func ParamsFromValue(codec Codec, v any) (Params, error) {
	var p Params
	switch v := v.(type) {
	case nil:
		p = NoParams()
	case []any:
		p = Positional(v...)
	case map[string]any:
		p = Named(v)
	default:
		return Params{}, NewError(CodeInvalidRequest, "params must be an array or an object")
	}
	return p.WithCodec(codec), nil
}

// Kind returns the payload shape.
func (p Params) Kind() ParamsKind {
	return p.kind
}

// Len returns the number of positional or named values.
func (p Params) Len() int {
	switch p.kind {
	case ParamsPositional:
		return len(p.list)
	case ParamsNamed:
		return len(p.named)
	default:
		return 0
	}
}

// WithCodec returns a copy of p that binds and serializes with c.
func (p Params) WithCodec(c Codec) Params {
	p.codec = c
	return p
}

// Codec returns the codec used to bind p, JSON when none was set.
func (p Params) Codec() Codec {
	if p.codec == nil {
		return JSON
	}
	return p.codec
}

// Canonical collapses the payload into a single value: absent and empty lists
// become an empty list, a one element list is unwrapped, longer lists and
// named objects are returned unchanged.
func (p Params) Canonical() any {
	switch p.kind {
	case ParamsPositional:
		switch len(p.list) {
		case 0:
			return []any{}
		case 1:
			return p.list[0]
		default:
			return p.list
		}
	case ParamsNamed:
		return p.named
	default:
		return []any{}
	}
}
