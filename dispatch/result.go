package dispatch

// serializeResult converts a handler result into a canonical value by encoding
// it with codec and decoding it back.
func serializeResult(codec Codec, v any) (any, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, Errorf(CodeInternalError, "failed to serialize result: %w", err)
	}
	var out any
	if err := codec.Unmarshal(data, &out); err != nil {
		return nil, Errorf(CodeInternalError, "failed to serialize result: %w", err)
	}
	return out, nil
}
