package rpc

import (
	"bytes"
	"encoding/json"
)

// Params gives typed access to a request's params object. Accessors report
// false when the key is missing or holds a value of another type.
type Params struct {
	raw    json.RawMessage
	fields map[string]json.RawMessage
}

// ParseParams wraps raw params. Anything but an object yields empty params.
func ParseParams(raw json.RawMessage) Params {
	p := Params{raw: raw}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		_ = json.Unmarshal(trimmed, &p.fields)
	}
	return p
}

// Raw returns the params as received, or {} when there were none.
func (p Params) Raw() json.RawMessage {
	if len(bytes.TrimSpace(p.raw)) == 0 {
		return json.RawMessage("{}")
	}
	return p.raw
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.fields[key]
	return ok
}

// String returns a string field.
func (p Params) String(key string) (string, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Int returns an integer field. Fractional numbers are rejected.
func (p Params) Int(key string) (int, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return 0, false
	}
	return decodeInt(raw)
}

// Bool returns a boolean field.
func (p Params) Bool(key string) (bool, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// Array returns the elements of an array field.
func (p Params) Array(key string) ([]json.RawMessage, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return nil, false
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}
