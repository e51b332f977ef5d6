package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMethod is returned by DecodeRequest when the request carries no
// string method.
var ErrInvalidMethod = errors.New("request has no method")

// Request is one command: {id?, method, params}.
type Request struct {
	ID     *int
	Method string
	Params json.RawMessage
}

// NewRequest builds a request with an id.
func NewRequest(id int, method string, params any) (Request, error) {
	req := Request{ID: &id, Method: method}
	if params == nil {
		return req, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("failed to marshal params: %w", err)
	}
	req.Params = raw
	return req, nil
}

// DecodeRequest parses a request envelope. An id that is not an integer is
// treated as absent.
func DecodeRequest(data []byte) (Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Request{}, fmt.Errorf("failed to parse request: %w", err)
	}

	var req Request
	if raw, ok := fields["id"]; ok {
		if id, ok := decodeInt(raw); ok {
			req.ID = &id
		}
	}
	if raw, ok := fields["method"]; !ok || json.Unmarshal(raw, &req.Method) != nil || req.Method == "" {
		return req, ErrInvalidMethod
	}
	req.Params = fields["params"]
	return req, nil
}

// HasObjectParams reports whether params is a JSON object.
func (r Request) HasObjectParams() bool {
	trimmed := bytes.TrimSpace(r.Params)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	out := struct {
		ID     *int            `json:"id,omitempty"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}{ID: r.ID, Method: r.Method, Params: r.Params}
	if len(out.Params) == 0 {
		out.Params = json.RawMessage("{}")
	}
	return json.Marshal(out)
}

// Response is the outcome of one command. Exactly one of Result and Error
// is meaningful: Error is set on failure, Result otherwise (possibly nil,
// which encodes as null).
type Response struct {
	ID     *int
	Result any
	Error  string
}

// OK reports whether the command succeeded.
func (r Response) OK() bool { return r.Error == "" }

// MarshalJSON implements json.Marshaler. The id is only present when the
// request carried one.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			ID    *int   `json:"id,omitempty"`
			Error string `json:"error"`
		}{r.ID, r.Error})
	}
	return json.Marshal(struct {
		ID     *int `json:"id,omitempty"`
		Result any  `json:"result"`
	}{r.ID, r.Result})
}

// UnmarshalJSON implements json.Unmarshaler. Result is left as a
// json.RawMessage.
func (r *Response) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID     *int            `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.ID = wire.ID
	r.Error = wire.Error
	r.Result = nil
	if wire.Result != nil {
		r.Result = wire.Result
	}
	return nil
}

func decodeInt(raw json.RawMessage) (int, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil || int64(int(i)) != i {
		return 0, false
	}
	return int(i), true
}
