package rpc

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantID     *int
		wantMethod string
		wantErr    error
		objParams  bool
	}{
		{name: "full", input: `{"id":3,"method":"system.ping","params":{}}`, wantID: intPtr(3), wantMethod: "system.ping", objParams: true},
		{name: "no id", input: `{"method":"system.ping"}`, wantMethod: "system.ping"},
		{name: "string id ignored", input: `{"id":"3","method":"system.ping"}`, wantMethod: "system.ping"},
		{name: "fractional id ignored", input: `{"id":1.5,"method":"system.ping"}`, wantMethod: "system.ping"},
		{name: "array params", input: `{"id":1,"method":"m","params":[1]}`, wantID: intPtr(1), wantMethod: "m"},
		{name: "missing method", input: `{"id":1}`, wantErr: ErrInvalidMethod},
		{name: "numeric method", input: `{"id":1,"method":5}`, wantErr: ErrInvalidMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeRequest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}
			if (req.ID == nil) != (tt.wantID == nil) || (req.ID != nil && *req.ID != *tt.wantID) {
				t.Errorf("ID = %v, want %v", req.ID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", req.Method, tt.wantMethod)
			}
			if req.HasObjectParams() != tt.objParams {
				t.Errorf("HasObjectParams() = %v, want %v", req.HasObjectParams(), tt.objParams)
			}
		})
	}
}

func TestDecodeRequestInvalidJSON(t *testing.T) {
	if _, err := DecodeRequest([]byte(`{"method":`)); err == nil || errors.Is(err, ErrInvalidMethod) {
		t.Errorf("DecodeRequest() error = %v, want a parse error", err)
	}
}

func TestResponseUnmarshal(t *testing.T) {
	var resp Response
	if err := json.Unmarshal([]byte(`{"id":4,"result":{"on":true}}`), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == nil || *resp.ID != 4 || !resp.OK() {
		t.Fatalf("resp = %+v", resp)
	}
	if got := string(resp.Result.(json.RawMessage)); got != `{"on":true}` {
		t.Errorf("Result = %s", got)
	}

	resp = Response{}
	if err := json.Unmarshal([]byte(`{"error":"unknown_method"}`), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.OK() || resp.Error != "unknown_method" || resp.ID != nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestParams(t *testing.T) {
	p := ParseParams(json.RawMessage(`{"n":42,"f":1.5,"s":"x","b":true,"a":[1,2]}`))

	if v, ok := p.Int("n"); !ok || v != 42 {
		t.Errorf("Int(n) = %d, %v", v, ok)
	}
	if _, ok := p.Int("f"); ok {
		t.Error("Int(f) accepted a fraction")
	}
	if _, ok := p.Int("s"); ok {
		t.Error("Int(s) accepted a string")
	}
	if v, ok := p.String("s"); !ok || v != "x" {
		t.Errorf("String(s) = %q, %v", v, ok)
	}
	if v, ok := p.Bool("b"); !ok || !v {
		t.Errorf("Bool(b) = %v, %v", v, ok)
	}
	if v, ok := p.Array("a"); !ok || len(v) != 2 {
		t.Errorf("Array(a) = %v, %v", v, ok)
	}
	if _, ok := p.String("missing"); ok {
		t.Error("String(missing) reported present")
	}

	if ParseParams(json.RawMessage(`[1]`)).Has("0") {
		t.Error("non-object params exposed fields")
	}
}

func intPtr(i int) *int { return &i }
