package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/rpc"
)

func rpcServer(t *testing.T, handle func(req rpc.Request) (int, string)) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		req, err := rpc.DecodeRequest(body)
		if err != nil {
			t.Errorf("server could not decode request: %v", err)
		}
		status, out := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(out))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"192.168.1.50":        "http://192.168.1.50:80",
		"192.168.1.50:8080":   "http://192.168.1.50:8080",
		"luxio.local":         "http://luxio.local:80",
		"http://example:81/":  "http://example:81",
		"[fe80::1]:80":        "http://[fe80::1]:80",
	}
	for in, want := range tests {
		if got := BaseURL(in); got != want {
			t.Errorf("BaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCall(t *testing.T) {
	ts := rpcServer(t, func(req rpc.Request) (int, string) {
		if req.ID == nil {
			t.Error("request without id")
		}
		switch req.Method {
		case "system.ping":
			return 200, `{"id":1,"result":"pong"}`
		case "led.set_on":
			return 200, `{"id":1,"result":null}`
		default:
			return 200, `{"id":1,"error":"unknown_method"}`
		}
	})
	c := NewClient(ts.URL)

	var pong string
	if err := c.CallInto(context.Background(), "system.ping", nil, &pong); err != nil || pong != "pong" {
		t.Errorf("ping = %q, %v", pong, err)
	}

	raw, err := c.Call(context.Background(), "led.set_on", map[string]bool{"on": true})
	if err != nil || string(raw) != "null" {
		t.Errorf("set_on = %s, %v", raw, err)
	}

	_, err = c.Call(context.Background(), "bad.method", nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != "unknown_method" {
		t.Errorf("bad.method error = %v, want RemoteError unknown_method", err)
	}
}

func TestCallHTTPStatus(t *testing.T) {
	var calls atomic.Int32
	ts := rpcServer(t, func(rpc.Request) (int, string) {
		calls.Add(1)
		return http.StatusServiceUnavailable, `{"error":"unavailable"}`
	})
	c := NewClient(ts.URL)
	c.RetryDelay = time.Millisecond

	_, err := c.Call(context.Background(), "system.ping", nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != "unavailable" {
		t.Errorf("error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, remote errors must not be retried", calls.Load())
	}
}

func TestCallRetriesTransportErrors(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewClient(url)
	c.MaxRetries = 2
	c.RetryDelay = time.Millisecond

	_, err := c.Call(context.Background(), "system.ping", nil)
	if !apierr.IsTransport(err) {
		t.Errorf("error = %v, want transport error", err)
	}
}

func TestCallTimeoutRetriesOnlyReads(t *testing.T) {
	tests := []struct {
		method string
		want   int32
	}{
		{"led.set_count", 1},
		{"system.restart", 1},
		{"led.get_count", 3},
		{"system.ping", 3},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = io.Copy(io.Discard, r.Body)
				<-r.Context().Done()
			}))
			t.Cleanup(ts.Close)

			c := NewClient(ts.URL)
			c.HTTPClient.Timeout = 20 * time.Millisecond
			c.MaxRetries = 2
			c.RetryDelay = time.Millisecond

			_, err := c.Call(context.Background(), tt.method, nil)
			if code := apierr.CodeOf(err); code != apierr.CodeTimeout {
				t.Fatalf("error = %v, want timeout", err)
			}
			if got := calls.Load(); got != tt.want {
				t.Errorf("calls = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	refused := &apierr.Error{Kind: apierr.KindTransport, Code: apierr.CodeConnectionRefused}
	timeout := &apierr.Error{Kind: apierr.KindTransport, Code: apierr.CodeTimeout}
	remote := &RemoteError{Method: "led.get_count", Code: "internal_error"}

	tests := []struct {
		method string
		err    error
		want   bool
	}{
		{"led.set_color", refused, true},
		{"led.set_color", timeout, false},
		{"network.connect", timeout, false},
		{"network.get_state", timeout, true},
		{"system.ping", timeout, true},
		{"led.get_count", remote, false},
	}
	for _, tt := range tests {
		if got := retryable(tt.method, tt.err); got != tt.want {
			t.Errorf("retryable(%q, %v) = %v, want %v", tt.method, tt.err, got, tt.want)
		}
	}
}

func TestSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"full_state","data":{"led":{}}}`))

		var req map[string]json.RawMessage
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":`+string(req["id"])+`,"result":"pong"}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := NewClient(ts.URL).Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer stream.Close()

	first := <-stream.Messages()
	if first.Event != "full_state" || string(first.Data) != `{"led":{}}` {
		t.Errorf("first = %+v", first)
	}

	if _, err := stream.Send("system.ping", nil); err != nil {
		t.Fatal(err)
	}
	reply := <-stream.Messages()
	if reply.ID == nil || *reply.ID != 1 || string(reply.Result) != `"pong"` {
		t.Errorf("reply = %+v", reply)
	}

	if _, ok := <-stream.Messages(); ok {
		t.Error("stream still open after close frame")
	}
	if !errors.Is(stream.Err(), ErrStreamClosed) {
		t.Errorf("Err() = %v, want ErrStreamClosed", stream.Err())
	}
}
