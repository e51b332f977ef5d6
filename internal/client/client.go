// Package client talks to a running controller: one-shot RPC calls over
// HTTP and the live event stream over WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/rpc"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second
)

// RemoteError is a command the controller answered with an error code.
type RemoteError struct {
	Method string
	Code   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Code)
}

// Client calls one controller.
type Client struct {
	// BaseURL is the base URL for the controller (e.g., "http://192.168.1.50:80")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for transport failures
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts; it doubles up
	// to MaxRetryDelay
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	nextID atomic.Int64
}

// NewClient creates a client for addr, which is host, host:port or a full
// http:// URL.
func NewClient(addr string) *Client {
	return &Client{
		BaseURL:       BaseURL(addr),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// BaseURL normalises a device address to an http:// base URL.
func BaseURL(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "80")
	}
	return "http://" + addr
}

// Call executes method with params and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req, err := rpc.NewRequest(int(c.nextID.Add(1)), method, params)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	delay := c.RetryDelay
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		result, err := c.callAttempt(ctx, method, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(method, err) || ctx.Err() != nil {
			return nil, err
		}
		logging.Debug("Call failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// retryable reports whether a failed call may be sent again. Read-only
// methods retry on any transport failure; everything else only when the
// request cannot have reached the controller.
func retryable(method string, err error) bool {
	if !apierr.IsTransport(err) {
		return false
	}
	if readOnly(method) {
		return true
	}
	switch apierr.CodeOf(err) {
	case apierr.CodeConnectionRefused, apierr.CodeDNS,
		apierr.CodeHostUnreachable, apierr.CodeNetworkUnreachable:
		return true
	}
	return false
}

func readOnly(method string) bool {
	if method == "system.ping" {
		return true
	}
	_, name, _ := strings.Cut(method, ".")
	return strings.HasPrefix(name, "get_")
}

func (c *Client) callAttempt(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, apierr.ClassifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.ClassifyTransportError(err)
	}

	var out rpc.Response
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, apierr.HTTPStatus(resp.StatusCode, "controller")
		}
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	if out.Error != "" {
		return nil, &RemoteError{Method: method, Code: out.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierr.HTTPStatus(resp.StatusCode, "controller")
	}

	raw, _ := out.Result.(json.RawMessage)
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return raw, nil
}

// CallInto executes method and decodes the result into out.
func (c *Client) CallInto(ctx context.Context, method string, params, out any) error {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// FullState fetches the snapshot of every domain.
func (c *Client) FullState(ctx context.Context) (*device.FullState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apierr.ClassifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.HTTPStatus(resp.StatusCode, "controller")
	}
	var state device.FullState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// Message is one frame from the event stream. Frames without an event
// name are RPC responses.
type Message struct {
	Event    string          `json:"event,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	ID       *int            `json:"id,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	ErrorMsg string          `json:"error,omitempty"`
}

// Stream is an open event stream.
type Stream struct {
	conn     *websocket.Conn
	messages chan Message
	err      error
	nextID   atomic.Int64

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// ErrStreamClosed is reported by Stream.Err after a clean close.
var ErrStreamClosed = errors.New("stream closed")

// Subscribe opens the WebSocket event stream. The first message is the
// full state.
func (c *Client) Subscribe(ctx context.Context) (*Stream, error) {
	url := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, apierr.ClassifyTransportError(err)
	}

	s := &Stream{conn: conn, messages: make(chan Message, 32), done: make(chan struct{})}
	go s.read()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

func (s *Stream) read() {
	defer close(s.messages)
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = ErrStreamClosed
			} else {
				s.err = err
			}
			return
		}
		s.messages <- msg
	}
}

// Messages returns the stream's frames. The channel closes when the
// connection ends; Err then reports why.
func (s *Stream) Messages() <-chan Message { return s.messages }

// Err returns the reason the stream ended. It is only valid after
// Messages is closed.
func (s *Stream) Err() error { return s.err }

// Send issues a request over the stream and returns its id. The response
// arrives on Messages.
func (s *Stream) Send(method string, params any) (int, error) {
	id := int(s.nextID.Add(1))
	req, err := rpc.NewRequest(id, method, params)
	if err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return id, s.conn.WriteJSON(req)
}

// Close closes the stream.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
