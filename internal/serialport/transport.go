// Package serialport carries the RPC surface over a serial line.
//
// The framing is newline-delimited JSON in both directions. A request line
// must carry an integer id, a string method and an object params; anything
// else is dropped with a debug log. Responses echo the request id. Events
// are written as they are emitted, interleaved with responses.
package serialport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/rpc"
)

// maxLineSize bounds one request line.
const maxLineSize = 64 << 10

// Port is the minimal surface of a serial port.
type Port interface {
	io.ReadWriter
	io.Closer
}

// Backend is the controller the transport exposes.
type Backend interface {
	Execute(ctx context.Context, req rpc.Request) (rpc.Response, error)
	Subscribe(ctx context.Context) (string, <-chan events.Event, device.FullState, error)
	Unsubscribe(id string)
}

// Transport serves one serial port.
type Transport struct {
	port           Port
	backend        Backend
	requestTimeout time.Duration
	log            *zap.Logger

	writeMu sync.Mutex
}

// New wraps an open port.
func New(port Port, backend Backend) *Transport {
	return &Transport{
		port:           port,
		backend:        backend,
		requestTimeout: 10 * time.Second,
		log:            logging.Named("serial"),
	}
}

// Open opens the serial device at path.
func Open(path string, opts PortOptions, backend Backend) (*Transport, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	logging.LogConnection("serial", path, "opened")
	return New(port, backend), nil
}

// Run serves requests and forwards events until ctx is done or the port
// fails. The port is closed on return.
func (t *Transport) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subID, eventsCh, _, err := t.backend.Subscribe(ctx)
	if err != nil {
		_ = t.port.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer t.backend.Unsubscribe(subID)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.forwardEvents(ctx, eventsCh)
	}()

	// Closing the port unblocks the reader on cancellation.
	go func() {
		<-ctx.Done()
		_ = t.port.Close()
	}()

	err = t.readRequests(ctx)
	stopped := ctx.Err() != nil
	cancel()
	wg.Wait()

	if stopped && (err == nil || isClosed(err)) {
		return nil
	}
	if err == nil {
		return io.EOF
	}
	return err
}

func (t *Transport) readRequests(ctx context.Context) error {
	scanner := bufio.NewScanner(t.port)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		t.handleLine(ctx, line)
	}
	return scanner.Err()
}

func (t *Transport) handleLine(ctx context.Context, line []byte) {
	req, err := rpc.DecodeRequest(line)
	switch {
	case errors.Is(err, rpc.ErrInvalidMethod):
		t.log.Debug("Dropping message without a method")
		return
	case err != nil:
		t.log.Debug("Dropping message that is not JSON", zap.Error(err))
		return
	case req.ID == nil:
		t.log.Debug("Dropping message without an id", zap.String("method", req.Method))
		return
	case !req.HasObjectParams():
		t.log.Debug("Dropping message without params", zap.String("method", req.Method))
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.requestTimeout)
	defer cancel()

	resp, err := t.backend.Execute(reqCtx, req)
	if err != nil {
		t.log.Warn("Request not executed", zap.String("method", req.Method), zap.Error(err))
		return
	}
	resp.ID = req.ID
	t.writeJSON(resp)
}

func (t *Transport) forwardEvents(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			t.writeJSON(ev)
		}
	}
}

func (t *Transport) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		t.log.Error("Failed to marshal message", zap.Error(err))
		return
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.port.Write(data); err != nil {
		t.log.Debug("Serial write failed", zap.Error(err))
	}
}

func isClosed(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortClosed
	}
	return errors.Is(err, io.ErrClosedPipe)
}
