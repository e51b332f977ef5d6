package serialport

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/rpc"
)

type pipePort struct {
	in  *io.PipeReader
	out *io.PipeWriter
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *pipePort) Close() error {
	_ = p.in.Close()
	return p.out.Close()
}

type echoBackend struct {
	emitter *events.Emitter
}

func (b *echoBackend) Execute(_ context.Context, req rpc.Request) (rpc.Response, error) {
	return rpc.Response{ID: req.ID, Result: req.Method}, nil
}

func (b *echoBackend) Subscribe(context.Context) (string, <-chan events.Event, device.FullState, error) {
	id, ch := b.emitter.Subscribe()
	return id, ch, device.FullState{}, nil
}

func (b *echoBackend) Unsubscribe(id string) { b.emitter.Unsubscribe(id) }

type harness struct {
	host    *io.PipeWriter
	lines   chan string
	backend *echoBackend
	cancel  context.CancelFunc
	done    chan error
}

func start(t *testing.T) *harness {
	t.Helper()
	toDevice, hostWriter := io.Pipe()
	hostReader, fromDevice := io.Pipe()

	h := &harness{
		host:    hostWriter,
		lines:   make(chan string, 16),
		backend: &echoBackend{emitter: events.NewEmitter(8)},
		done:    make(chan error, 1),
	}

	go func() {
		scanner := bufio.NewScanner(hostReader)
		for scanner.Scan() {
			h.lines <- scanner.Text()
		}
		close(h.lines)
	}()

	tr := New(&pipePort{in: toDevice, out: fromDevice}, h.backend)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- tr.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for h.backend.emitter.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("transport did not subscribe")
		}
		time.Sleep(time.Millisecond)
	}
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) send(t *testing.T, line string) {
	t.Helper()
	if _, err := h.host.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (h *harness) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-h.lines:
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("no line from device")
		return ""
	}
}

func TestRequestResponse(t *testing.T) {
	h := start(t)

	h.send(t, `{"id":1,"method":"system.ping","params":{}}`)
	if got, want := h.next(t), `{"id":1,"result":"system.ping"}`; got != want {
		t.Errorf("response = %s, want %s", got, want)
	}
}

func TestMalformedLinesDropped(t *testing.T) {
	h := start(t)

	for _, line := range []string{
		`not json`,
		`{"method":"system.ping","params":{}}`,
		`{"id":2,"params":{}}`,
		`{"id":3,"method":"system.ping"}`,
		`{"id":4,"method":"system.ping","params":[]}`,
		``,
	} {
		h.send(t, line)
	}
	h.send(t, `{"id":5,"method":"led.get_state","params":{}}`)

	if got, want := h.next(t), `{"id":5,"result":"led.get_state"}`; got != want {
		t.Errorf("first response = %s, want %s", got, want)
	}
}

func TestEventsForwarded(t *testing.T) {
	h := start(t)

	h.backend.emitter.Emit(events.SystemReady, struct{}{})
	if got, want := h.next(t), `{"event":"system.ready","data":{}}`; got != want {
		t.Errorf("event line = %s, want %s", got, want)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := start(t)
	h.cancel()

	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
		h.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
	if n := h.backend.emitter.Subscribers(); n != 0 {
		t.Errorf("subscribers after stop = %d", n)
	}
}

func TestPortOptions(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{"defaults", PortOptions{}, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, false},
		{"even", PortOptions{BaudRate: 9600, Parity: "even", StopBits: 2}, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 2, Parity: "E"}, false},
		{"bad data bits", PortOptions{DataBits: 9}, PortOptions{}, true},
		{"bad stop bits", PortOptions{StopBits: 3}, PortOptions{}, true},
		{"bad parity", PortOptions{Parity: "mark"}, PortOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}

	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode.BaudRate != DefaultBaudRate || mode.StopBits != serial.TwoStopBits || mode.Parity != serial.OddParity {
		t.Errorf("SerialMode() = %+v", mode)
	}
}
