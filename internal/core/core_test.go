package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/led"
	"github.com/muurk/luxio/internal/network"
	"github.com/muurk/luxio/internal/rpc"
)

func newTestCore(t *testing.T) (*Core, *config.MemoryStore, *network.SimStack) {
	t.Helper()
	store := config.NewMemoryStore(nil)
	stack := network.NewSimStack("5C:CF:7F:A1:B2:C3")
	c, err := New(Options{
		ID:       "5C:CF:7F:A1:B2:C3",
		Version:  "103",
		Platform: "linux/amd64",
		Store:    store,
		Driver:   led.NewMemoryDriver(),
		Stack:    stack,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c, store, stack
}

func run(t *testing.T, c *Core) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func execute(t *testing.T, c *Core, id int, method string, params any) rpc.Response {
	t.Helper()
	req, err := rpc.NewRequest(id, method, params)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Execute(ctx, req)
	if err != nil {
		t.Fatalf("Execute(%s) error = %v", method, err)
	}
	return resp
}

func TestNewRequiresAdapters(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() with no store, driver or stack succeeded")
	}
}

func TestExecute(t *testing.T) {
	c, _, _ := newTestCore(t)
	run(t, c)

	resp := execute(t, c, 1, "system.ping", nil)
	if resp.Result != "pong" || resp.ID == nil || *resp.ID != 1 {
		t.Errorf("ping = %+v", resp)
	}

	resp = execute(t, c, 2, "bad.method", nil)
	if resp.Error != "unknown_method" {
		t.Errorf("bad.method error = %q", resp.Error)
	}
}

func TestExecuteWithoutLoop(t *testing.T) {
	c, _, _ := newTestCore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := rpc.NewRequest(1, "system.ping", nil)
	if _, err := c.Execute(ctx, req); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want deadline exceeded", err)
	}
}

func TestExecuteExpiredIsNotApplied(t *testing.T) {
	c, store, _ := newTestCore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := rpc.NewRequest(1, "led.set_count", map[string]int{"count": 10})
	if _, err := c.Execute(ctx, req); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() error = %v, want deadline exceeded", err)
	}

	c.Loop().Step(c.Loop().Clock().Now())

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LEDCount != config.DefaultLEDCount {
		t.Errorf("stored led_count = %d, want %d", cfg.LEDCount, config.DefaultLEDCount)
	}
	if got := c.Device().FullState().LED.Config.Count; got != config.DefaultLEDCount {
		t.Errorf("led count = %d, want %d", got, config.DefaultLEDCount)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	c, _, _ := newTestCore(t)
	run(t, c)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, ch, state, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer c.Unsubscribe(id)

	if state.System.Config.Name != "Luxio-A1B2C3" {
		t.Errorf("initial name = %q", state.System.Config.Name)
	}

	if resp := execute(t, c, 1, "system.set_name", map[string]string{"name": "Porch"}); !resp.OK() {
		t.Fatalf("set_name error = %s", resp.Error)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Event == events.SystemConfig {
				return
			}
		case <-deadline:
			t.Fatal("system.config event not received")
		}
	}
}

func TestBootStartsHotspotWithoutCredentials(t *testing.T) {
	c, _, stack := newTestCore(t)
	run(t, c)

	deadline := time.Now().Add(5 * time.Second)
	for stack.AccessPoint() == "" {
		if time.Now().After(deadline) {
			t.Fatal("hotspot not started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := stack.AccessPoint(); got != "Luxio-A1B2C3" {
		t.Errorf("hotspot name = %q", got)
	}
}

func TestRestart(t *testing.T) {
	c, _, _ := newTestCore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if resp := execute(t, c, 1, "system.restart", nil); !resp.OK() {
		t.Fatalf("restart error = %s", resp.Error)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrRestart) {
			t.Errorf("Run() error = %v, want ErrRestart", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after restart")
	}
}

func TestFactoryResetErasesStore(t *testing.T) {
	c, store, _ := newTestCore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if resp := execute(t, c, 1, "system.factory_reset", nil); !resp.OK() {
		t.Fatalf("factory_reset error = %s", resp.Error)
	}
	if store.Stored() {
		t.Error("record survived factory reset")
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrRestart) {
			t.Errorf("Run() error = %v, want ErrRestart", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after factory reset")
	}
}
