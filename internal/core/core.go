// Package core assembles the controller: one run loop owning the store,
// the LED engine, the state model, the network controller, the sync tasks
// and the dispatcher. Transports talk to it through Execute and the event
// stream.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/discovery"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/led"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/loop"
	"github.com/muurk/luxio/internal/network"
	"github.com/muurk/luxio/internal/rpc"
	"github.com/muurk/luxio/internal/syncer"
	"github.com/muurk/luxio/internal/timeutil"
)

// ErrRestart is returned by Run when the controller asked to be restarted.
var ErrRestart = errors.New("restart requested")

// Options configures a controller. Store, Driver and Stack are required.
type Options struct {
	ID       string
	Version  string
	Commit   string
	Platform string

	Store      config.Store
	Driver     led.Driver
	Stack      network.Stack
	Advertiser discovery.Advertiser

	// Registrar and Updater are optional; a nil value disables the task.
	Registrar syncer.Registrar
	Updater   syncer.Updater

	// Clock defaults to the wall clock.
	Clock timeutil.Clock
	// EventBuffer is the per-subscriber queue length.
	EventBuffer int
}

// Core is an assembled controller.
type Core struct {
	loop       *loop.Loop
	emitter    *events.Emitter
	device     *device.Device
	network    *network.Controller
	syncer     *syncer.Syncer
	dispatcher *rpc.Dispatcher
	log        *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	restarted bool
}

// New assembles a controller and brings the strip up. The stored record is
// loaded once; an unreadable record is replaced by defaults.
func New(opts Options) (*Core, error) {
	if opts.Store == nil || opts.Driver == nil || opts.Stack == nil {
		return nil, errors.New("core: store, driver and stack are required")
	}
	log := logging.Named("core")

	cfg, err := opts.Store.Load()
	if err != nil {
		log.Warn("Failed to load config, using defaults", zap.Error(err))
		cfg = config.Default()
	}

	c := &Core{
		loop:    loop.New(opts.Clock, 0),
		emitter: events.NewEmitter(opts.EventBuffer),
		log:     log,
	}

	engine := led.NewEngine(opts.Driver, c.loop.Clock())
	c.device = device.New(c.loop, opts.Store, cfg, engine, c.emitter, opts.Advertiser, device.Options{
		ID:       opts.ID,
		Version:  opts.Version,
		Commit:   opts.Commit,
		Platform: opts.Platform,
		Restart:  c.requestRestart,
	})

	c.syncer = syncer.New(c.loop, nil, opts.Registrar, opts.Updater, c.device.Descriptor, opts.Version)
	c.network = network.NewController(c.loop, opts.Stack, c.device, c.emitter, c.syncer)
	c.syncer.SetLink(c.network)
	c.device.Attach(c.network, c.syncer)
	c.dispatcher = rpc.NewDispatcher(c.device)

	if err := c.device.Boot(); err != nil {
		return nil, fmt.Errorf("failed to boot device: %w", err)
	}
	c.loop.OnTick(func(now time.Time) { engine.Tick(now) })
	return c, nil
}

// Run starts the network controller and the sync tasks, announces
// system.ready and drives the loop until ctx is done or a restart is
// requested, in which case it returns ErrRestart.
func (c *Core) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.network.Start(ctx)
	c.syncer.Start(ctx)
	c.emitter.Emit(events.SystemReady, struct{}{})
	c.log.Info("Controller ready",
		zap.String("name", c.device.Name()),
		zap.String("id", c.device.ID()),
	)

	err := c.loop.Run(ctx)

	c.mu.Lock()
	restarted := c.restarted
	c.mu.Unlock()
	if restarted {
		return ErrRestart
	}
	return err
}

func (c *Core) requestRestart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restarted = true
	if c.cancel != nil {
		c.cancel()
	}
}

// Execute runs one request on the loop and returns its response. A request
// whose context ends before the loop reaches it is dropped unapplied.
func (c *Core) Execute(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	var resp rpc.Response
	err := c.loop.Call(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		resp = c.dispatcher.Handle(req)
	})
	if err != nil {
		return rpc.Response{}, err
	}
	return resp, nil
}

// FullState returns the snapshot of every domain.
func (c *Core) FullState(ctx context.Context) (device.FullState, error) {
	var state device.FullState
	err := c.loop.Call(ctx, func() { state = c.device.FullState() })
	return state, err
}

// Subscribe registers an event listener and returns the full state as of
// the subscription, so no event is missed between the two.
func (c *Core) Subscribe(ctx context.Context) (string, <-chan events.Event, device.FullState, error) {
	var (
		id    string
		ch    <-chan events.Event
		state device.FullState
	)
	err := c.loop.Call(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		id, ch = c.emitter.Subscribe()
		state = c.device.FullState()
	})
	if err != nil {
		return "", nil, device.FullState{}, err
	}
	return id, ch, state, nil
}

// Unsubscribe removes an event listener.
func (c *Core) Unsubscribe(id string) {
	c.emitter.Unsubscribe(id)
}

// Close releases the event subscribers.
func (c *Core) Close() {
	c.emitter.Close()
}

// Device returns the state model. Its methods must only be called on the
// loop.
func (c *Core) Device() *device.Device { return c.device }

// Loop returns the run loop.
func (c *Core) Loop() *loop.Loop { return c.loop }
