// Package device is the controller's state model: the one owner of the
// durable record, the LED engine and the links to the network controller
// and sync tasks. Every transport reads and mutates the device through it.
//
// Setters validate, persist and only then apply and emit, so an event is
// never published for a change that did not reach the store. All methods
// must run on the run loop.
package device

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/discovery"
	"github.com/muurk/luxio/internal/led"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/loop"
	"github.com/muurk/luxio/internal/network"
)

const (
	// NamePrefix starts every default device name.
	NamePrefix = "Luxio-"

	// RestartDelay separates a restart request from the restart.
	RestartDelay = 1 * time.Second

	// DiscoveryDelay is the wait before a discovery sync after a change
	// that alters the descriptor.
	DiscoveryDelay = 1 * time.Second
)

// Emitter publishes events.
type Emitter interface {
	Emit(event string, data any)
}

// Options carries the identity of the running controller.
type Options struct {
	ID       string
	Version  string
	Commit   string
	Platform string

	// Restart is invoked RestartDelay after a restart request.
	Restart func()
}

// Device is the state model.
type Device struct {
	loop       *loop.Loop
	store      config.Store
	engine     *led.Engine
	emitter    Emitter
	advertiser discovery.Advertiser
	net        *network.Controller
	syncer     network.Syncer
	log        *zap.Logger

	cfg config.Config

	id       string
	version  string
	commit   string
	platform string
	bootedAt time.Time
	restart  func()
}

// New creates the state model around a loaded record.
func New(l *loop.Loop, store config.Store, cfg config.Config, engine *led.Engine, emitter Emitter, advertiser discovery.Advertiser, opts Options) *Device {
	if advertiser == nil {
		advertiser = &discovery.StaticAdvertiser{}
	}
	restart := opts.Restart
	if restart == nil {
		restart = func() {}
	}
	return &Device{
		loop:       l,
		store:      store,
		engine:     engine,
		emitter:    emitter,
		advertiser: advertiser,
		log:        logging.Named("device"),
		cfg:        cfg,
		id:         opts.ID,
		version:    opts.Version,
		commit:     opts.Commit,
		platform:   opts.Platform,
		bootedAt:   l.Clock().Now(),
		restart:    restart,
	}
}

// Attach links the network controller and the sync tasks.
func (d *Device) Attach(ctrl *network.Controller, syncer network.Syncer) {
	d.net = ctrl
	d.syncer = syncer
}

// Boot stores a default name on first boot and brings the strip up.
func (d *Device) Boot() error {
	if d.cfg.DeviceName == "" {
		next := d.cfg
		next.DeviceName = d.DefaultName()
		if err := d.store.Save(next); err != nil {
			d.log.Warn("Failed to store default name", zap.Error(err))
		}
		d.cfg = next
	}

	d.log.Info("Booting",
		zap.String("name", d.cfg.DeviceName),
		zap.String("version", d.version),
	)
	return d.engine.Setup(d.cfg.LEDCount, d.cfg.LEDPin, d.cfg.LEDType)
}

// ID returns the hardware id.
func (d *Device) ID() string { return d.id }

// Version returns the firmware version.
func (d *Device) Version() string { return d.version }

// Config returns a copy of the durable record.
func (d *Device) Config() config.Config { return d.cfg }

// DefaultName derives "Luxio-XXXXXX" from the last six hex digits of the
// id.
func (d *Device) DefaultName() string {
	return DefaultName(d.id)
}

// DefaultName derives the default device name from a hardware id.
func DefaultName(id string) string {
	hex := strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(id))
	if len(hex) > 6 {
		hex = hex[len(hex)-6:]
	}
	return NamePrefix + hex
}

// Credentials implements network.Host.
func (d *Device) Credentials() (string, string) {
	return d.cfg.NetworkSSID, d.cfg.NetworkPass
}

// SaveCredentials implements network.Host.
func (d *Device) SaveCredentials(ssid, pass string) error {
	return d.persist(func(c *config.Config) {
		c.NetworkSSID = ssid
		c.NetworkPass = pass
	})
}

// HotspotName implements network.Host.
func (d *Device) HotspotName() string {
	return d.DefaultName()
}

// persist applies mutate to a copy of the record, saves it and commits it
// on success.
func (d *Device) persist(mutate func(*config.Config)) error {
	next := d.cfg
	mutate(&next)
	if err := d.store.Save(next); err != nil {
		d.log.Error("Failed to persist config", zap.Error(err))
		return apierr.Internal(apierr.CodePersistFailed, err)
	}
	d.cfg = next
	return nil
}

func (d *Device) scheduleDiscovery() {
	if d.syncer == nil {
		return
	}
	d.loop.After("discovery-sync", DiscoveryDelay, d.syncer.SyncDiscovery)
}

// Descriptor returns the record reported to the discovery endpoint.
func (d *Device) Descriptor() discovery.Descriptor {
	desc := discovery.Descriptor{
		ID:       d.id,
		Platform: d.platform,
		Name:     d.cfg.DeviceName,
		Version:  d.version,
		Pixels:   d.cfg.LEDCount,
	}
	if d.net != nil {
		desc.Address = d.net.Address()
		desc.WiFiSSID = d.net.StateSnapshot().SSID
	}
	return desc
}
