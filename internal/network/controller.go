package network

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/loop"
)

// StateSnapshot is the live network state.
type StateSnapshot struct {
	State              string `json:"state"`
	Connected          bool   `json:"connected"`
	ConnectedSinceBoot bool   `json:"connected_since_boot"`
	HotspotActive      bool   `json:"hotspot_active"`
	MAC                string `json:"mac,omitempty"`
	SSID               string `json:"ssid,omitempty"`
	BSSID              string `json:"bssid,omitempty"`
	RSSI               int    `json:"rssi,omitempty"`
	IP                 string `json:"ip,omitempty"`
	Gateway            string `json:"gateway,omitempty"`
	Subnet             string `json:"subnet,omitempty"`
	DNS                string `json:"dns,omitempty"`
}

// ConfigSnapshot is the durable network configuration. The passphrase is
// never reported.
type ConfigSnapshot struct {
	SSID string `json:"ssid"`
}

// Controller drives the connect-or-hotspot lifecycle. All methods except
// Start must be called on the run loop.
type Controller struct {
	loop    *loop.Loop
	stack   Stack
	host    Host
	emitter Emitter
	syncer  Syncer
	log     *zap.Logger

	ctx context.Context

	state              State
	connected          bool
	connectedSinceBoot bool
	hotspot            bool
	// Set by Disconnect so the resulting disconnect event does not bring
	// the hotspot up.
	suppressFallback bool

	networks []NetworkInfo
	scanning bool
}

// NewController creates a controller. syncer may be nil.
func NewController(l *loop.Loop, stack Stack, host Host, emitter Emitter, syncer Syncer) *Controller {
	return &Controller{
		loop:    l,
		stack:   stack,
		host:    host,
		emitter: emitter,
		syncer:  syncer,
		log:     logging.Named("network"),
		ctx:     context.Background(),
		state:   Disconnected,
	}
}

// Start forwards stack events into the run loop until ctx is done, then
// boots. It must run before the loop starts or on it.
func (c *Controller) Start(ctx context.Context) {
	c.ctx = ctx
	if ch := c.stack.Events(); ch != nil {
		go c.pump(ctx, ch)
	}
	c.Boot()
}

// Boot makes the boot decision: join the stored network, or bring the
// hotspot up when there is none.
func (c *Controller) Boot() {
	ssid, pass := c.host.Credentials()
	if ssid == "" {
		c.log.Info("No network credentials found, starting hotspot")
		c.startHotspot()
		return
	}

	c.log.Info("Connecting", zap.String("ssid", ssid))
	c.state = Connecting
	if err := c.stack.Connect(ssid, pass); err != nil {
		c.log.Warn("Connect failed", zap.String("ssid", ssid), zap.Error(err))
	}
}

func (c *Controller) pump(ctx context.Context, ch <-chan StackEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.loop.Post(func() { c.HandleEvent(ev) })
		}
	}
}

// HandleEvent applies a stack event.
func (c *Controller) HandleEvent(ev StackEvent) {
	switch ev.Kind {
	case EventConnected:
		c.log.Info("Associated", zap.String("ssid", ev.SSID))
		c.emitter.Emit(events.NetworkConnected, map[string]any{"ssid": ev.SSID})
		c.emitState()

	case EventGotIP:
		c.connected = true
		c.connectedSinceBoot = true
		c.state = Connected
		c.log.Info("Got IP address", zap.String("ip", ev.IP))

		c.emitter.Emit(events.NetworkIP, map[string]any{"ip": ev.IP})
		c.emitState()

		if c.syncer != nil {
			c.loop.After("discovery-sync", DiscoveryDelay, c.syncer.SyncDiscovery)
			c.loop.After("update-check", UpdateDelay, c.syncer.CheckUpdate)
		}

	case EventDisconnected:
		c.connected = false
		c.state = Disconnected
		if c.hotspot {
			c.state = HotspotFallback
		}
		c.log.Info("Disconnected", zap.Int("reason", ev.Reason))

		c.emitter.Emit(events.NetworkDisconnected, map[string]any{"reason": ev.Reason})
		c.emitState()

		if c.suppressFallback {
			c.suppressFallback = false
			return
		}
		if !c.connectedSinceBoot && !c.hotspot {
			c.log.Info("Could not connect, starting hotspot")
			c.startHotspot()
		}

	default:
		c.log.Debug("Ignoring stack event", zap.Stringer("kind", ev.Kind))
	}
}

func (c *Controller) startHotspot() {
	name := c.host.HotspotName()
	if err := c.stack.StartAccessPoint(name); err != nil {
		c.log.Error("Failed to start hotspot", zap.String("name", name), zap.Error(err))
		c.state = Disconnected
		return
	}
	c.hotspot = true
	c.state = HotspotFallback
	c.log.Info("Hotspot started", zap.String("name", name))
	c.emitState()
}

// Connect stores new credentials and, after SettleDelay, drops the current
// link or hotspot and joins the new network. The deferred join uses the
// credentials captured here.
func (c *Controller) Connect(ssid, pass string) error {
	if err := c.host.SaveCredentials(ssid, pass); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	c.emitConfig()

	c.loop.After("reconnect", SettleDelay, func() {
		c.log.Debug("Disconnecting")
		if err := c.stack.Disconnect(); err != nil {
			c.log.Warn("Disconnect failed", zap.Error(err))
		}

		c.hotspot = false
		c.suppressFallback = false
		c.connected = false
		c.state = Connecting

		c.log.Info("Connecting", zap.String("ssid", ssid))
		if err := c.stack.Connect(ssid, pass); err != nil {
			c.log.Warn("Connect failed", zap.String("ssid", ssid), zap.Error(err))
		}
		c.emitState()
	})
	return nil
}

// Disconnect erases the stored credentials and, after SettleDelay, drops
// the link. The hotspot is not brought up again.
func (c *Controller) Disconnect() error {
	if err := c.host.SaveCredentials("", ""); err != nil {
		return fmt.Errorf("failed to erase credentials: %w", err)
	}
	c.emitConfig()

	c.loop.After("disconnect", SettleDelay, func() {
		c.log.Debug("Disconnecting")
		c.suppressFallback = true
		if err := c.stack.Disconnect(); err != nil {
			c.log.Warn("Disconnect failed", zap.Error(err))
		}
	})
	return nil
}

// ScanNetworks starts a scan off the loop. The result replaces Networks and
// is emitted as network.networks. A scan already running is not restarted.
func (c *Controller) ScanNetworks() {
	if c.scanning {
		c.log.Debug("Scan already in progress")
		return
	}
	c.scanning = true

	ctx, cancel := context.WithTimeout(c.ctx, ScanTimeout)
	go func() {
		defer cancel()
		nets, err := c.stack.Scan(ctx)
		c.loop.Post(func() {
			c.scanning = false
			if err != nil {
				c.log.Warn("Scan failed", zap.Error(err))
				return
			}
			c.networks = nets
			c.log.Debug("Scan complete", zap.Int("found", len(nets)))
			c.emitter.Emit(events.NetworkNetworks, c.Networks())
		})
	}()
}

// Networks returns the result of the last scan.
func (c *Controller) Networks() []NetworkInfo {
	out := make([]NetworkInfo, len(c.networks))
	copy(out, c.networks)
	return out
}

// Scanning reports whether a scan is in flight.
func (c *Controller) Scanning() bool { return c.scanning }

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Connected reports whether the station link is up with an address.
func (c *Controller) Connected() bool { return c.state == Connected }

// HotspotActive reports whether the local access point is up.
func (c *Controller) HotspotActive() bool { return c.hotspot }

// StateSnapshot returns the live network state.
func (c *Controller) StateSnapshot() StateSnapshot {
	st := c.stack.Status()
	snap := StateSnapshot{
		State:              c.state.String(),
		Connected:          c.connected,
		ConnectedSinceBoot: c.connectedSinceBoot,
		HotspotActive:      c.hotspot,
		MAC:                st.MAC,
	}
	if c.connected {
		snap.SSID = st.SSID
		snap.BSSID = st.BSSID
		snap.RSSI = st.RSSI
		snap.IP = st.IP
		snap.Gateway = st.Gateway
		snap.Subnet = st.Subnet
		snap.DNS = st.DNS
	}
	return snap
}

// ConfigSnapshot returns the stored network configuration.
func (c *Controller) ConfigSnapshot() ConfigSnapshot {
	ssid, _ := c.host.Credentials()
	return ConfigSnapshot{SSID: ssid}
}

// Address returns the station address, or "" when not connected.
func (c *Controller) Address() string {
	if !c.connected {
		return ""
	}
	return c.stack.Status().IP
}

func (c *Controller) emitState() {
	c.emitter.Emit(events.NetworkState, c.StateSnapshot())
}

func (c *Controller) emitConfig() {
	c.emitter.Emit(events.NetworkConfig, c.ConfigSnapshot())
}
