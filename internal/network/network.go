package network

import (
	"context"
	"time"
)

// State is the lifecycle state of the station link.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	HotspotFallback
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case HotspotFallback:
		return "hotspot"
	default:
		return "unknown"
	}
}

// Delays applied by the controller.
const (
	// SettleDelay separates a credential change from the reconnect.
	SettleDelay = 500 * time.Millisecond
	// DiscoveryDelay is the wait between acquiring an address and the
	// first discovery sync.
	DiscoveryDelay = 1 * time.Second
	// UpdateDelay is the wait between acquiring an address and the first
	// update check.
	UpdateDelay = 5 * time.Second
	// ScanTimeout bounds a network scan.
	ScanTimeout = 15 * time.Second
)

// Disconnect reasons reported by the stacks.
const (
	ReasonUnspecified = 1
	ReasonAssocLeave  = 8
	ReasonNoAPFound   = 201
	ReasonAuthFail    = 202
)

// NetworkInfo describes one network found by a scan.
type NetworkInfo struct {
	SSID       string `json:"ssid"`
	BSSID      string `json:"bssid"`
	RSSI       int    `json:"rssi"`
	Encryption string `json:"encryption"`
}

// Status is the live link status reported by a stack.
type Status struct {
	Connected bool
	MAC       string
	SSID      string
	BSSID     string
	RSSI      int
	IP        string
	Gateway   string
	Subnet    string
	DNS       string
}

// EventKind identifies a stack event.
type EventKind int

const (
	// EventConnected is association with an access point.
	EventConnected EventKind = iota
	// EventGotIP is address acquisition; the link is usable.
	EventGotIP
	// EventDisconnected is loss of association.
	EventDisconnected
)

// String returns a short name for the kind.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventGotIP:
		return "got_ip"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// StackEvent is a notification from the network stack.
type StackEvent struct {
	Kind   EventKind
	SSID   string
	IP     string
	Reason int
}

// Stack is the wireless network stack. Connect, Disconnect and
// StartAccessPoint return promptly; the outcome arrives later as a
// StackEvent. Scan blocks and must not be called on the run loop.
type Stack interface {
	Connect(ssid, pass string) error
	Disconnect() error
	StartAccessPoint(name string) error
	Scan(ctx context.Context) ([]NetworkInfo, error)
	Status() Status
	Events() <-chan StackEvent
}

// Host is the part of the device the controller reads and writes.
type Host interface {
	Credentials() (ssid, pass string)
	SaveCredentials(ssid, pass string) error
	HotspotName() string
}

// Syncer runs the background sync tasks.
type Syncer interface {
	SyncDiscovery()
	CheckUpdate()
}

// Emitter publishes events.
type Emitter interface {
	Emit(event string, data any)
}
