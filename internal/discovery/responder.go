package discovery

import (
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/logging"
)

// Advertiser publishes the device on the local network.
type Advertiser interface {
	// SetName updates the advertised device name.
	SetName(name string)
	// Shutdown withdraws the advertisement.
	Shutdown()
}

// Responder advertises the controller as a _luxio._tcp service with id,
// name and version TXT records.
type Responder struct {
	mu      sync.Mutex
	server  *zeroconf.Server
	id      string
	name    string
	version string
	log     *zap.Logger
}

// NewResponder registers the service. instance is the mDNS instance name
// (the default device name, which never changes), name the user-facing
// name carried in TXT.
func NewResponder(instance string, port int, id, name, version string) (*Responder, error) {
	r := &Responder{
		id:      id,
		name:    name,
		version: version,
		log:     logging.Named("mdns"),
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, r.text(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	r.server = server

	r.log.Info("MDNS responder started",
		zap.String("instance", instance),
		zap.Int("port", port),
	)
	return r, nil
}

func (r *Responder) text() []string {
	return []string{
		"id=" + r.id,
		"name=" + r.name,
		"version=" + r.version,
	}
}

// SetName implements Advertiser.
func (r *Responder) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.name = name
	r.server.SetText(r.text())
	r.log.Debug("Updated TXT record", zap.String("name", name))
}

// Shutdown implements Advertiser.
func (r *Responder) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.server.Shutdown()
}

// StaticAdvertiser records the advertised name without touching the
// network. It stands in for the responder when mDNS is disabled.
type StaticAdvertiser struct {
	mu   sync.Mutex
	name string
}

// SetName implements Advertiser.
func (a *StaticAdvertiser) SetName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = name
}

// Shutdown implements Advertiser.
func (a *StaticAdvertiser) Shutdown() {}

// Name returns the last name set.
func (a *StaticAdvertiser) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}
