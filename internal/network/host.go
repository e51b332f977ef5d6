package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/logging"
)

// ErrScanUnsupported is returned by HostStack.Scan.
var ErrScanUnsupported = errors.New("network scan not supported on host stack")

// HostStack maps the lifecycle onto a machine whose networking is managed
// by the operating system. Joining a network succeeds when the chosen
// interface has an IPv4 address; the SSID is only recorded.
type HostStack struct {
	mu     sync.Mutex
	iface  string
	ssid   string
	up     bool
	ap     string
	events chan StackEvent
	log    *zap.Logger
}

// NewHostStack uses the named interface, or the first non-loopback
// interface with an IPv4 address when name is empty.
func NewHostStack(name string) *HostStack {
	return &HostStack{
		iface:  name,
		events: make(chan StackEvent, 16),
		log:    logging.Named("network.host"),
	}
}

// PrimaryInterface returns the named interface, or the first interface
// that is up, not loopback and has an IPv4 address.
func PrimaryInterface(name string) (*net.Interface, *net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	for i := range ifaces {
		ifc := &ifaces[i]
		if name != "" && ifc.Name != name {
			continue
		}
		if name == "" && (ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0) {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			return ifc, ipnet, nil
		}
	}

	if name != "" {
		return nil, nil, fmt.Errorf("interface %q has no IPv4 address", name)
	}
	return nil, nil, errors.New("no interface with an IPv4 address")
}

// Connect implements Stack.
func (h *HostStack) Connect(ssid, pass string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ap = ""
	_, ipnet, err := PrimaryInterface(h.iface)
	if err != nil {
		h.log.Warn("No usable interface", zap.Error(err))
		h.emit(StackEvent{Kind: EventDisconnected, Reason: ReasonNoAPFound})
		return nil
	}

	h.ssid = ssid
	h.up = true
	h.emit(StackEvent{Kind: EventConnected, SSID: ssid})
	h.emit(StackEvent{Kind: EventGotIP, IP: ipnet.IP.String()})
	return nil
}

// Disconnect implements Stack.
func (h *HostStack) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.up {
		return nil
	}
	h.up = false
	h.emit(StackEvent{Kind: EventDisconnected, Reason: ReasonAssocLeave})
	return nil
}

// StartAccessPoint implements Stack. The host keeps serving on its existing
// interfaces.
func (h *HostStack) StartAccessPoint(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ap = name
	h.log.Info("Access point requested; serving on host interfaces", zap.String("name", name))
	return nil
}

// Scan implements Stack.
func (h *HostStack) Scan(ctx context.Context) ([]NetworkInfo, error) {
	return nil, ErrScanUnsupported
}

// Status implements Stack.
func (h *HostStack) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	ifc, ipnet, err := PrimaryInterface(h.iface)
	if err != nil {
		return Status{}
	}
	st := Status{MAC: ifc.HardwareAddr.String()}
	if h.up {
		st.Connected = true
		st.SSID = h.ssid
		st.IP = ipnet.IP.String()
		st.Subnet = net.IP(ipnet.Mask).String()
	}
	return st
}

// Events implements Stack.
func (h *HostStack) Events() <-chan StackEvent { return h.events }

func (h *HostStack) emit(ev StackEvent) {
	select {
	case h.events <- ev:
	default:
	}
}
