package network

import (
	"context"
	"sync"
	"time"
)

// SimNetwork is a network a SimStack can join.
type SimNetwork struct {
	NetworkInfo
	Pass string
}

// SimStack is an in-process network stack. Without configured networks it
// joins any SSID with any passphrase.
type SimStack struct {
	mu       sync.Mutex
	networks []SimNetwork
	status   Status
	ap       string
	connects int
	events   chan StackEvent

	// ScanDelay is how long Scan takes.
	ScanDelay time.Duration
}

// NewSimStack creates a simulated stack with the given MAC address.
func NewSimStack(mac string, networks ...SimNetwork) *SimStack {
	return &SimStack{
		networks: networks,
		status:   Status{MAC: mac},
		events:   make(chan StackEvent, 64),
	}
}

// Connect implements Stack. The outcome is queued on Events immediately.
func (s *SimStack) Connect(ssid, pass string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connects++
	s.ap = ""

	info := NetworkInfo{SSID: ssid, BSSID: "02:00:00:00:00:01", RSSI: -50, Encryption: "ccmp"}
	if len(s.networks) > 0 {
		found := false
		for _, n := range s.networks {
			if n.SSID != ssid {
				continue
			}
			found = true
			if n.Pass != pass {
				s.emit(StackEvent{Kind: EventDisconnected, Reason: ReasonAuthFail})
				return nil
			}
			info = n.NetworkInfo
			break
		}
		if !found {
			s.emit(StackEvent{Kind: EventDisconnected, Reason: ReasonNoAPFound})
			return nil
		}
	}

	s.status = Status{
		Connected: true,
		MAC:       s.status.MAC,
		SSID:      info.SSID,
		BSSID:     info.BSSID,
		RSSI:      info.RSSI,
		IP:        "192.168.1.50",
		Gateway:   "192.168.1.1",
		Subnet:    "255.255.255.0",
		DNS:       "192.168.1.1",
	}
	s.emit(StackEvent{Kind: EventConnected, SSID: info.SSID})
	s.emit(StackEvent{Kind: EventGotIP, IP: s.status.IP})
	return nil
}

// Disconnect implements Stack.
func (s *SimStack) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(ReasonAssocLeave)
	return nil
}

// Drop simulates loss of the link.
func (s *SimStack) Drop(reason int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(reason)
}

func (s *SimStack) dropLocked(reason int) {
	if !s.status.Connected {
		return
	}
	s.status = Status{MAC: s.status.MAC}
	s.emit(StackEvent{Kind: EventDisconnected, Reason: reason})
}

// StartAccessPoint implements Stack.
func (s *SimStack) StartAccessPoint(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ap = name
	return nil
}

// Scan implements Stack.
func (s *SimStack) Scan(ctx context.Context) ([]NetworkInfo, error) {
	if s.ScanDelay > 0 {
		select {
		case <-time.After(s.ScanDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NetworkInfo, len(s.networks))
	for i, n := range s.networks {
		out[i] = n.NetworkInfo
	}
	return out, nil
}

// Status implements Stack.
func (s *SimStack) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Events implements Stack.
func (s *SimStack) Events() <-chan StackEvent { return s.events }

// AccessPoint returns the name of the running access point, or "".
func (s *SimStack) AccessPoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ap
}

// Connects returns the number of Connect calls.
func (s *SimStack) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

func (s *SimStack) emit(ev StackEvent) {
	select {
	case s.events <- ev:
	default:
	}
}
