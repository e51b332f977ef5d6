package device

import (
	"github.com/muurk/luxio/internal/led"
	"github.com/muurk/luxio/internal/network"
)

// SystemState is the live system state.
type SystemState struct {
	ID         string `json:"id"`
	Version    string `json:"version"`
	Commit     string `json:"commit,omitempty"`
	Platform   string `json:"platform"`
	Uptime     int64  `json:"uptime"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	Goroutines int    `json:"goroutines"`
	GoVersion  string `json:"go_version"`
	Debug      bool   `json:"debug"`
}

// SystemConfig is the durable system configuration.
type SystemConfig struct {
	Name string `json:"name"`
}

// LEDState is the commanded LED state.
type LEDState struct {
	On         bool        `json:"on"`
	Brightness uint8       `json:"brightness"`
	Colors     []led.Color `json:"colors"`
}

// LEDConfig is the durable strip configuration.
type LEDConfig struct {
	Count int    `json:"count"`
	Pin   uint8  `json:"pin"`
	Type  string `json:"type"`
}

// SystemDomain groups the system snapshots.
type SystemDomain struct {
	State  SystemState  `json:"state"`
	Config SystemConfig `json:"config"`
}

// NetworkDomain groups the network snapshots.
type NetworkDomain struct {
	State  network.StateSnapshot  `json:"state"`
	Config network.ConfigSnapshot `json:"config"`
}

// LEDDomain groups the LED snapshots.
type LEDDomain struct {
	State  LEDState  `json:"state"`
	Config LEDConfig `json:"config"`
}

// FullState is every domain's state and config.
type FullState struct {
	System  SystemDomain  `json:"system"`
	Network NetworkDomain `json:"network"`
	LED     LEDDomain     `json:"led"`
}

// FullState composes the snapshot of every domain.
func (d *Device) FullState() FullState {
	return FullState{
		System:  SystemDomain{State: d.SystemState(), Config: d.SystemConfig()},
		Network: NetworkDomain{State: d.NetworkState(), Config: d.NetworkConfig()},
		LED:     LEDDomain{State: d.LEDState(), Config: d.LEDConfig()},
	}
}
