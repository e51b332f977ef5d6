package device

import (
	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/network"
)

// NetworkState returns the live network state.
func (d *Device) NetworkState() network.StateSnapshot {
	if d.net == nil {
		return network.StateSnapshot{State: network.Disconnected.String()}
	}
	return d.net.StateSnapshot()
}

// NetworkConfig returns the stored network configuration.
func (d *Device) NetworkConfig() network.ConfigSnapshot {
	return network.ConfigSnapshot{SSID: d.cfg.NetworkSSID}
}

// Networks returns the last scan result.
func (d *Device) Networks() []network.NetworkInfo {
	if d.net == nil {
		return []network.NetworkInfo{}
	}
	return d.net.Networks()
}

// ScanNetworks starts a scan; the result arrives as network.networks.
func (d *Device) ScanNetworks() {
	if d.net != nil {
		d.net.ScanNetworks()
	}
}

// Connect stores new credentials and rejoins with them.
func (d *Device) Connect(ssid, pass string) error {
	if len(ssid) < 1 || len(ssid) > config.MaxSSIDLen {
		return apierr.Validationf(apierr.CodeSSIDOutOfRange, "ssid must be 1-%d bytes", config.MaxSSIDLen)
	}
	if len(pass) > config.MaxPassLen {
		return apierr.Validationf(apierr.CodePassOutOfRange, "pass must be at most %d bytes", config.MaxPassLen)
	}
	if d.net == nil {
		return apierr.Internal(apierr.CodeInternal, nil)
	}
	return d.net.Connect(ssid, pass)
}

// Disconnect erases the stored credentials and drops the link.
func (d *Device) Disconnect() error {
	if d.net == nil {
		return apierr.Internal(apierr.CodeInternal, nil)
	}
	return d.net.Disconnect()
}
