package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device is a controller found on the local network.
type Device struct {
	// ID is the hardware id from the "id" TXT record (e.g. "5C:CF:7F:A1:B2:C3").
	ID string

	// Name is the user-assigned device name from the "name" TXT record.
	Name string

	// Version is the firmware version from the "version" TXT record.
	Version string

	// Hostname is the mDNS hostname (e.g. "Luxio-A1B2C3.local.").
	Hostname string

	// IP is the preferred address, IPv4 when available.
	IP string

	// Port is the HTTP port.
	Port int

	// Metadata holds every TXT record.
	Metadata map[string]string

	// DiscoveredAt is when the device answered.
	DiscoveredAt time.Time
}

// String returns a human-readable description of the device.
func (d *Device) String() string {
	return fmt.Sprintf("Luxio %s (%s) at %s", d.Name, d.ID, d.Address())
}

// Address returns host:port.
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// BaseURL returns the HTTP base URL of the device.
func (d *Device) BaseURL() string {
	return "http://" + d.Address()
}
