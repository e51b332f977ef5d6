package config

import (
	"fmt"

	"github.com/muurk/luxio/internal/led"
)

// Limits and defaults of the persisted device record.
const (
	MaxNameLen = 32
	MaxSSIDLen = 32
	MaxPassLen = 64

	DefaultLEDCount = 60
	DefaultLEDPin   = 16
	DefaultLEDType  = led.SK6812
)

// Config is the durable record of a device. It is created with defaults on
// first boot, rewritten by every mutating command and only removed by a
// factory reset.
type Config struct {
	LEDCount    int           `yaml:"led_count"`
	LEDPin      uint8         `yaml:"led_pin"`
	LEDType     led.StripType `yaml:"led_type"`
	NetworkSSID string        `yaml:"network_ssid"`
	NetworkPass string        `yaml:"network_pass"`
	DeviceName  string        `yaml:"device_name"`
}

// Default returns the first-boot configuration. The device name is left
// empty; the device derives one from its id.
func Default() Config {
	return Config{
		LEDCount: DefaultLEDCount,
		LEDPin:   DefaultLEDPin,
		LEDType:  DefaultLEDType,
	}
}

// HasCredentials reports whether network credentials are stored.
func (c Config) HasCredentials() bool {
	return c.NetworkSSID != ""
}

// Validate checks every field against its bounds. An empty device name is
// accepted so that a fresh record validates.
func (c Config) Validate() error {
	if c.LEDCount < 1 || c.LEDCount > led.MaxLEDs {
		return fmt.Errorf("led_count %d outside [1, %d]", c.LEDCount, led.MaxLEDs)
	}
	if c.LEDType != led.WS2812 && c.LEDType != led.SK6812 {
		return fmt.Errorf("unknown led_type %d", c.LEDType)
	}
	if len(c.DeviceName) > MaxNameLen {
		return fmt.Errorf("device_name longer than %d bytes", MaxNameLen)
	}
	if len(c.NetworkSSID) > MaxSSIDLen {
		return fmt.Errorf("network_ssid longer than %d bytes", MaxSSIDLen)
	}
	if len(c.NetworkPass) > MaxPassLen {
		return fmt.Errorf("network_pass longer than %d bytes", MaxPassLen)
	}
	return nil
}
