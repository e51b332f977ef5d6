package led

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StripType selects the pixel protocol of the attached strip.
type StripType int

const (
	// WS2812 is a three channel GRB strip.
	WS2812 StripType = iota
	// SK6812 is a four channel GRBW strip.
	SK6812
)

// String returns the wire name of the strip type.
func (t StripType) String() string {
	switch t {
	case WS2812:
		return "WS2812"
	case SK6812:
		return "SK6812"
	default:
		return "unknown"
	}
}

// InitialColor is the colour a freshly configured strip fades to: the
// dedicated white channel on RGBW strips, full RGB white otherwise.
func (t StripType) InitialColor() Color {
	if t == SK6812 {
		return Color{W: 255}
	}
	return Color{R: 255, G: 255, B: 255}
}

// ParseStripType parses a wire name ("WS2812", "SK6812").
func ParseStripType(s string) (StripType, error) {
	switch s {
	case "WS2812":
		return WS2812, nil
	case "SK6812":
		return SK6812, nil
	default:
		return 0, fmt.Errorf("unknown strip type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t StripType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *StripType) UnmarshalText(b []byte) error {
	parsed, err := ParseStripType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t StripType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *StripType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}
