package rpc

import (
	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/led"
)

var ledHandlers = map[string]HandlerFunc{
	"led.get_config":     ledGetConfig,
	"led.get_state":      ledGetState,
	"led.get_count":      getCount,
	"led.set_count":      setCount,
	"led.get_pin":        getPin,
	"led.set_pin":        setPin,
	"led.get_type":       getType,
	"led.set_type":       setType,
	"led.set_on":         setOn,
	"led.set_color":      setColor,
	"led.set_gradient":   setGradient,
	"led.set_brightness": setBrightness,
	"led.set_animation":  setAnimation,
}

func ledGetConfig(dev *device.Device, _ Params) (any, error) {
	return dev.LEDConfig(), nil
}

func ledGetState(dev *device.Device, _ Params) (any, error) {
	return dev.LEDState(), nil
}

func getCount(dev *device.Device, _ Params) (any, error) {
	return dev.LEDConfig().Count, nil
}

func setCount(dev *device.Device, p Params) (any, error) {
	count, ok := p.Int("count")
	if !ok {
		return nil, apierr.Validation(apierr.CodeInvalidCount)
	}
	return nil, dev.SetCount(count)
}

func getPin(dev *device.Device, _ Params) (any, error) {
	return dev.LEDConfig().Pin, nil
}

func setPin(dev *device.Device, p Params) (any, error) {
	pin, ok := p.Int("pin")
	if !ok {
		return nil, apierr.Validation(apierr.CodeInvalidPin)
	}
	return nil, dev.SetPin(pin)
}

func getType(dev *device.Device, _ Params) (any, error) {
	return dev.LEDConfig().Type, nil
}

func setType(dev *device.Device, p Params) (any, error) {
	typ, ok := p.String("type")
	if !ok {
		return nil, apierr.Validation(apierr.CodeInvalidType)
	}
	return nil, dev.SetType(typ)
}

func setOn(dev *device.Device, p Params) (any, error) {
	on, ok := p.Bool("on")
	if !ok {
		return nil, apierr.Validation(apierr.CodeMissingOn)
	}
	return nil, dev.SetOn(on)
}

// setColor takes flat {r, g, b, w?} params; r, g and b are required.
func setColor(dev *device.Device, p Params) (any, error) {
	c, ok := parseColor(p, true)
	if !ok {
		return nil, apierr.Validation(apierr.CodeInvalidColor)
	}
	return nil, dev.SetColor(c)
}

// setGradient takes {colors: [{r, g, b, w}, ...]}. Missing channels are 0.
func setGradient(dev *device.Device, p Params) (any, error) {
	items, ok := p.Array("colors")
	if !ok {
		return nil, apierr.Validation(apierr.CodeColorsOutOfRange)
	}

	colors := make([]led.Color, 0, len(items))
	for _, item := range items {
		cp := ParseParams(item)
		if cp.fields == nil {
			return nil, apierr.Validation(apierr.CodeInvalidColor)
		}
		c, ok := parseColor(cp, false)
		if !ok {
			return nil, apierr.Validation(apierr.CodeInvalidColor)
		}
		colors = append(colors, c)
	}
	return nil, dev.SetGradient(colors)
}

func setBrightness(dev *device.Device, p Params) (any, error) {
	brightness, ok := p.Int("brightness")
	if !ok {
		return nil, apierr.Validation(apierr.CodeInvalidBrightness)
	}
	return nil, dev.SetBrightness(brightness)
}

func setAnimation(*device.Device, Params) (any, error) {
	return nil, apierr.NotImplemented("led.set_animation")
}

// parseColor reads r, g, b and w. With rgbRequired, a missing r, g or b
// fails; otherwise missing channels are 0. A present channel must be an
// integer in [0, 255].
func parseColor(p Params, rgbRequired bool) (led.Color, bool) {
	var c led.Color
	channels := []struct {
		key      string
		dst      *uint8
		required bool
	}{
		{"r", &c.R, rgbRequired},
		{"g", &c.G, rgbRequired},
		{"b", &c.B, rgbRequired},
		{"w", &c.W, false},
	}
	for _, ch := range channels {
		if !p.Has(ch.key) {
			if ch.required {
				return led.Color{}, false
			}
			continue
		}
		v, ok := p.Int(ch.key)
		if !ok || v < 0 || v > 255 {
			return led.Color{}, false
		}
		*ch.dst = uint8(v)
	}
	return c, true
}
