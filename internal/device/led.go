package device

import (
	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/led"
)

// Brightness accepted from commands.
const (
	MinBrightness = 10
	MaxBrightness = 255
)

// LEDState returns the commanded LED state.
func (d *Device) LEDState() LEDState {
	return LEDState{
		On:         d.engine.On(),
		Brightness: d.engine.Brightness(),
		Colors:     d.engine.Colors(),
	}
}

// LEDConfig returns the durable strip configuration.
func (d *Device) LEDConfig() LEDConfig {
	return LEDConfig{
		Count: d.cfg.LEDCount,
		Pin:   d.cfg.LEDPin,
		Type:  d.cfg.LEDType.String(),
	}
}

// Engine returns the animation engine.
func (d *Device) Engine() *led.Engine { return d.engine }

// SetCount resizes the strip. The engine is reset and set up again, and
// the discovery endpoint learns the new size shortly after.
func (d *Device) SetCount(count int) error {
	if count < 1 || count > led.MaxLEDs {
		return apierr.Validationf(apierr.CodeCountOutOfRange, "count must be 1-%d", led.MaxLEDs)
	}
	if err := d.reconfigure(func(c *config.Config) { c.LEDCount = count }); err != nil {
		return err
	}
	d.scheduleDiscovery()
	return nil
}

// SetPin moves the strip to another data pin.
func (d *Device) SetPin(pin int) error {
	if pin < 0 || pin > 255 {
		return apierr.Validationf(apierr.CodePinOutOfRange, "pin must be 0-255")
	}
	return d.reconfigure(func(c *config.Config) { c.LEDPin = uint8(pin) })
}

// SetType changes the strip protocol ("WS2812", "SK6812").
func (d *Device) SetType(name string) error {
	typ, err := led.ParseStripType(name)
	if err != nil {
		return apierr.Validationf(apierr.CodeInvalidType, "%v", err)
	}
	return d.reconfigure(func(c *config.Config) { c.LEDType = typ })
}

// reconfigure persists the mutated strip record and sets the engine up
// again. When the driver rejects the new geometry the previous record is
// stored and set up again.
func (d *Device) reconfigure(mutate func(*config.Config)) error {
	prev := d.cfg
	if err := d.persist(mutate); err != nil {
		return err
	}

	if err := d.engine.Setup(d.cfg.LEDCount, d.cfg.LEDPin, d.cfg.LEDType); err != nil {
		d.log.Error("Failed to set up strip", zap.Error(err))
		d.restoreStrip(prev)
		return apierr.Internal(apierr.CodeInternal, err)
	}

	d.emitter.Emit(events.LEDConfig, d.LEDConfig())
	d.emitter.Emit(events.LEDState, d.LEDState())
	return nil
}

func (d *Device) restoreStrip(prev config.Config) {
	if err := d.store.Save(prev); err != nil {
		d.log.Error("Failed to restore config", zap.Error(err))
	}
	d.cfg = prev
	if err := d.engine.Setup(prev.LEDCount, prev.LEDPin, prev.LEDType); err != nil {
		d.log.Error("Failed to restore strip", zap.Error(err))
		return
	}
	d.emitter.Emit(events.LEDState, d.LEDState())
}

// SetOn switches the strip on or off.
func (d *Device) SetOn(on bool) error {
	return d.apply(d.engine.SetOn(on))
}

// SetBrightness sets brightness in [MinBrightness, MaxBrightness] and
// switches the strip on.
func (d *Device) SetBrightness(brightness int) error {
	if brightness < MinBrightness || brightness > MaxBrightness {
		return apierr.Validationf(apierr.CodeBrightnessOutOfRange, "brightness must be %d-%d", MinBrightness, MaxBrightness)
	}
	return d.apply(d.engine.SetBrightness(uint8(brightness)))
}

// SetColor fills the strip with c.
func (d *Device) SetColor(c led.Color) error {
	return d.apply(d.engine.SetColor(c))
}

// SetGradient spreads 1..count colours across the strip.
func (d *Device) SetGradient(colors []led.Color) error {
	if len(colors) < 1 || len(colors) > d.engine.Count() {
		return apierr.Validationf(apierr.CodeColorsOutOfRange, "colors must have 1-%d entries", d.engine.Count())
	}
	return d.apply(d.engine.SetGradient(colors))
}

func (d *Device) apply(err error) error {
	if err != nil {
		return apierr.Internal(apierr.CodeInternal, err)
	}
	d.emitter.Emit(events.LEDState, d.LEDState())
	return nil
}
