package led

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/timeutil"
)

const (
	// MaxLEDs is the capacity of the animation buffers.
	MaxLEDs = 512

	// AnimateDuration is the length of one crossfade.
	AnimateDuration = 350 * time.Millisecond

	// DefaultBrightness is the brightness applied at boot.
	DefaultBrightness uint8 = 50
)

// ErrNotConfigured is returned when a colour command reaches an engine that
// has not been through Setup.
var ErrNotConfigured = errors.New("led engine not configured")

// ErrEmptyPalette is returned when a target state carries no colours.
var ErrEmptyPalette = errors.New("palette must contain at least one colour")

type session struct {
	active       bool
	start        time.Time
	lastProgress uint8
}

// Engine owns the pixel buffers of the strip and crossfades them towards the
// commanded state. It is not safe for concurrent use: all calls are expected
// to come from the controller's run loop.
type Engine struct {
	driver Driver
	clock  timeutil.Clock
	log    *zap.Logger

	count int
	pin   uint8
	typ   StripType

	on         bool
	brightness uint8
	colors     []Color

	previous     [MaxLEDs]Color
	current      [MaxLEDs]Color
	target       [MaxLEDs]Color
	colorsTarget [MaxLEDs]Color

	session session
}

// NewEngine creates an engine driving the given strip. The engine is inert
// until Setup is called.
func NewEngine(driver Driver, clock timeutil.Clock) *Engine {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Engine{
		driver:     driver,
		clock:      clock,
		log:        logging.Named("led"),
		on:         true,
		brightness: DefaultBrightness,
	}
}

// Setup (re)initialises the strip with a new geometry. Any running
// crossfade is dropped and the buffers are cleared before the driver is
// reinitialised. The strip then fades in: to the last commanded palette if
// there is one, otherwise to the strip type's initial colour.
func (e *Engine) Setup(count int, pin uint8, typ StripType) error {
	if count < 1 || count > MaxLEDs {
		return fmt.Errorf("led count %d outside [1, %d]", count, MaxLEDs)
	}

	if e.count > 0 {
		e.driver.Clear()
		e.showOrLog()
	}
	e.Reset()

	e.log.Info("Initializing LED strip",
		zap.Int("count", count),
		zap.Uint8("pin", pin),
		zap.Stringer("type", typ),
	)

	if err := e.driver.Init(count, pin, typ); err != nil {
		return fmt.Errorf("failed to initialize strip: %w", err)
	}
	e.count = count
	e.pin = pin
	e.typ = typ

	e.driver.Clear()
	e.showOrLog()

	palette := e.colors
	if len(palette) == 0 {
		palette = []Color{typ.InitialColor()}
	}
	return e.ApplyTargetState(e.on, e.brightness, palette)
}

// Reset stops any crossfade and blanks every buffer. The commanded state
// (on, brightness, palette) is kept.
func (e *Engine) Reset() {
	e.session = session{}
	e.previous = [MaxLEDs]Color{}
	e.current = [MaxLEDs]Color{}
	e.target = [MaxLEDs]Color{}
	e.colorsTarget = [MaxLEDs]Color{}
	e.count = 0
}

// ApplyTargetState derives a new target frame from the commanded state and
// starts a crossfade to it from whatever is currently on the strip. A
// crossfade already in progress is superseded, not queued.
func (e *Engine) ApplyTargetState(on bool, brightness uint8, palette []Color) error {
	if e.count == 0 {
		return ErrNotConfigured
	}
	if len(palette) == 0 {
		return ErrEmptyPalette
	}

	e.on = on
	e.brightness = brightness
	e.colors = append(e.colors[:0:0], palette...)

	ExpandGradient(e.colors, e.count, e.colorsTarget[:e.count])

	for i := 0; i < e.count; i++ {
		e.previous[i] = e.current[i]
		if on {
			e.target[i] = e.colorsTarget[i].Scale(brightness)
		} else {
			e.target[i] = Black
		}
	}

	e.session = session{
		active: true,
		start:  e.clock.Now(),
	}

	e.log.Debug("Animating",
		zap.Bool("on", on),
		zap.Uint8("brightness", brightness),
		zap.Int("colors", len(palette)),
	)
	return nil
}

// SetOn switches the strip on or off, keeping brightness and palette.
func (e *Engine) SetOn(on bool) error {
	return e.ApplyTargetState(on, e.brightness, e.colors)
}

// SetBrightness changes brightness. Adjusting brightness implies on.
func (e *Engine) SetBrightness(brightness uint8) error {
	return e.ApplyTargetState(true, brightness, e.colors)
}

// SetColor fills the strip with one colour and switches it on.
func (e *Engine) SetColor(c Color) error {
	return e.ApplyTargetState(true, e.brightness, []Color{c})
}

// SetGradient spreads palette across the strip and switches it on.
func (e *Engine) SetGradient(palette []Color) error {
	return e.ApplyTargetState(true, e.brightness, palette)
}

// Tick advances the active crossfade to now. It only recomputes and pushes
// a frame when the progress byte has moved since the last push, and returns
// whether it did.
func (e *Engine) Tick(now time.Time) bool {
	if !e.session.active {
		return false
	}

	progress := progressByte(now.Sub(e.session.start))
	if progress <= e.session.lastProgress {
		return false
	}
	e.session.lastProgress = progress

	if progress == 255 {
		for i := 0; i < e.count; i++ {
			e.current[i] = e.target[i]
			e.previous[i] = e.target[i]
		}
		e.session = session{}
	} else {
		for i := 0; i < e.count; i++ {
			e.current[i] = Lerp(e.previous[i], e.target[i], progress)
		}
	}

	e.push()
	return true
}

func progressByte(elapsed time.Duration) uint8 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= AnimateDuration {
		return 255
	}
	return uint8(int64(elapsed) * 255 / int64(AnimateDuration))
}

func (e *Engine) push() {
	for i := 0; i < e.count; i++ {
		e.driver.SetPixel(i, e.current[i])
	}
	e.showOrLog()
}

func (e *Engine) showOrLog() {
	if err := e.driver.Show(); err != nil {
		e.log.Warn("Failed to show frame", zap.Error(err))
	}
}

// On reports the commanded power state.
func (e *Engine) On() bool { return e.on }

// Brightness reports the commanded brightness.
func (e *Engine) Brightness() uint8 { return e.brightness }

// Colors returns a copy of the commanded palette.
func (e *Engine) Colors() []Color {
	out := make([]Color, len(e.colors))
	copy(out, e.colors)
	return out
}

// Count returns the configured number of pixels.
func (e *Engine) Count() int { return e.count }

// Pin returns the configured data pin.
func (e *Engine) Pin() uint8 { return e.pin }

// Type returns the configured strip type.
func (e *Engine) Type() StripType { return e.typ }

// Animating reports whether a crossfade is in progress.
func (e *Engine) Animating() bool { return e.session.active }

// Progress returns the progress byte of the last pushed frame of the active
// crossfade, or 0 when idle.
func (e *Engine) Progress() uint8 { return e.session.lastProgress }

// Pixel returns the current value of pixel i.
func (e *Engine) Pixel(i int) Color {
	if i < 0 || i >= e.count {
		return Black
	}
	return e.current[i]
}

// Pixels returns a copy of the current frame.
func (e *Engine) Pixels() []Color {
	out := make([]Color, e.count)
	copy(out, e.current[:e.count])
	return out
}

// Targets returns a copy of the frame the active crossfade is heading to.
func (e *Engine) Targets() []Color {
	out := make([]Color, e.count)
	copy(out, e.target[:e.count])
	return out
}

// Previous returns a copy of the frame the active crossfade started from.
func (e *Engine) Previous() []Color {
	out := make([]Color, e.count)
	copy(out, e.previous[:e.count])
	return out
}
