package led

import (
	"fmt"
	"sync"
)

// Driver is the physical strip. Pixels written with SetPixel become visible
// on the next Show.
type Driver interface {
	Init(count int, pin uint8, typ StripType) error
	SetPixel(index int, c Color)
	Show() error
	Clear()
}

// MemoryDriver is a Driver that keeps the strip in memory. It records every
// frame passed to Show, which makes it the driver of choice for tests and for
// running the controller on a host without a strip attached.
type MemoryDriver struct {
	mu         sync.Mutex
	count      int
	pin        uint8
	typ        StripType
	pixels     []Color
	frame      []Color
	shows      int
	inits      int
	outOfRange int

	// ShowErr, when set, is returned from every Show call.
	ShowErr error

	// InitErr, when set, is consulted by Init; a non-nil result fails it.
	InitErr func(count int, pin uint8, typ StripType) error
}

// NewMemoryDriver creates an uninitialised in-memory strip.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{}
}

// Init implements Driver.
func (d *MemoryDriver) Init(count int, pin uint8, typ StripType) error {
	if count < 1 || count > MaxLEDs {
		return fmt.Errorf("led count %d outside [1, %d]", count, MaxLEDs)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.InitErr != nil {
		if err := d.InitErr(count, pin, typ); err != nil {
			return err
		}
	}
	d.count = count
	d.pin = pin
	d.typ = typ
	d.pixels = make([]Color, count)
	d.frame = nil
	d.inits++
	return nil
}

// SetPixel implements Driver. Writes outside the configured strip are
// dropped and counted.
func (d *MemoryDriver) SetPixel(index int, c Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.pixels) {
		d.outOfRange++
		return
	}
	d.pixels[index] = c
}

// Show implements Driver.
func (d *MemoryDriver) Show() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ShowErr != nil {
		return d.ShowErr
	}
	d.frame = append(d.frame[:0], d.pixels...)
	d.shows++
	return nil
}

// Clear implements Driver.
func (d *MemoryDriver) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pixels {
		d.pixels[i] = Black
	}
}

// Frame returns a copy of the last frame shown.
func (d *MemoryDriver) Frame() []Color {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Color, len(d.frame))
	copy(out, d.frame)
	return out
}

// Shows returns how many frames have been shown since creation.
func (d *MemoryDriver) Shows() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shows
}

// Inits returns how many times Init has been called.
func (d *MemoryDriver) Inits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inits
}

// OutOfRangeWrites returns how many SetPixel calls addressed a pixel beyond
// the configured strip.
func (d *MemoryDriver) OutOfRangeWrites() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outOfRange
}

// Config returns the parameters of the last Init call.
func (d *MemoryDriver) Config() (count int, pin uint8, typ StripType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count, d.pin, d.typ
}
