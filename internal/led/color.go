package led

import "fmt"

// Color is a four channel RGBW value.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	W uint8 `json:"w"`
}

// Black is the all-channels-off colour.
var Black = Color{}

// String returns the colour as #RRGGBBWW.
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.W)
}

// Scale applies a brightness factor: out = in * brightness / 255 per channel,
// truncated.
func (c Color) Scale(brightness uint8) Color {
	b := uint(brightness)
	return Color{
		R: uint8(uint(c.R) * b / 255),
		G: uint8(uint(c.G) * b / 255),
		B: uint8(uint(c.B) * b / 255),
		W: uint8(uint(c.W) * b / 255),
	}
}

// Lerp mixes from a towards b by progress/255, truncated per channel.
// Lerp(a, b, 0) == a and Lerp(a, b, 255) == b.
func Lerp(a, b Color, progress uint8) Color {
	p := uint(progress)
	q := 255 - p
	mix := func(x, y uint8) uint8 {
		return uint8((uint(x)*q + uint(y)*p) / 255)
	}
	return Color{
		R: mix(a.R, b.R),
		G: mix(a.G, b.G),
		B: mix(a.B, b.B),
		W: mix(a.W, b.W),
	}
}

// ExpandGradient spreads palette linearly across count pixels and writes the
// result into dst[0:count]. Pixel 0 is palette[0], pixel count-1 is the last
// stop, and pixels in between interpolate between the two neighbouring stops.
//
// Positions are computed as exact fractions (i*(n-1) / (count-1)), so stops
// land on whole pixels without float drift and every channel is the floor of
// the exact interpolated value.
func ExpandGradient(palette []Color, count int, dst []Color) {
	n := len(palette)
	if n == 0 || count <= 0 {
		return
	}

	den := count - 1
	if den == 0 {
		dst[0] = palette[0]
		return
	}

	for i := 0; i < count; i++ {
		num := i * (n - 1)
		idx1 := num / den
		rem := num % den
		idx2 := idx1
		if rem != 0 {
			idx2 = idx1 + 1
		}

		c1, c2 := palette[idx1], palette[idx2]
		channel := func(a, b uint8) uint8 {
			v := int(a)*den + (int(b)-int(a))*rem
			return uint8(v / den)
		}
		dst[i] = Color{
			R: channel(c1.R, c2.R),
			G: channel(c1.G, c2.G),
			B: channel(c1.B, c2.B),
			W: channel(c1.W, c2.W),
		}
	}
}
