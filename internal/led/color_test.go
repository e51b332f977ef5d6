package led

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColorScale(t *testing.T) {
	tests := []struct {
		name       string
		in         Color
		brightness uint8
		want       Color
	}{
		{"full", Color{255, 128, 1, 0}, 255, Color{255, 128, 1, 0}},
		{"zero", Color{255, 128, 1, 9}, 0, Black},
		{"default", Color{W: 255}, 50, Color{W: 50}},
		{"truncates", Color{R: 100}, 128, Color{R: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Scale(tt.brightness); got != tt.want {
				t.Errorf("Scale(%d) = %v, want %v", tt.brightness, got, tt.want)
			}
		})
	}
}

func TestLerpEndpoints(t *testing.T) {
	a := Color{10, 20, 30, 40}
	b := Color{200, 0, 255, 1}

	if got := Lerp(a, b, 0); got != a {
		t.Errorf("Lerp(a, b, 0) = %v, want %v", got, a)
	}
	if got := Lerp(a, b, 255); got != b {
		t.Errorf("Lerp(a, b, 255) = %v, want %v", got, b)
	}
	if got, want := Lerp(Black, Color{R: 255}, 127), (Color{R: 127}); got != want {
		t.Errorf("Lerp midpoint = %v, want %v", got, want)
	}
}

func TestExpandGradient(t *testing.T) {
	orange := Color{255, 100, 10, 0}

	tests := []struct {
		name    string
		palette []Color
		count   int
		want    []Color
	}{
		{
			name:    "single colour fills strip",
			palette: []Color{orange},
			count:   3,
			want:    []Color{orange, orange, orange},
		},
		{
			name:    "two stops over five pixels",
			palette: []Color{Black, orange},
			count:   5,
			want: []Color{
				Black,
				{63, 25, 2, 0},
				{127, 50, 5, 0},
				{191, 75, 7, 0},
				orange,
			},
		},
		{
			name:    "stops land on pixels",
			palette: []Color{{R: 255}, {G: 255}, {B: 255}},
			count:   5,
			want: []Color{
				{R: 255},
				{R: 127, G: 127},
				{G: 255},
				{G: 127, B: 127},
				{B: 255},
			},
		},
		{
			name:    "single pixel takes first stop",
			palette: []Color{orange, Black},
			count:   1,
			want:    []Color{orange},
		},
		{
			name:    "as many stops as pixels",
			palette: []Color{{R: 1}, {R: 2}, {R: 3}},
			count:   3,
			want:    []Color{{R: 1}, {R: 2}, {R: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]Color, tt.count)
			ExpandGradient(tt.palette, tt.count, got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExpandGradient() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseStripType(t *testing.T) {
	for _, typ := range []StripType{WS2812, SK6812} {
		got, err := ParseStripType(typ.String())
		if err != nil {
			t.Fatalf("ParseStripType(%q) error: %v", typ.String(), err)
		}
		if got != typ {
			t.Errorf("ParseStripType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}

	if _, err := ParseStripType("APA102"); err == nil {
		t.Error("ParseStripType(APA102) expected error")
	}
}

func TestStripTypeInitialColor(t *testing.T) {
	if got := SK6812.InitialColor(); got != (Color{W: 255}) {
		t.Errorf("SK6812 initial colour = %v", got)
	}
	if got := WS2812.InitialColor(); got != (Color{R: 255, G: 255, B: 255}) {
		t.Errorf("WS2812 initial colour = %v", got)
	}
}
