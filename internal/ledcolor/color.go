package ledcolor

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Bit offsets inside a packed 0xWWRRGGBB value (rpi_ws281x layout).
const (
	WhiteOffset uint8 = 0x18
	RedOffset   uint8 = 0x10
	GreenOffset uint8 = 0x08
	BlueOffset  uint8 = 0x0
)

// Color is an 8-bit RGB triple with an optional white channel.
type Color struct {
	R, G, B, W uint8
}

var (
	Black  = Color{}
	White  = Color{R: 255, G: 255, B: 255}
	Red    = Color{R: 255}
	Green  = Color{G: 255}
	Blue   = Color{B: 255}
	Orange = Color{R: 255, G: 60}
	Purple = Color{R: 130, B: 255}
)

func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b} }

func RGBW(r, g, b, w uint8) Color { return Color{R: r, G: g, B: b, W: w} }

func setchan(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

func getchan(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

// FromUint32 unpacks 0xWWRRGGBB.
func FromUint32(v uint32) Color {
	return Color{
		R: getchan(v, RedOffset),
		G: getchan(v, GreenOffset),
		B: getchan(v, BlueOffset),
		W: getchan(v, WhiteOffset),
	}
}

// Uint32 packs the color as 0xWWRRGGBB.
func (c Color) Uint32() uint32 {
	var v uint32
	v = setchan(v, c.W, WhiteOffset)
	v = setchan(v, c.R, RedOffset)
	v = setchan(v, c.G, GreenOffset)
	v = setchan(v, c.B, BlueOffset)
	return v
}

func (c Color) String() string {
	if c.W != 0 {
		return fmt.Sprintf("#%02x%02x%02x/w%02x", c.R, c.G, c.B, c.W)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var named = map[string]Color{
	"black":  Black,
	"white":  White,
	"red":    Red,
	"green":  Green,
	"blue":   Blue,
	"orange": Orange,
	"purple": Purple,
}

// Parse accepts a color name, "#rgb", "#rrggbb" or either hex form followed by
// "/wXX" for the white channel.
func Parse(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	hex, white, hasWhite := strings.Cut(s, "/w")
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	cf, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := cf.RGB255()
	c := RGB(r, g, b)
	if hasWhite {
		w, err := strconv.ParseUint(white, 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("parse color %q: white channel: %w", s, err)
		}
		c.W = uint8(w)
	}
	return c, nil
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// RGB8 folds the white channel into R, G and B, saturating at 255.
func (c Color) RGB8() (r, g, b uint8) {
	return addSat(c.R, c.W), addSat(c.G, c.W), addSat(c.B, c.W)
}

func addSat(a, b uint8) uint8 {
	s := uint16(a) + uint16(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// Scale multiplies every channel by f/255.
func (c Color) Scale(f uint8) Color {
	if f == 255 {
		return c
	}
	mul := func(v uint8) uint8 { return uint8(uint16(v) * uint16(f) / 255) }
	return Color{R: mul(c.R), G: mul(c.G), B: mul(c.B), W: mul(c.W)}
}

// Lerp blends linearly from c toward o; t is clamped to [0,1].
func (c Color) Lerp(o Color, t float64) Color {
	t = clamp01(t)
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return Color{R: mix(c.R, o.R), G: mix(c.G, o.G), B: mix(c.B, o.B), W: mix(c.W, o.W)}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255.0, G: float64(c.G) / 255.0, B: float64(c.B) / 255.0}
}

// HSV returns hue in [0,360) and saturation/value in [0,1]. W is ignored.
func (c Color) HSV() (h, s, v float64) {
	return c.colorful().Hsv()
}

// FromHSV builds an RGB color from hue in degrees and saturation/value in [0,1].
func FromHSV(h, s, v float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsv(h, clamp01(s), clamp01(v)).Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// Midpoint averages hue, saturation and value independently and converts
// back to RGB. The white channel is averaged linearly.
func Midpoint(a, b Color) Color {
	ha, sa, va := a.HSV()
	hb, sb, vb := b.HSV()
	m := FromHSV((ha+hb)/2, (sa+sb)/2, (va+vb)/2)
	m.W = uint8((uint16(a.W) + uint16(b.W)) / 2)
	return m
}

// Random returns a color with each RGB channel drawn uniformly.
func Random() Color {
	v := rand.Uint32()
	return Color{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16)}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
