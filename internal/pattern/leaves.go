package pattern

import (
	"math"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

type nothing struct{}

// Nothing never produces a color.
func Nothing() Pattern { return nothing{} }

func (nothing) Evaluate(Progress, int, int) (ledcolor.Color, bool) { return ledcolor.Color{}, false }
func (nothing) AfterFrame()                                        {}

// SolidPattern paints every pixel the same color.
type SolidPattern struct {
	Color ledcolor.Color
}

func Solid(c ledcolor.Color) *SolidPattern { return &SolidPattern{Color: c} }

func (s *SolidPattern) Evaluate(Progress, int, int) (ledcolor.Color, bool) { return s.Color, true }
func (s *SolidPattern) AfterFrame()                                        {}

type random struct{}

// Random draws a fresh color for every pixel on every frame. Not seeded.
func Random() Pattern { return random{} }

func (random) Evaluate(Progress, int, int) (ledcolor.Color, bool) { return ledcolor.Random(), true }
func (random) AfterFrame()                                        {}

type rainbow struct{}

// Rainbow spreads one hue cycle over the strip and rotates it once per cycle.
func Rainbow() Pattern { return rainbow{} }

func (rainbow) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	if total <= 0 {
		return ledcolor.Black, true
	}
	h := Wrap(float64(index)/float64(total) + float64(p))
	return ledcolor.FromHSV(float64(h)*360, 1, 1), true
}
func (rainbow) AfterFrame() {}

// StripesPattern paints bands of Width pixels cycling through Colors and
// scrolls them one full period per cycle.
type StripesPattern struct {
	Width  int
	Colors []ledcolor.Color
}

func Stripes(width int, colors ...ledcolor.Color) *StripesPattern {
	if width < 1 {
		width = 1
	}
	return &StripesPattern{Width: width, Colors: colors}
}

func (s *StripesPattern) Evaluate(p Progress, index, _ int) (ledcolor.Color, bool) {
	if len(s.Colors) == 0 {
		return ledcolor.Black, true
	}
	period := s.Width * len(s.Colors)
	offset := int(math.Floor(float64(p) * float64(period)))
	band := ((index + offset) % period) / s.Width
	return s.Colors[band], true
}

func (s *StripesPattern) AfterFrame() {}
