package led

import (
	"fmt"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

// Strip is the pixel buffer the render loop draws into. It is not safe for
// concurrent use.
type Strip struct {
	sink       Sink
	pixels     []ledcolor.Color
	rgb        []byte
	brightness uint8
	limiter    *Limiter
	gamma      *Gamma
	closed     bool
}

type StripOption func(*Strip)

func WithBrightness(b uint8) StripOption { return func(s *Strip) { s.brightness = b } }

// WithLimiter caps power draw on every flush. A nil limiter disables it.
func WithLimiter(l *Limiter) StripOption { return func(s *Strip) { s.limiter = l } }

// WithGamma applies an output curve before limiting. A nil table disables it.
func WithGamma(g *Gamma) StripOption { return func(s *Strip) { s.gamma = g } }

func NewStrip(count int, sink Sink, opts ...StripOption) (*Strip, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	if sink == nil {
		return nil, fmt.Errorf("nil sink")
	}
	s := &Strip{
		sink:       sink,
		pixels:     make([]ledcolor.Color, count),
		rgb:        make([]byte, 3*count),
		brightness: 255,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Strip) PixelCount() int { return len(s.pixels) }

// SetPixel ignores indices outside the strip.
func (s *Strip) SetPixel(i int, c ledcolor.Color) {
	if i < 0 || i >= len(s.pixels) {
		return
	}
	s.pixels[i] = c
}

func (s *Strip) Pixel(i int) ledcolor.Color {
	if i < 0 || i >= len(s.pixels) {
		return ledcolor.Black
	}
	return s.pixels[i]
}

func (s *Strip) Brightness() uint8     { return s.brightness }
func (s *Strip) SetBrightness(b uint8) { s.brightness = b }

// Flush encodes the buffer at the current brightness and writes it to the sink.
func (s *Strip) Flush() error {
	if s.closed {
		return ErrClosed
	}
	for i, c := range s.pixels {
		o := ledcolor.RGB(c.RGB8()).Scale(s.brightness)
		s.rgb[3*i], s.rgb[3*i+1], s.rgb[3*i+2] = o.R, o.G, o.B
	}
	if s.gamma != nil {
		s.gamma.Apply(s.rgb)
	}
	if s.limiter != nil {
		s.limiter.Apply(s.rgb)
	}
	if err := s.sink.Write(s.rgb); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Frame returns a copy of the last encoded frame.
func (s *Strip) Frame() []byte {
	return append([]byte(nil), s.rgb...)
}

func (s *Strip) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sink.Close()
}
