package led_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	. "github.com/coreman2200/funtimes-ledstrip/internal/led"
	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

func TestNewStripRejectsBadInput(t *testing.T) {
	_, err := NewStrip(0, &Sim{})
	assert.Error(t, err)
	_, err = NewStrip(3, nil)
	assert.Error(t, err)
}

func TestStripFlushEncodesRGB(t *testing.T) {
	sim := &Sim{}
	s, err := NewStrip(3, sim)
	require.NoError(t, err)
	assert.Equal(t, 3, s.PixelCount())
	assert.Equal(t, uint8(255), s.Brightness())

	s.SetPixel(0, ledcolor.Red)
	s.SetPixel(2, ledcolor.RGBW(0, 0, 10, 5))
	s.SetPixel(-1, ledcolor.White)
	s.SetPixel(3, ledcolor.White)
	require.NoError(t, s.Flush())

	assert.Equal(t, []byte{255, 0, 0, 0, 0, 0, 5, 5, 15}, sim.Last())
	assert.Equal(t, 1, sim.Frames())
	assert.Equal(t, ledcolor.Black, s.Pixel(9))
}

func TestStripBrightnessScales(t *testing.T) {
	sim := &Sim{}
	s, _ := NewStrip(1, sim, WithBrightness(128))
	s.SetPixel(0, ledcolor.White)
	require.NoError(t, s.Flush())
	assert.Equal(t, []byte{128, 128, 128}, sim.Last())

	s.SetBrightness(0)
	require.NoError(t, s.Flush())
	assert.Equal(t, []byte{0, 0, 0}, sim.Last())
	assert.Equal(t, []byte{0, 0, 0}, s.Frame())
	// the buffer keeps full colors
	assert.Equal(t, ledcolor.White, s.Pixel(0))
}

func TestGamma(t *testing.T) {
	assert.Nil(t, NewGamma(1))
	assert.Nil(t, NewGamma(0))

	g := NewGamma(2)
	require.NotNil(t, g)
	b := []byte{0, 128, 255}
	g.Apply(b)
	assert.Equal(t, []byte{0, 64, 255}, b)

	sim := &Sim{}
	s, _ := NewStrip(1, sim, WithBrightness(128), WithGamma(g))
	s.SetPixel(0, ledcolor.White)
	require.NoError(t, s.Flush())
	assert.Equal(t, []byte{64, 64, 64}, sim.Last())
}

func TestStripFlushError(t *testing.T) {
	sim := &Sim{}
	s, _ := NewStrip(1, sim)
	sim.FailNext(1)
	err := s.Flush()
	assert.True(t, errors.Is(err, ErrInjected))
	assert.NoError(t, s.Flush())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Flush(), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestSimSummary(t *testing.T) {
	sim := &Sim{}
	assert.Contains(t, sim.Summary(), "empty")
	require.NoError(t, sim.Write([]byte{10, 20, 30, 30, 40, 50}))
	assert.Equal(t, "[frame 0001] avg=(20.0,30.0,40.0) first=(10,20,30)", sim.Summary())
}

func TestLimiterBudgetClamp(t *testing.T) {
	// 10 LEDs all white: 600 mA before limiting
	rgb := bytes.Repeat([]byte{255}, 30)
	l := &Limiter{ChanMA: 20, BudgetMA: 300, WhiteCap: 3, Knee: 0.9}
	l.Apply(rgb)
	assert.LessOrEqual(t, CurrentMA(rgb, 20), 300.1)
	assert.Greater(t, CurrentMA(rgb, 20), 290.0)
}

func TestLimiterUnderKneeUntouched(t *testing.T) {
	rgb := []byte{100, 0, 0}
	l := &Limiter{ChanMA: 20, BudgetMA: 1000}
	l.Apply(rgb)
	assert.Equal(t, []byte{100, 0, 0}, rgb)
}

func TestLimiterSoftKnee(t *testing.T) {
	// 19 mA against a 20 mA budget: between knee and budget, scaled a little
	rgb := []byte{255, 0, 0}
	l := &Limiter{ChanMA: 19, BudgetMA: 20}
	l.Apply(rgb)
	assert.Less(t, rgb[0], uint8(255))
	assert.Greater(t, rgb[0], uint8(230))
}

func TestWhiteCap(t *testing.T) {
	rgb := []byte{255, 255, 255}
	l := &Limiter{WhiteCap: 1.5}
	l.Apply(rgb)
	sum := float64(int(rgb[0])+int(rgb[1])+int(rgb[2])) / 255
	assert.LessOrEqual(t, sum, 1.5001)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 0, 20))
	assert.Nil(t, NewLimiter(0, 3, 20))
	l := NewLimiter(2.5, 0, 20)
	require.NotNil(t, l)
	assert.Equal(t, 2500.0, l.BudgetMA)
}

func TestStripWithLimiter(t *testing.T) {
	sim := &Sim{}
	s, _ := NewStrip(2, sim, WithLimiter(&Limiter{WhiteCap: 1}))
	s.SetPixel(0, ledcolor.White)
	s.SetPixel(1, ledcolor.Red)
	require.NoError(t, s.Flush())
	last := sim.Last()
	assert.InDelta(t, 85, int(last[0]), 1)
	assert.Equal(t, last[0], last[1])
	assert.Equal(t, last[0], last[2])
	assert.Equal(t, []byte{255, 0, 0}, last[3:])
}

func TestNRZOverRecordedSPI(t *testing.T) {
	buf := bytes.Buffer{}
	n, err := NewNRZ(spitest.NewRecordRaw(&buf), 2, 2500*physic.KiloHertz)
	require.NoError(t, err)
	assert.Equal(t, "nrzled{recordraw}", n.String())

	require.NoError(t, n.Write([]byte{255, 0, 0, 0, 0, 255}))
	assert.NotZero(t, buf.Len())
	assert.NoError(t, n.Close())
}

func TestOPCFraming(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		b := make([]byte, 10)
		if _, err := io.ReadFull(c, b); err == nil {
			got <- b
		}
	}()

	o, err := DialOPC(ln.Addr().String(), 3)
	require.NoError(t, err)
	defer o.Close()
	require.NoError(t, o.Write([]byte{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, []byte{3, 0, 0, 6, 1, 2, 3, 4, 5, 6}, <-got)
}

func TestOpen(t *testing.T) {
	s, err := Open("sim", Options{Count: 4})
	require.NoError(t, err)
	assert.IsType(t, &Sim{}, s)

	_, err = Open("laser", Options{Count: 4})
	assert.Error(t, err)
	_, err = Open("sim", Options{})
	assert.Error(t, err)
	_, err = Open("opc", Options{Count: 1, OPCAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}
