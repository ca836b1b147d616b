package controller_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-ledstrip/internal/catalog"
	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	. "github.com/coreman2200/funtimes-ledstrip/internal/controller"
	diag "github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
	"github.com/coreman2200/funtimes-ledstrip/internal/pattern"
)

var (
	red = ledcolor.Red
	blk = ledcolor.Black
)

// recorder is a Driver that keeps every flushed frame.
type recorder struct {
	mu         sync.Mutex
	pixels     []ledcolor.Color
	brightness uint8
	frames     [][]ledcolor.Color
	levels     []uint8
	fail       int
}

func newRecorder(n int) *recorder {
	return &recorder{pixels: make([]ledcolor.Color, n), brightness: 255}
}

func (r *recorder) PixelCount() int { return len(r.pixels) }
func (r *recorder) SetPixel(i int, c ledcolor.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= 0 && i < len(r.pixels) {
		r.pixels[i] = c
	}
}
func (r *recorder) Brightness() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.brightness
}
func (r *recorder) SetBrightness(b uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brightness = b
}
func (r *recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("bus error")
	}
	r.frames = append(r.frames, append([]ledcolor.Color(nil), r.pixels...))
	r.levels = append(r.levels, r.brightness)
	return nil
}
func (r *recorder) last() []ledcolor.Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

// tracer records the progress of every frame it renders.
type tracer struct{ seen *[]pattern.Progress }

func (p tracer) Evaluate(prog pattern.Progress, i, _ int) (ledcolor.Color, bool) {
	if i == 0 {
		*p.seen = append(*p.seen, prog)
	}
	return blk, true
}
func (tracer) AfterFrame() {}

func testRegistry(seen *[]pattern.Progress) *catalog.Registry {
	r := catalog.NewRegistry()
	r.Register("chase", func() pattern.Pattern { return pattern.Chase(pattern.Solid(red), false) })
	r.Register("red", func() pattern.Pattern { return pattern.Solid(red) })
	r.Register("off", pattern.Nothing)
	if seen != nil {
		r.Register("tracer", func() pattern.Pattern { return tracer{seen: seen} })
	}
	return r
}

// roundTrip sends req from another goroutine and ticks until it is answered.
func roundTrip(t *testing.T, c *Controller, ch *command.Channel, req command.Request) command.Response {
	t.Helper()
	done := make(chan command.Response, 1)
	go func() {
		r, err := ch.Send(context.Background(), req)
		if err != nil {
			r = command.Fail(err)
		}
		done <- r
	}()
	for i := 0; i < 2000; i++ {
		select {
		case r := <-done:
			return r
		default:
		}
		c.Tick()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no response to %#v", req)
	return command.Response{}
}

func TestChaseScenario(t *testing.T) {
	drv := newRecorder(4)
	c, err := New(drv, testRegistry(nil), command.NewChannel(1), WithIncrement(0.25), WithStartPattern("chase"))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		c.Tick()
	}
	assert.Equal(t, [][]ledcolor.Color{
		{red, blk, blk, blk},
		{red, red, blk, blk},
		{red, red, red, blk},
		{red, red, red, red},
	}, drv.frames)
	assert.Equal(t, pattern.Progress(0), c.Progress())
}

func TestProgressStaysInRange(t *testing.T) {
	var seen []pattern.Progress
	c, err := New(newRecorder(2), testRegistry(&seen), command.NewChannel(1), WithIncrement(0.3), WithStartPattern("tracer"))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		c.Tick()
	}
	require.Len(t, seen, 50)
	for _, p := range seen {
		assert.GreaterOrEqual(t, float64(p), 0.0)
		assert.Less(t, float64(p), 1.0)
	}
	assert.InDelta(t, 0.3, float64(seen[1]), 1e-9)
	assert.InDelta(t, 0.2, float64(seen[4]), 1e-9)
}

func TestSelectPatternResetsProgress(t *testing.T) {
	var seen []pattern.Progress
	ch := command.NewChannel(1)
	drv := newRecorder(3)
	c, err := New(drv, testRegistry(&seen), ch, WithIncrement(0.1), WithStartPattern("red"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	assert.InDelta(t, 0.5, float64(c.Progress()), 1e-9)

	r := roundTrip(t, c, ch, command.SelectPattern{Name: "tracer"})
	require.Equal(t, command.Ok, r.Status, r.Error)
	assert.Equal(t, "tracer", r.Data)
	require.NotEmpty(t, seen)
	assert.Equal(t, pattern.Progress(0), seen[0])
	assert.Equal(t, "tracer", c.Status().Pattern)
}

func TestUnknownPatternLeavesStateAlone(t *testing.T) {
	ch := command.NewChannel(1)
	drv := newRecorder(2)
	c, err := New(drv, testRegistry(nil), ch, WithIncrement(0.0001), WithStartPattern("red"))
	require.NoError(t, err)
	c.Tick()
	before := c.Progress()

	r := roundTrip(t, c, ch, command.SelectPattern{Name: "disco"})
	assert.Equal(t, command.Failed, r.Status)
	assert.Contains(t, r.Error, "unknown pattern")
	assert.Equal(t, "red", c.Status().Pattern)
	assert.Equal(t, []ledcolor.Color{red, red}, drv.last())
	assert.Greater(t, float64(c.Progress()), float64(before), "progress keeps running")
}

func TestBrightnessCommands(t *testing.T) {
	ch := command.NewChannel(1)
	drv := newRecorder(1)
	c, err := New(drv, testRegistry(nil), ch)
	require.NoError(t, err)

	r := roundTrip(t, c, ch, command.SetBrightness{Value: 300})
	assert.Equal(t, command.Failed, r.Status)
	assert.Equal(t, uint8(255), drv.Brightness())

	r = roundTrip(t, c, ch, command.SetBrightness{Value: -1})
	assert.Equal(t, command.Failed, r.Status)

	r = roundTrip(t, c, ch, command.SetBrightness{Value: 128})
	assert.Equal(t, command.Ok, r.Status)
	assert.Equal(t, uint8(128), drv.Brightness())

	r = roundTrip(t, c, ch, command.GetBrightness{})
	assert.Equal(t, command.Ok, r.Status)
	assert.Equal(t, 128, r.Data)
	assert.Equal(t, uint8(128), c.Status().Brightness)
}

func TestPointerRequestsAreRejected(t *testing.T) {
	ch := command.NewChannel(1)
	drv := newRecorder(1)
	c, err := New(drv, testRegistry(nil), ch)
	require.NoError(t, err)

	for _, req := range []command.Request{
		&command.SetBrightness{Value: 5},
		&command.SelectPattern{Name: "red"},
		(*command.SetBrightness)(nil),
	} {
		r := roundTrip(t, c, ch, req)
		assert.Equal(t, command.Failed, r.Status, "%#v", req)
		assert.Contains(t, r.Error, "invalid command")
	}
	assert.Equal(t, uint8(255), drv.Brightness())
	assert.Equal(t, "", c.Status().Pattern)
}

func TestTickTakesOneCommand(t *testing.T) {
	ch := command.NewChannel(2)
	drv := newRecorder(1)
	c, err := New(drv, testRegistry(nil), ch)
	require.NoError(t, err)

	gone, cancel := context.WithCancel(context.Background())
	cancel()
	for _, v := range []int{7, 9} {
		_, err := ch.Send(gone, command.SetBrightness{Value: v})
		require.ErrorIs(t, err, context.Canceled)
	}

	c.Tick()
	p, ok := ch.Poll()
	require.True(t, ok, "the second request waits for the next tick")
	assert.Equal(t, command.SetBrightness{Value: 9}, p.Request)
	_, ok = ch.Poll()
	assert.False(t, ok)

	// abandoned requests are never applied
	assert.Equal(t, uint8(255), drv.Brightness())
	assert.Equal(t, uint64(1), c.Status().Frame)
}

func TestIncrementCommands(t *testing.T) {
	ch := command.NewChannel(1)
	c, err := New(newRecorder(1), testRegistry(nil), ch, WithIncrement(0.02))
	require.NoError(t, err)

	for _, bad := range []float64{0, -0.5, 1, 2, math.NaN(), math.Inf(1)} {
		r := roundTrip(t, c, ch, command.SetProgressIncrement{Value: bad})
		assert.Equal(t, command.Failed, r.Status, "%v", bad)
	}
	r := roundTrip(t, c, ch, command.GetIncrement{})
	assert.Equal(t, 0.02, r.Data)

	r = roundTrip(t, c, ch, command.SetProgressIncrement{Value: 0.5})
	assert.Equal(t, command.Ok, r.Status)
	r = roundTrip(t, c, ch, command.GetIncrement{})
	assert.Equal(t, 0.5, r.Data)
	assert.Equal(t, 0.5, c.Status().Increment)
}

func TestSetColorInstallsSolid(t *testing.T) {
	ch := command.NewChannel(1)
	drv := newRecorder(2)
	c, err := New(drv, testRegistry(nil), ch)
	require.NoError(t, err)

	r := roundTrip(t, c, ch, command.SetColor{Color: ledcolor.Orange})
	assert.Equal(t, command.Ok, r.Status)
	assert.Equal(t, []ledcolor.Color{ledcolor.Orange, ledcolor.Orange}, drv.last())
	assert.Equal(t, "color:#ff3c00", c.Status().Pattern)
}

func TestListAndStatus(t *testing.T) {
	ch := command.NewChannel(1)
	c, err := New(newRecorder(1), testRegistry(nil), ch)
	require.NoError(t, err)

	r := roundTrip(t, c, ch, command.ListPatterns{})
	assert.Equal(t, []string{"chase", "off", "red"}, r.Data)

	r = roundTrip(t, c, ch, command.GetStatus{})
	st, ok := r.Data.(Status)
	require.True(t, ok)
	assert.Equal(t, "running", st.State)
	assert.Equal(t, 1, st.Pixels)
}

func TestNoColorLeavesPixels(t *testing.T) {
	ch := command.NewChannel(1)
	drv := newRecorder(2)
	c, err := New(drv, testRegistry(nil), ch, WithStartPattern("red"))
	require.NoError(t, err)
	c.Tick()

	r := roundTrip(t, c, ch, command.SelectPattern{Name: "off"})
	require.Equal(t, command.Ok, r.Status)
	c.Tick()
	assert.Equal(t, []ledcolor.Color{red, red}, drv.last())
}

func TestFlushErrorDoesNotStopTheLoop(t *testing.T) {
	drv := newRecorder(1)
	var events []diag.Diagnostic
	var frames []uint64
	c, err := New(drv, testRegistry(nil), command.NewChannel(1),
		WithStartPattern("red"),
		WithEventObserver(func(d diag.Diagnostic) { events = append(events, d) }),
		WithFrameObserver(func(id uint64) { frames = append(frames, id) }))
	require.NoError(t, err)

	drv.fail = 1
	c.Tick()
	c.Tick()
	st := c.Status()
	assert.Equal(t, uint64(2), st.Frame)
	assert.Equal(t, uint64(1), st.FlushErrors)
	assert.Len(t, drv.frames, 1)
	assert.Equal(t, []uint64{1, 2}, frames)
	require.Len(t, events, 1)
	assert.Equal(t, "DRIVER.FLUSH", events[0].Code)
}

func TestFadeOut(t *testing.T) {
	drv := newRecorder(1)
	drv.brightness = 100
	c, err := New(drv, testRegistry(nil), command.NewChannel(1))
	require.NoError(t, err)
	c.FadeOut()
	assert.Equal(t, []uint8{68, 36, 4, 0}, drv.levels)

	drv.levels = nil
	c.FadeOut()
	assert.Equal(t, []uint8{0}, drv.levels, "already dark still flushes once")
}

func TestNewValidates(t *testing.T) {
	reg := testRegistry(nil)
	ch := command.NewChannel(1)
	_, err := New(newRecorder(1), reg, ch, WithIncrement(0))
	assert.ErrorIs(t, err, command.ErrInvalid)
	_, err = New(newRecorder(1), reg, ch, WithIncrement(1.5))
	assert.ErrorIs(t, err, command.ErrInvalid)
	_, err = New(newRecorder(1), reg, ch, WithStartPattern("nope"))
	assert.ErrorIs(t, err, catalog.ErrUnknownPattern)
	_, err = New(nil, reg, ch)
	assert.Error(t, err)
}

func TestRunStopsWithFadeOut(t *testing.T) {
	drv := newRecorder(3)
	ch := command.NewChannel(1)
	c, err := New(drv, testRegistry(nil), ch, WithFPS(200), WithFadeStep(128), WithStartPattern("red"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	r, err := ch.Send(context.Background(), command.GetBrightness{})
	require.NoError(t, err)
	assert.Equal(t, 255, r.Data)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, "stopped", c.Status().State)
	assert.Equal(t, uint8(0), drv.Brightness())
	drv.mu.Lock()
	levels := drv.levels[len(drv.levels)-2:]
	drv.mu.Unlock()
	assert.Equal(t, []uint8{127, 0}, levels)

	_, err = ch.Send(context.Background(), command.GetBrightness{})
	assert.ErrorIs(t, err, command.ErrClosed)
}
