// Package controller owns the active pattern and the progress clock and runs
// the fixed-cadence render loop.
package controller

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledstrip/internal/catalog"
	"github.com/coreman2200/funtimes-ledstrip/internal/command"
	diag "github.com/coreman2200/funtimes-ledstrip/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
	"github.com/coreman2200/funtimes-ledstrip/internal/pattern"
)

const (
	DefaultFPS      = 60
	DefaultFadeStep = 32
)

// Driver is the strip the loop draws into.
type Driver interface {
	PixelCount() int
	SetPixel(i int, c ledcolor.Color)
	Flush() error
	Brightness() uint8
	SetBrightness(b uint8)
}

type State int32

const (
	Running State = iota
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting_down"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Controller is driven by a single goroutine: either Run, or a caller invoking
// Tick directly. Status may be read from anywhere.
type Controller struct {
	drv Driver
	reg *catalog.Registry
	ch  *command.Channel
	log zerolog.Logger

	fps      int
	fadeStep uint8
	start    string
	onFrame  func(id uint64)
	onEvent  func(diag.Diagnostic)

	root      pattern.Pattern
	progress  pattern.Progress
	increment float64

	frame      atomic.Uint64
	flushErrs  atomic.Uint64
	state      atomic.Int32
	name       atomic.Value
	brightness atomic.Uint32
	incBits    atomic.Uint64
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.log = l } }

// WithFPS sets the target frame rate. Non-positive values keep the default.
func WithFPS(fps int) Option {
	return func(c *Controller) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

func WithIncrement(v float64) Option { return func(c *Controller) { c.increment = v } }

// WithFadeStep sets the brightness decrement used on shutdown. Zero keeps the default.
func WithFadeStep(step uint8) Option {
	return func(c *Controller) {
		if step > 0 {
			c.fadeStep = step
		}
	}
}

// WithFrameObserver is called on the loop goroutine after every flush. It must
// not block.
func WithFrameObserver(f func(id uint64)) Option { return func(c *Controller) { c.onFrame = f } }

// WithEventObserver receives notable events. It must not block.
func WithEventObserver(f func(diag.Diagnostic)) Option { return func(c *Controller) { c.onEvent = f } }

func WithStartPattern(name string) Option { return func(c *Controller) { c.start = name } }

func New(drv Driver, reg *catalog.Registry, ch *command.Channel, opts ...Option) (*Controller, error) {
	if drv == nil || reg == nil || ch == nil {
		return nil, fmt.Errorf("controller: driver, registry and channel are required")
	}
	c := &Controller{
		drv:       drv,
		reg:       reg,
		ch:        ch,
		log:       zerolog.Nop(),
		fps:       DefaultFPS,
		fadeStep:  DefaultFadeStep,
		increment: 1.0 / DefaultFPS,
		root:      pattern.Nothing(),
	}
	for _, o := range opts {
		o(c)
	}
	if err := command.ValidateIncrement(c.increment); err != nil {
		return nil, err
	}
	c.name.Store("")
	if c.start != "" {
		root, err := reg.Build(c.start)
		if err != nil {
			return nil, fmt.Errorf("start pattern: %w", err)
		}
		c.install(root, c.start)
	}
	c.setIncrement(c.increment)
	c.brightness.Store(uint32(drv.Brightness()))
	c.state.Store(int32(Running))
	return c, nil
}

// install swaps the root and restarts the cycle. Wrap detection in the new
// tree depends on progress starting at 0.
func (c *Controller) install(root pattern.Pattern, name string) {
	c.root = root
	c.progress = 0
	c.name.Store(name)
}

func (c *Controller) setIncrement(v float64) {
	c.increment = v
	c.incBits.Store(math.Float64bits(v))
}

func (c *Controller) setBrightness(b uint8) {
	c.drv.SetBrightness(b)
	c.brightness.Store(uint32(b))
}

// Progress is the position the next frame renders at. Loop goroutine only.
func (c *Controller) Progress() pattern.Progress { return c.progress }

// Tick takes at most one pending command and renders one frame. A command
// whose sender already gave up is dropped unapplied.
func (c *Controller) Tick() {
	if p, ok := c.ch.Poll(); ok {
		if p.Abandoned {
			c.log.Debug().Str("command", string(requestKind(p.Request))).Msg("dropped abandoned command")
		} else {
			p.Respond(c.handle(p.Request))
		}
	}
	c.render()
}

func (c *Controller) render() {
	total := c.drv.PixelCount()
	for i := 0; i < total; i++ {
		if col, ok := c.root.Evaluate(c.progress, i, total); ok {
			c.drv.SetPixel(i, col)
		}
	}
	c.root.AfterFrame()

	id := c.frame.Add(1)
	if err := c.drv.Flush(); err != nil {
		n := c.flushErrs.Add(1)
		c.log.Warn().Err(err).Uint64("frame", id).Uint64("failures", n).Msg("flush failed")
		c.emit(diag.Diagnostic{
			Severity: diag.Warn, Code: "DRIVER.FLUSH", Summary: "Flush failed",
			Detail: err.Error(), Evidence: map[string]any{"frame": id},
		})
	}
	if c.onFrame != nil {
		c.onFrame(id)
	}
	c.progress = c.progress.Advance(c.increment)
}

func (c *Controller) emit(d diag.Diagnostic) {
	if c.onEvent != nil {
		c.onEvent(d)
	}
}

// Run renders at the configured rate until ctx is done, then fades out.
func (c *Controller) Run(ctx context.Context) error {
	period := time.Second / time.Duration(c.fps)
	c.log.Info().Int("fps", c.fps).Int("pixels", c.drv.PixelCount()).
		Str("pattern", c.patternName()).Msg("render loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for {
		t := time.Now()
		c.Tick()

		wait := period - time.Since(t)
		if wait <= 0 {
			// over budget; go straight to the next frame
			select {
			case <-ctx.Done():
				return c.shutdown()
			default:
				continue
			}
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return c.shutdown()
		case <-timer.C:
		}
	}
}

func (c *Controller) shutdown() error {
	c.state.Store(int32(ShuttingDown))
	c.log.Info().Uint8("brightness", c.drv.Brightness()).Msg("shutting down")
	c.ch.Close()
	c.drain()
	c.FadeOut()
	c.state.Store(int32(Stopped))
	c.log.Info().Uint64("frames", c.frame.Load()).Msg("render loop stopped")
	return nil
}

// drain answers every request still queued.
func (c *Controller) drain() {
	for {
		p, ok := c.ch.Poll()
		if !ok {
			return
		}
		p.Respond(command.Fail(errShuttingDown))
	}
}

// FadeOut steps brightness down to zero, flushing after every step.
func (c *Controller) FadeOut() {
	b := int(c.drv.Brightness())
	for {
		b -= int(c.fadeStep)
		if b < 0 {
			b = 0
		}
		c.setBrightness(uint8(b))
		if err := c.drv.Flush(); err != nil {
			c.flushErrs.Add(1)
			c.log.Warn().Err(err).Int("brightness", b).Msg("flush failed during fade out")
		}
		if b == 0 {
			return
		}
	}
}

func (c *Controller) patternName() string {
	s, _ := c.name.Load().(string)
	return s
}

type Status struct {
	State       string  `json:"state"`
	Pattern     string  `json:"pattern"`
	Frame       uint64  `json:"frame"`
	FlushErrors uint64  `json:"flush_errors"`
	Brightness  uint8   `json:"brightness"`
	Increment   float64 `json:"increment"`
	Pixels      int     `json:"pixels"`
	FPS         int     `json:"fps"`
}

func (c *Controller) Status() Status {
	return Status{
		State:       State(c.state.Load()).String(),
		Pattern:     c.patternName(),
		Frame:       c.frame.Load(),
		FlushErrors: c.flushErrs.Load(),
		Brightness:  uint8(c.brightness.Load()),
		Increment:   math.Float64frombits(c.incBits.Load()),
		Pixels:      c.drv.PixelCount(),
		FPS:         c.fps,
	}
}
