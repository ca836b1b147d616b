package pattern

import (
	"time"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

// TimedPattern runs its child on a wall clock of its own: progress is the
// current time modulo Duration, normalized. The clock is read once per frame.
type TimedPattern struct {
	Duration time.Duration
	Clock    func() time.Time
	child    Pattern

	inFrame bool
	frameP  Progress
}

func Timed(d time.Duration, child Pattern) *TimedPattern {
	return &TimedPattern{Duration: d, Clock: time.Now, child: child}
}

func (t *TimedPattern) progress(fallback Progress) Progress {
	if t.Duration <= 0 {
		return fallback
	}
	if t.inFrame {
		return t.frameP
	}
	now := time.Now
	if t.Clock != nil {
		now = t.Clock
	}
	ns := now().UnixNano() % int64(t.Duration)
	if ns < 0 {
		ns += int64(t.Duration)
	}
	t.inFrame = true
	t.frameP = Wrap(float64(ns) / float64(t.Duration))
	return t.frameP
}

func (t *TimedPattern) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	return t.child.Evaluate(t.progress(p), index, total)
}

func (t *TimedPattern) AfterFrame() {
	t.inFrame = false
	afterFrame(t.child)
}

// wrapCounter counts observed cycle boundaries. The count for a frame is
// decided on the first evaluation of that frame and committed in commit.
type wrapCounter struct {
	count int
	prev  Progress
	seen  bool

	inFrame    bool
	frameCount int
	framePrev  Progress
}

// observe returns the count for the current frame. step reports whether a wrap
// seen at count c should be counted.
func (w *wrapCounter) observe(p Progress, step func(c int) int) int {
	if !w.inFrame {
		w.inFrame = true
		c := w.count
		if w.seen && p < w.prev {
			c = step(c)
		}
		w.frameCount = c
		w.framePrev = p
	}
	return w.frameCount
}

func (w *wrapCounter) commit() {
	if !w.inFrame {
		return
	}
	w.count = w.frameCount
	w.prev = w.framePrev
	w.seen = true
	w.inFrame = false
}

// NTimesPattern delegates to its child for count cycles, then to after for
// good.
type NTimesPattern struct {
	child, after Pattern
	wraps        wrapCounter
}

// NTimes plays child until count wraps of the incoming progress were observed,
// then switches permanently to after.
func NTimes(count int, child, after Pattern) *NTimesPattern {
	if count < 0 {
		count = 0
	}
	return &NTimesPattern{child: child, after: after, wraps: wrapCounter{count: count}}
}

func Once(child, after Pattern) *NTimesPattern  { return NTimes(1, child, after) }
func Twice(child, after Pattern) *NTimesPattern { return NTimes(2, child, after) }

// Remaining is the number of cycles left before switching, as of the last
// committed frame.
func (n *NTimesPattern) Remaining() int { return n.wraps.count }

func (n *NTimesPattern) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	remaining := n.wraps.observe(p, func(c int) int {
		if c > 0 {
			return c - 1
		}
		return c
	})
	if remaining > 0 {
		return n.child.Evaluate(p, index, total)
	}
	return n.after.Evaluate(p, index, total)
}

func (n *NTimesPattern) AfterFrame() {
	n.wraps.commit()
	afterFrame(n.child, n.after)
}

// CyclePattern moves to the next child every time the progress wraps.
type CyclePattern struct {
	children []Pattern
	wraps    wrapCounter
}

func Cycle(children ...Pattern) *CyclePattern {
	return &CyclePattern{children: children}
}

func (c *CyclePattern) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	if len(c.children) == 0 {
		return ledcolor.Color{}, false
	}
	n := c.wraps.observe(p, func(v int) int { return (v + 1) % len(c.children) })
	return c.children[n].Evaluate(p, index, total)
}

func (c *CyclePattern) AfterFrame() {
	c.wraps.commit()
	afterFrame(c.children...)
}

type reversed struct {
	child Pattern
}

// Reversed mirrors its child along the strip.
func Reversed(child Pattern) Pattern { return reversed{child: child} }

func (r reversed) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	return r.child.Evaluate(p, total-1-index, total)
}

func (r reversed) AfterFrame() { r.child.AfterFrame() }

type scaled struct {
	factor float64
	child  Pattern
}

// Scaled runs its child factor times faster than the incoming clock.
// Non-positive factors leave the clock unchanged.
func Scaled(factor float64, child Pattern) Pattern {
	if factor <= 0 {
		factor = 1
	}
	return scaled{factor: factor, child: child}
}

func (s scaled) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	return s.child.Evaluate(Wrap(float64(p)*s.factor), index, total)
}

func (s scaled) AfterFrame() { s.child.AfterFrame() }

type tint struct {
	color  ledcolor.Color
	amount float64
	child  Pattern
}

// Tint pulls the child's colors toward color by amount in [0,1].
func Tint(color ledcolor.Color, amount float64, child Pattern) Pattern {
	return tint{color: color, amount: amount, child: child}
}

func (t tint) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	c, ok := t.child.Evaluate(p, index, total)
	if !ok {
		return c, false
	}
	return c.Lerp(t.color, t.amount), true
}

func (t tint) AfterFrame() { t.child.AfterFrame() }
