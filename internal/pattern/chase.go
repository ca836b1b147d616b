package pattern

import (
	"math"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

func headIndex(p Progress, total int) int {
	return int(math.Round(float64(p)*float64(total))) % total
}

type onePxChase struct {
	child, background Pattern
}

// OnePxChase sweeps a single pixel of child across background once per
// cycle. A nil background is black.
func OnePxChase(child, background Pattern) Pattern {
	if background == nil {
		background = Solid(ledcolor.Black)
	}
	return onePxChase{child: child, background: background}
}

func (o onePxChase) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	if total > 0 && index == headIndex(p, total) {
		return o.child.Evaluate(p, index, total)
	}
	return o.background.Evaluate(p, index, total)
}

func (o onePxChase) AfterFrame() { afterFrame(o.child, o.background) }

type multiChase struct {
	background Pattern
	chasers    []Pattern
}

// MultiChase runs len(chasers) evenly spaced heads. With Nothing as the
// background the heads leave their trail on the strip.
func MultiChase(background Pattern, chasers ...Pattern) Pattern {
	if background == nil {
		background = Solid(ledcolor.Black)
	}
	return multiChase{background: background, chasers: chasers}
}

func (m multiChase) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	if total > 0 && len(m.chasers) > 0 {
		head := headIndex(p, total)
		for j, c := range m.chasers {
			offset := int(math.Round(float64(j) * float64(total) / float64(len(m.chasers))))
			if (head+offset)%total == index {
				return c.Evaluate(p, index, total)
			}
		}
	}
	return m.background.Evaluate(p, index, total)
}

func (m multiChase) AfterFrame() {
	afterFrame(m.background)
	afterFrame(m.chasers...)
}

// ChasePattern reveals fresh child colors at the head of the strip and shifts
// previously revealed colors down by one pixel per 1/total of progress.
type ChasePattern struct {
	child Pattern
	blend bool
	mem   Memory

	last   Progress
	primed bool

	inFrame  bool
	k        int
	nextLast Progress
}

func Chase(child Pattern, blend bool) *ChasePattern {
	return &ChasePattern{child: child, blend: blend}
}

// ColorAt is the committed color the chase remembers for pixel i.
func (c *ChasePattern) ColorAt(i int) ledcolor.Color { return c.mem.ColorAt(i) }

// reveal decides, once per frame, how many pixels are revealed. The first
// frame has no history and reveals one.
func (c *ChasePattern) reveal(p Progress, total int) int {
	if c.inFrame {
		return c.k
	}
	c.inFrame = true
	if !c.primed {
		c.k = 1
		c.nextLast = p
	} else {
		steps := int(math.Floor(float64(p.Delta(c.last)) * float64(total)))
		c.k = steps
		// only whole pixels are consumed; the fraction carries over
		c.nextLast = c.last.Advance(float64(steps) / float64(total))
	}
	if c.k > total {
		c.k = total
	}
	return c.k
}

func (c *ChasePattern) fresh(p Progress, index, total int) ledcolor.Color {
	col, ok := c.child.Evaluate(p, index, total)
	if !ok {
		return ledcolor.Black
	}
	return col
}

func (c *ChasePattern) Evaluate(p Progress, index, total int) (ledcolor.Color, bool) {
	if total <= 0 {
		return ledcolor.Black, true
	}
	k := c.reveal(p, total)
	c.mem.Reserve(total)

	switch {
	case index < k:
		col := c.fresh(p, index, total)
		c.mem.Stage(index, col)
		return col, true
	case k == 0:
		held := c.mem.ColorAt(index)
		if c.blend && index == 0 {
			// pixel 0 has no predecessor in the buffer, which reads as black
			return ledcolor.Midpoint(held, c.mem.ColorAt(index-1)), true
		}
		return held, true
	default:
		col := c.mem.ColorAt(index - k)
		c.mem.Stage(index, col)
		return col, true
	}
}

func (c *ChasePattern) AfterFrame() {
	if c.inFrame {
		c.last = c.nextLast
		c.primed = true
		c.inFrame = false
	}
	c.mem.Commit()
	c.child.AfterFrame()
}
