// Package pattern is the composition and evaluation engine for strip patterns.
//
// A pattern is a tree of nodes. Every frame the render loop calls Evaluate once
// per pixel on the root, then AfterFrame once on the root. Nodes that keep state
// between frames stage their writes during Evaluate and apply them in
// AfterFrame, so every read inside a frame sees the previous frame's state no
// matter which order pixels are visited in.
package pattern

import (
	"math"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

// Pattern yields a color for one pixel of one frame. ok=false leaves the pixel
// untouched.
type Pattern interface {
	Evaluate(p Progress, index, total int) (c ledcolor.Color, ok bool)
	// AfterFrame commits state staged during the frame and recurses into
	// children. Called once per frame after every pixel was evaluated.
	AfterFrame()
}

// Progress is the position within one animation cycle, always in [0,1).
type Progress float64

// Wrap folds x into [0,1).
func Wrap(x float64) Progress {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	w := x - math.Floor(x)
	if w >= 1 {
		// x-floor(x) rounds up to 1 for tiny negative x
		w = 0
	}
	return Progress(w)
}

// Advance returns the progress moved forward by inc, wrapped.
func (p Progress) Advance(inc float64) Progress {
	return Wrap(float64(p) + inc)
}

// Delta is the forward distance from prev to p, wrapped into [0,1).
func (p Progress) Delta(prev Progress) Progress {
	return Wrap(float64(p) - float64(prev))
}

func afterFrame(children ...Pattern) {
	for _, c := range children {
		if c != nil {
			c.AfterFrame()
		}
	}
}
