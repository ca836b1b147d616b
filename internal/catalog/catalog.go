// Package catalog maps pattern names to constructors.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
	"github.com/coreman2200/funtimes-ledstrip/internal/pattern"
)

var ErrUnknownPattern = errors.New("unknown pattern")

// Constructor builds a fresh pattern tree. It must not share state between calls.
type Constructor func() pattern.Pattern

type Registry struct{ m map[string]Constructor }

func NewRegistry() *Registry { return &Registry{m: map[string]Constructor{}} }

// Register adds or replaces name. Empty names and nil constructors are ignored.
func (r *Registry) Register(name string, c Constructor) {
	if name == "" || c == nil {
		return
	}
	r.m[name] = c
}

func (r *Registry) Has(name string) bool { _, ok := r.m[name]; return ok }

// Build returns a new tree for name, or an error matching ErrUnknownPattern.
func (r *Registry) Build(name string) (pattern.Pattern, error) {
	c, ok := r.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
	return c(), nil
}

// List returns the registered names sorted.
func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Default is the registry the service starts with.
func Default() *Registry {
	r := NewRegistry()
	r.Register("off", func() pattern.Pattern { return pattern.Solid(ledcolor.Black) })
	r.Register("white", func() pattern.Pattern { return pattern.Solid(ledcolor.White) })
	r.Register("random", pattern.Random)
	r.Register("rainbow", pattern.Rainbow)
	r.Register("rainbow-chase", func() pattern.Pattern {
		return pattern.Chase(pattern.Scaled(4, pattern.Rainbow()), true)
	})
	r.Register("red-chase", func() pattern.Pattern {
		return pattern.Chase(pattern.Cycle(pattern.Solid(ledcolor.Red), pattern.Solid(ledcolor.Black)), false)
	})
	r.Register("one-px", func() pattern.Pattern {
		return pattern.OnePxChase(pattern.Rainbow(), nil)
	})
	r.Register("halloween1", func() pattern.Pattern {
		return pattern.Stripes(8, ledcolor.Orange, ledcolor.Purple)
	})
	r.Register("halloween2", func() pattern.Pattern {
		// the head leaves its color behind and swaps color every lap
		return pattern.OnePxChase(pattern.Cycle(pattern.Solid(ledcolor.Orange), pattern.Solid(ledcolor.Purple)), pattern.Nothing())
	})
	r.Register("halloween3", func() pattern.Pattern {
		o, p, b := ledcolor.Orange, ledcolor.Purple, ledcolor.Black
		return pattern.MultiChase(pattern.Nothing(),
			pattern.Solid(o), pattern.Solid(o), pattern.Solid(b),
			pattern.Solid(p), pattern.Solid(p), pattern.Solid(b))
	})
	r.Register("sparkle-once", func() pattern.Pattern {
		return pattern.Once(pattern.Random(), pattern.Solid(ledcolor.White))
	})
	r.Register("timed-rainbow", func() pattern.Pattern {
		return pattern.Timed(10*time.Second, pattern.Reversed(pattern.Rainbow()))
	})
	// wiring checks: one lit pixel walking the strip, then each channel in turn
	r.Register("test-index", func() pattern.Pattern {
		return pattern.OnePxChase(pattern.Solid(ledcolor.White), nil)
	})
	r.Register("test-rgb", func() pattern.Pattern {
		return pattern.Cycle(pattern.Solid(ledcolor.Red), pattern.Solid(ledcolor.Green), pattern.Solid(ledcolor.Blue))
	})
	return r
}
