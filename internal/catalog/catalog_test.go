package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/funtimes-ledstrip/internal/catalog"
	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
	"github.com/coreman2200/funtimes-ledstrip/internal/pattern"
)

func TestDefaultNames(t *testing.T) {
	want := []string{
		"halloween1", "halloween2", "halloween3", "off", "one-px", "rainbow",
		"rainbow-chase", "random", "red-chase", "sparkle-once", "test-index", "test-rgb",
		"timed-rainbow", "white",
	}
	assert.Equal(t, want, Default().List())
}

func TestEveryDefaultPatternRenders(t *testing.T) {
	r := Default()
	for _, name := range r.List() {
		p, err := r.Build(name)
		require.NoError(t, err, name)
		var prog pattern.Progress
		for tick := 0; tick < 50; tick++ {
			for i := 0; i < 30; i++ {
				p.Evaluate(prog, i, 30)
			}
			p.AfterFrame()
			prog = prog.Advance(0.07)
		}
	}
}

func TestBuildUnknown(t *testing.T) {
	_, err := Default().Build("disco")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPattern))
	assert.Contains(t, err.Error(), "disco")
}

func TestBuildReturnsFreshTrees(t *testing.T) {
	r := NewRegistry()
	r.Register("chase", func() pattern.Pattern { return pattern.Chase(pattern.Solid(ledcolor.Red), false) })
	a, _ := r.Build("chase")
	b, _ := r.Build("chase")
	a.Evaluate(0, 0, 2)
	a.AfterFrame()
	assert.Equal(t, ledcolor.Red, a.(*pattern.ChasePattern).ColorAt(0))
	assert.Equal(t, ledcolor.Black, b.(*pattern.ChasePattern).ColorAt(0))
}

func TestRegisterIgnoresInvalid(t *testing.T) {
	r := NewRegistry()
	r.Register("", pattern.Rainbow)
	r.Register("x", nil)
	assert.Empty(t, r.List())
	assert.False(t, r.Has("x"))
	r.Register("x", pattern.Rainbow)
	assert.True(t, r.Has("x"))
}

func TestHalloween1Bands(t *testing.T) {
	p, err := Default().Build("halloween1")
	require.NoError(t, err)
	c0, _ := p.Evaluate(0, 0, 32)
	c8, _ := p.Evaluate(0, 8, 32)
	assert.Equal(t, ledcolor.Orange, c0)
	assert.Equal(t, ledcolor.Purple, c8)
}
