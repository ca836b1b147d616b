package sequence

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h, lastBrightness: -1}
}

// Validate reports the first clip that cannot be played.
func (prog Program) Validate() error {
	if len(prog.Clips) == 0 {
		return errors.New("program has no clips")
	}
	for i, c := range prog.Clips {
		if c.Pattern == "" {
			return fmt.Errorf("clip %d: empty pattern", i)
		}
		if !(c.DurationS > 0) || math.IsInf(c.DurationS, 0) {
			return fmt.Errorf("clip %d (%s): duration must be positive", i, c.Pattern)
		}
		if c.Brightness == nil {
			continue
		}
		for _, k := range c.Brightness.Keys {
			if err := validEase(k.Ease); err != nil {
				return fmt.Errorf("clip %d (%s): %w", i, c.Pattern, err)
			}
		}
	}
	return nil
}

// Load replaces the program and rewinds to the first clip in the Idle state.
func (p *Player) Load(prog Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	p.prog = prog
	p.starts = make([]float64, len(prog.Clips)+1)
	for i, c := range prog.Clips {
		p.starts[i+1] = p.starts[i] + c.DurationS
	}
	p.Stop()
	return nil
}

// Start plays from the current position and selects its clip.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.enter(p.idx)
}

func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop rewinds to the start of the program.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
	p.lastBrightness = -1
}

// Seek jumps to program time t, clamped into the program, and selects the
// clip playing there.
func (p *Player) Seek(t float64) {
	if len(p.prog.Clips) == 0 {
		return
	}
	total := p.total()
	switch {
	case t < 0:
		t = 0
	case t >= total:
		t = math.Nextafter(total, 0)
	}
	p.nowS = t
	p.enter(p.clipAt(t))
}

// Tick advances playback by dt seconds. Crossing a clip boundary selects the
// clip reached; running off the end either wraps or goes Idle.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Clips) == 0 || dt <= 0 {
		return
	}
	p.nowS += dt
	if p.nowS >= p.starts[p.idx+1] {
		total := p.total()
		if p.nowS >= total {
			if !p.prog.Loop {
				p.Stop()
				return
			}
			p.nowS = math.Mod(p.nowS, total)
		}
		p.enter(p.clipAt(p.nowS))
		return
	}
	p.automate()
}

// Current returns the active clip and the time into it.
func (p *Player) Current() (Clip, float64, bool) {
	if len(p.prog.Clips) == 0 {
		return Clip{}, 0, false
	}
	return p.prog.Clips[p.idx], p.nowS - p.starts[p.idx], true
}

func (p *Player) total() float64 { return p.starts[len(p.prog.Clips)] }

// clipAt is the index of the clip covering program time t.
func (p *Player) clipAt(t float64) int {
	n := len(p.prog.Clips)
	i := sort.Search(n, func(i int) bool { return p.starts[i+1] > t })
	if i == n {
		i = n - 1
	}
	return i
}

func (p *Player) enter(idx int) {
	p.idx = idx
	p.lastBrightness = -1
	if p.hooks.SelectPattern != nil {
		p.hooks.SelectPattern(p.prog.Clips[idx].Pattern)
	}
	p.automate()
}

// automate sends the clip's brightness when it differs from the last value sent.
func (p *Player) automate() {
	clip, local, _ := p.Current()
	if clip.Brightness == nil || p.hooks.SetBrightness == nil {
		return
	}
	v := int(math.Round(clip.Brightness.Eval(local)))
	v = max(0, min(255, v))
	if v != p.lastBrightness {
		p.lastBrightness = v
		p.hooks.SetBrightness(v)
	}
}

// SafePlayer serializes access to a Player shared between goroutines.
type SafePlayer struct {
	mu sync.Mutex
	P  *Player
}

func NewSafePlayer(h Hooks) *SafePlayer {
	return &SafePlayer{P: NewPlayer(h)}
}

func (s *SafePlayer) With(f func(p *Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.P)
}
