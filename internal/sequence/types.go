package sequence

// Keyframe represents a value at time T (seconds) with an easing function
// that applies to the segment starting at this keyframe.
type Keyframe struct {
	T    float64 `json:"t" yaml:"t"`
	V    float64 `json:"v" yaml:"v"`
	Ease string  `json:"ease,omitempty" yaml:"ease,omitempty"` // "linear", "smooth", "cubic" or "step"
}

// Envelope is a sorted list of keyframes; Eval(t) interpolates a value.
type Envelope struct {
	Keys []Keyframe `json:"keys" yaml:"keys"`
}

// Clip plays one named pattern for DurationS seconds. Brightness, if set, is
// automated over the clip's local time (0..255).
type Clip struct {
	Name       string    `json:"name,omitempty" yaml:"name,omitempty"`
	Pattern    string    `json:"pattern" yaml:"pattern"`
	DurationS  float64   `json:"duration_s" yaml:"duration_s"`
	Brightness *Envelope `json:"brightness,omitempty" yaml:"brightness,omitempty"`
}

// Program is a playlist of clips.
type Program struct {
	Loop  bool   `json:"loop,omitempty" yaml:"loop,omitempty"`
	Clips []Clip `json:"clips" yaml:"clips"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are dependency-injected callbacks into the render loop.
type Hooks struct {
	// Switch to a pattern immediately.
	SelectPattern func(name string)
	// Called only when the automated value changes.
	SetBrightness func(v int)
}

// Player owns the current Program timeline and uses Hooks to drive the strip.
type Player struct {
	State PlayerState

	prog   Program
	starts []float64 // starts[i] is clip i's program time; the last entry is the total
	nowS   float64
	idx    int

	lastBrightness int // -1 when nothing was sent for this clip

	hooks Hooks
}
