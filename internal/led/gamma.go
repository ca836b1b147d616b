package led

import "math"

// Gamma is an output curve applied to every encoded byte.
type Gamma [256]byte

// NewGamma builds the table for exponent g. It returns nil for g == 1 or
// g <= 0, which leaves output linear.
func NewGamma(g float64) *Gamma {
	if g <= 0 || g == 1 || math.IsNaN(g) {
		return nil
	}
	var t Gamma
	for i := range t {
		t[i] = byte(math.Round(255 * math.Pow(float64(i)/255, g)))
	}
	return &t
}

func (t *Gamma) Apply(rgb []byte) {
	for i, b := range rgb {
		rgb[i] = t[b]
	}
}
