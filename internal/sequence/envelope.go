package sequence

import (
	"fmt"
	"sort"
)

// eases maps an easing name to a curve on [0,1]. "" is linear.
var eases = map[string]func(float64) float64{
	"":       func(x float64) float64 { return x },
	"linear": func(x float64) float64 { return x },
	"smooth": func(x float64) float64 { return x * x * (3 - 2*x) },
	"cubic":  func(x float64) float64 { return x * x * x * (x*(x*6-15) + 10) },
	"step":   func(float64) float64 { return 0 },
}

func validEase(name string) error {
	if _, ok := eases[name]; !ok {
		return fmt.Errorf("unknown ease %q", name)
	}
	return nil
}

// Eval interpolates the envelope at t seconds. Values hold flat before the
// first key and after the last; an empty envelope is 0.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	switch {
	case n == 0:
		return 0
	case t <= e.Keys[0].T:
		return e.Keys[0].V
	case t >= e.Keys[n-1].T:
		return e.Keys[n-1].V
	}
	// first key strictly after t; keys[i-1] starts the segment
	i := sort.Search(n, func(i int) bool { return e.Keys[i].T > t })
	a, b := e.Keys[i-1], e.Keys[i]
	span := b.T - a.T
	if span <= 0 {
		return b.V
	}
	ease, ok := eases[a.Ease]
	if !ok {
		ease = eases[""]
	}
	return a.V + (b.V-a.V)*ease((t-a.T)/span)
}
