package led

// Limiter applies a two-stage power limit to an RGB frame:
// 1) Per-LED white cap: scales (R,G,B) so R+G+B <= WhiteCap full channels (3 = no cap)
// 2) Global current budget: estimates current and scales the whole frame to stay under BudgetMA,
// softly from Knee*BudgetMA upward
type Limiter struct {
	WhiteCap float64 // sum of channels cap, 0..3
	ChanMA   float64 // mA per channel at full scale; WS2812 ≈ 20
	BudgetMA float64 // 0 disables the budget
	Knee     float64 // fraction of budget where soft limiting begins
}

// NewLimiter returns nil when neither stage would do anything.
func NewLimiter(limitAmps, whiteCap, chanMA float64) *Limiter {
	if limitAmps <= 0 && (whiteCap <= 0 || whiteCap >= 3) {
		return nil
	}
	return &Limiter{WhiteCap: whiteCap, ChanMA: chanMA, BudgetMA: limitAmps * 1000, Knee: 0.9}
}

// CurrentMA estimates the draw of rgb using the same model as Apply.
func CurrentMA(rgb []byte, chanMA float64) float64 {
	var sum int
	for _, v := range rgb {
		sum += int(v)
	}
	return float64(sum) / 255 * chanMA
}

func (l *Limiter) Apply(rgb []byte) {
	whiteCap := 3.0
	chanMA := 20.0
	knee := 0.9
	if l.WhiteCap > 0 {
		whiteCap = l.WhiteCap
	}
	if l.ChanMA > 0 {
		chanMA = l.ChanMA
	}
	if l.Knee > 0 && l.Knee < 1 {
		knee = l.Knee
	}

	if whiteCap < 3 {
		for i := 0; i+2 < len(rgb); i += 3 {
			s := float64(int(rgb[i])+int(rgb[i+1])+int(rgb[i+2])) / 255
			if s > whiteCap {
				scaleBytes(rgb[i:i+3], whiteCap/s)
			}
		}
	}

	if l.BudgetMA <= 0 {
		return
	}
	total := CurrentMA(rgb, chanMA)
	if total <= 0 {
		return
	}
	kneeMA := knee * l.BudgetMA
	if total <= kneeMA {
		return
	}
	// above the knee the excess is halved, and never exceeds the budget
	target := kneeMA + (total-kneeMA)/2
	if target > l.BudgetMA {
		target = l.BudgetMA
	}
	scaleBytes(rgb, target/total)
}

func scaleBytes(b []byte, s float64) {
	if s >= 1 {
		return
	}
	for i := range b {
		b[i] = uint8(float64(b[i]) * s)
	}
}
