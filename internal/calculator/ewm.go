package calculator

import "math"

// AlphaFromCom converts a center-of-mass parameter to a smoothing factor.
func AlphaFromCom(com float64) float64 { return 1 / (1 + com) }

// AlphaFromSpan converts a span parameter to a smoothing factor.
func AlphaFromSpan(span float64) float64 { return 2 / (span + 1) }

// EWM computes an exponentially weighted moving average.
//
// Leading NaN inputs stay NaN and the first valid value seeds the average.
// A NaN after the seed holds the previous output but still decays the weight
// of the history, so the next observation counts for more than it would
// without the gap. With adjust=false and no gaps this reduces to
// y = (1-a)*y' + a*x; with adjust=true each output is the weighted mean of
// all inputs so far, weights (1-a)^i by position.
func EWM(values []float64, alpha float64, adjust bool) []float64 {
	out := nanSeries(len(values))
	if alpha <= 0 || alpha > 1 {
		return out
	}
	decay := 1 - alpha
	newWt := 1.0
	if !adjust {
		newWt = alpha
	}

	seeded := false
	var avg, oldWt float64

	for i, x := range values {
		if !seeded {
			if math.IsNaN(x) {
				continue
			}
			seeded = true
			avg, oldWt = x, 1
			out[i] = x
			continue
		}
		oldWt *= decay
		if !math.IsNaN(x) {
			avg = (oldWt*avg + newWt*x) / (oldWt + newWt)
			if adjust {
				oldWt += newWt
			} else {
				oldWt = 1
			}
		}
		out[i] = avg
	}
	return out
}
