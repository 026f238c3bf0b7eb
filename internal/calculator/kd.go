package calculator

import "fmt"

// Stochastic oscillator defaults.
const (
	DefaultKDPeriod = 9
	DefaultKDCom    = 2.0
)

// KD computes the stochastic %K and %D series over n periods.
// RSV is smoothed into K, and K into D, each with an EWM of center of mass 2.
// A flat window (high == low) yields NaN RSV, which the EWM holds over.
func KD(high, low, close []float64, n int, adjust bool) (k, d []float64, err error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("kd period %d: %w", n, ErrInvalidInput)
	}
	if len(high) != len(close) || len(low) != len(close) {
		return nil, nil, fmt.Errorf("kd series lengths high=%d low=%d close=%d: %w",
			len(high), len(low), len(close), ErrInvalidInput)
	}

	lowest := RollingMin(low, n)
	highest := RollingMax(high, n)
	rsv := make([]float64, len(close))
	for i := range close {
		rsv[i] = (close[i] - lowest[i]) / (highest[i] - lowest[i]) * 100
	}

	alpha := AlphaFromCom(DefaultKDCom)
	k = EWM(rsv, alpha, adjust)
	d = EWM(k, alpha, adjust)
	return k, d, nil
}
