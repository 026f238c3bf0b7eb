package calculator

import "fmt"

// MACD defaults.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDHistogram returns MACD minus its signal line, aligned to close.
// MACD is EMA(fast) - EMA(slow); the signal line is EMA(signal) of MACD.
func MACDHistogram(close []float64, fast, slow, signal int, adjust bool) ([]float64, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("macd spans %d/%d/%d: %w", fast, slow, signal, ErrInvalidInput)
	}
	emaFast := EWM(close, AlphaFromSpan(float64(fast)), adjust)
	emaSlow := EWM(close, AlphaFromSpan(float64(slow)), adjust)

	macd := make([]float64, len(close))
	for i := range close {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	sig := EWM(macd, AlphaFromSpan(float64(signal)), adjust)

	hist := make([]float64, len(close))
	for i := range close {
		hist[i] = macd[i] - sig[i]
	}
	return hist, nil
}
