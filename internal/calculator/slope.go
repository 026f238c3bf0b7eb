package calculator

import (
	"fmt"
	"math"
)

// DefaultSlopeWindow is the trailing window used for moving-average slopes.
const DefaultSlopeWindow = 5

// Slope fits a least-squares line through the last window points of series
// (x = 0..window-1) and returns the fitted slope as a percentage of the last value.
// On any failure the returned value is 0 together with a typed error.
func Slope(series []float64, window int) (float64, error) {
	if window < 2 {
		return 0, fmt.Errorf("slope window %d: %w", window, ErrInsufficientHistory)
	}
	if len(series) < window {
		return 0, fmt.Errorf("slope over %d points, need %d: %w", len(series), window, ErrInsufficientHistory)
	}
	y := series[len(series)-window:]
	last := y[len(y)-1]

	n := float64(window)
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("slope input at offset %d is %v: %w", i, v, ErrUndefined)
		}
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	if last == 0 {
		return 0, fmt.Errorf("slope normalised by last value: %w", ErrZeroDenominator)
	}

	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	pct := slope / last * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, fmt.Errorf("slope result %v: %w", pct, ErrUndefined)
	}
	return pct, nil
}
