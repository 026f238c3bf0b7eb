package model

// IndicatorSeries holds per-bar derived values aligned to the bar index.
// Warm-up positions are NaN.
type IndicatorSeries struct {
	MA5      []float64
	MA10     []float64
	MA20     []float64
	MA60     []float64
	K        []float64
	D        []float64
	MACDHist []float64
}

// ChartRow is one bar plus its indicator values, used for charting and the detail table.
type ChartRow struct {
	Bar
	MA5      float64
	MA10     float64
	MA20     float64
	MA60     float64
	K        float64
	D        float64
	MACDHist float64
}

// Window slices the series and bars to the trailing n rows.
func (s *IndicatorSeries) Window(bars []Bar, n int) []ChartRow {
	if n > len(bars) {
		n = len(bars)
	}
	start := len(bars) - n
	rows := make([]ChartRow, 0, n)
	for i := start; i < len(bars); i++ {
		rows = append(rows, ChartRow{
			Bar:      bars[i],
			MA5:      at(s.MA5, i),
			MA10:     at(s.MA10, i),
			MA20:     at(s.MA20, i),
			MA60:     at(s.MA60, i),
			K:        at(s.K, i),
			D:        at(s.D, i),
			MACDHist: at(s.MACDHist, i),
		})
	}
	return rows
}

func at(v []float64, i int) float64 {
	if i < 0 || i >= len(v) {
		return nan()
	}
	return v[i]
}
