package model

import "math"

// Trend labels assigned by the scoring heuristic.
const (
	TrendRanging = "Ranging"
	TrendStrong  = "Strong Uptrend"
)

// Technical is the indicator summary exported for each symbol.
type Technical struct {
	MA20Slope float64 `json:"MA20_Slope"`
	MA10Slope float64 `json:"MA10_Slope"`
	MACD      string  `json:"MACD"`
	KD        string  `json:"KD"`
}

// DisplayInfo is the truncated subset shown in the ranking table.
type DisplayInfo struct {
	ID            string  `json:"ID"`
	Price         float64 `json:"Price"`
	Score         int     `json:"Score"`
	Trend         string  `json:"Trend"`
	MA10Slope     float64 `json:"MA10_Slope"`
	EstimatedMove float64 `json:"Estimated_Pct"`
}

// HistoryData is the fixed-length history subset used for export and charting.
type HistoryData struct {
	High    float64   `json:"High_300D"`
	Low     float64   `json:"Low_300D"`
	Dates   []string  `json:"Date_Seq"`
	Prices  []float64 `json:"Price_Seq"`
	Volumes []int64   `json:"Vol_Seq"`
}

// AnalysisResult is one scored symbol. It lives for a single scan.
type AnalysisResult struct {
	ID         string      `json:"ID"`
	Price      float64     `json:"Price"`
	Score      int         `json:"Score"`
	Trend      string      `json:"Trend_Desc"`
	SpecialTag string      `json:"Special_Tag"`
	Technical  Technical   `json:"Technical"`
	History    HistoryData `json:"History_Data"`

	Display DisplayInfo `json:"-"`
	Chart   []ChartRow  `json:"-"`

	// Latest raw indicator values, kept for recording and notifications.
	MACDHist float64 `json:"-"`
	K        float64 `json:"-"`
	D        float64 `json:"-"`
}

func nan() float64 { return math.NaN() }
