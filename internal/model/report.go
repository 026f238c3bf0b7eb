package model

import "time"

// Exclusion reasons.
const (
	ReasonNoData              = "no_data"
	ReasonFetchError          = "fetch_error"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonAnalysisError       = "analysis_error"
)

// Exclusion is a requested code that produced no result.
type Exclusion struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Report is the outcome of one scan, ranked by score.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Mode      string
	Source    string
	Requested []string
	Results   []*AnalysisResult
	Excluded  []Exclusion
}

// Top returns up to n results from the head of the ranking.
func (r *Report) Top(n int) []*AnalysisResult {
	if n <= 0 || n > len(r.Results) {
		n = len(r.Results)
	}
	return r.Results[:n]
}

// RunSummary is a stored scan as listed by the recorder.
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Mode      string
	Requested int
	Scored    int
	Excluded  int
	TopSymbol string
	TopScore  int
}
