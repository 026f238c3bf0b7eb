package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"TickerScope/internal/collector"
	"TickerScope/internal/model"
	"TickerScope/internal/tickers"
)

type memRecorder struct {
	reports []*model.Report
	err     error
}

func (m *memRecorder) RecordRun(_ context.Context, r *model.Report) error {
	m.reports = append(m.reports, r)
	return m.err
}
func (m *memRecorder) RecentRuns(context.Context, int) ([]model.RunSummary, error) { return nil, nil }
func (m *memRecorder) Close() error                                               { return nil }

type countingObserver struct{ scans int }

func (c *countingObserver) ObserveScan(*model.Report) { c.scans++ }

func fixture() *collector.MockFetcher {
	return &collector.MockFetcher{
		Bars: map[string][]model.Bar{
			"1111.TW": collector.GenerateBars(100, 260, 0.004),
			"2222.TW": collector.GenerateBars(80, 260, 0),
			"6666.TW": collector.GenerateBars(80, 260, 0),
			"3333.TW": collector.GenerateBars(50, 120, 0.001),
		},
		Errors: map[string]error{
			"5555.TW": fmt.Errorf("%w: connection reset", collector.ErrProvider),
		},
	}
}

func newScanner(t *testing.T, rec *memRecorder, obs Observer) *Scanner {
	t.Helper()
	chain := tickers.NewChain(nil, nil, 0, nil)
	return New(chain, fixture(), rec, obs, Options{BatchSize: 2}, nil)
}

func TestScanner_RankAndExclusions(t *testing.T) {
	rec := &memRecorder{}
	obs := &countingObserver{}
	s := newScanner(t, rec, obs)

	rep, err := s.Run(context.Background(), tickers.Request{Input: "2222 1111 3333 4444 5555 6666 1111"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.RunID == "" || rep.Mode != "codes" || rep.Source != tickers.SourceInput {
		t.Errorf("unexpected report header: %+v", rep)
	}
	if len(rep.Requested) != 6 {
		t.Errorf("expected de-duplicated request of 6, got %v", rep.Requested)
	}

	if len(rep.Results) != 3 {
		t.Fatalf("expected 3 scored symbols, got %d", len(rep.Results))
	}
	if rep.Results[0].ID != "1111.TW" {
		t.Errorf("rising symbol should rank first, got %s", rep.Results[0].ID)
	}
	if rep.Results[1].ID != "2222.TW" || rep.Results[2].ID != "6666.TW" {
		t.Errorf("ties should keep input order, got %s, %s", rep.Results[1].ID, rep.Results[2].ID)
	}
	for i := 1; i < len(rep.Results); i++ {
		if rep.Results[i-1].Score < rep.Results[i].Score {
			t.Errorf("results not sorted by score: %d before %d", rep.Results[i-1].Score, rep.Results[i].Score)
		}
	}

	reasons := map[string]string{}
	for _, ex := range rep.Excluded {
		reasons[ex.Code] = ex.Reason
	}
	want := map[string]string{
		"3333": model.ReasonInsufficientHistory,
		"4444": model.ReasonNoData,
		"5555": model.ReasonFetchError,
	}
	for code, reason := range want {
		if reasons[code] != reason {
			t.Errorf("%s: expected %s, got %q", code, reason, reasons[code])
		}
	}
	if len(rep.Excluded) != 3 {
		t.Errorf("expected 3 exclusions, got %+v", rep.Excluded)
	}

	if len(rec.reports) != 1 || rec.reports[0] != rep {
		t.Error("report should be recorded once")
	}
	if obs.scans != 1 {
		t.Errorf("observer should see one scan, got %d", obs.scans)
	}
}

func TestScanner_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	rep, err := newScanner(t, rec, nil).Run(context.Background(), tickers.Request{Input: "1111"})
	if err != nil || len(rep.Results) != 1 {
		t.Errorf("expected a report despite recorder failure, got %v", err)
	}
}

func TestScanner_EmptyResultIsValid(t *testing.T) {
	rep, err := newScanner(t, &memRecorder{}, nil).Run(context.Background(), tickers.Request{Input: "4444 7777"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Results) != 0 || len(rep.Excluded) != 2 {
		t.Errorf("expected no results and two exclusions, got %d / %d", len(rep.Results), len(rep.Excluded))
	}
}

func TestScanner_NoCodes(t *testing.T) {
	rec := &memRecorder{}
	_, err := newScanner(t, rec, nil).Run(context.Background(), tickers.Request{Input: " "})
	if !errors.Is(err, tickers.ErrNoCodes) {
		t.Errorf("expected ErrNoCodes, got %v", err)
	}
	if len(rec.reports) != 0 {
		t.Error("nothing should be recorded for a failed resolution")
	}
}

func TestScanner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newScanner(t, &memRecorder{}, nil).Run(ctx, tickers.Request{Input: "1111"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestRank_Stable(t *testing.T) {
	rs := []*model.AnalysisResult{
		{ID: "a", Score: 70}, {ID: "b", Score: 90}, {ID: "c", Score: 70}, {ID: "d", Score: 130},
	}
	Rank(rs)
	got := ""
	for _, r := range rs {
		got += r.ID
	}
	if got != "dbac" {
		t.Errorf("expected dbac, got %s", got)
	}
}
