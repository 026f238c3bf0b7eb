package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"TickerScope/internal/export"
	"TickerScope/internal/model"
	"TickerScope/internal/tickers"
)

type stubRunner struct {
	mu   sync.Mutex
	reqs []tickers.Request
	err  error
}

func (r *stubRunner) Run(_ context.Context, req tickers.Request) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return &model.Report{
		RunID:     "run-1",
		StartedAt: time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC),
		Mode:      string(req.Mode),
		Requested: []string{"2330", "9999"},
		Results: []*model.AnalysisResult{
			{ID: "2330.TW", Price: 600, Score: 120, History: model.HistoryData{Dates: []string{"03-03"}}},
		},
		Excluded: []model.Exclusion{{Code: "9999", Reason: model.ReasonNoData}},
	}, nil
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *stubNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

type stubRecorder struct {
	runs []model.RunSummary
	err  error
}

func (r *stubRecorder) RecordRun(context.Context, *model.Report) error { return nil }
func (r *stubRecorder) RecentRuns(context.Context, int) ([]model.RunSummary, error) {
	return r.runs, r.err
}
func (r *stubRecorder) Close() error { return nil }

func TestRunNow_NotifiesAndExports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	exp, err := export.New("", "")
	if err != nil {
		t.Fatal(err)
	}
	runner := &stubRunner{}
	n := &stubNotifier{}
	s := NewScheduler(context.Background(), runner, n, nil, exp,
		Options{Request: tickers.Request{Mode: tickers.ModeAll}, TopN: 5, ExportDir: dir}, nil)

	rep, err := s.RunNow()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Last() != rep {
		t.Error("Last should return the report of the latest scan")
	}
	if len(runner.reqs) != 1 || runner.reqs[0].Mode != tickers.ModeAll {
		t.Errorf("unexpected scan requests: %+v", runner.reqs)
	}
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "2330.TW") {
		t.Errorf("expected one summary naming the leader, got %q", n.sent)
	}
	for _, name := range []string{export.DataFileName, export.PromptFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestRunNow_FailureIsPushed(t *testing.T) {
	n := &stubNotifier{}
	s := NewScheduler(context.Background(), &stubRunner{err: errors.New("no ticker codes to scan")}, n, nil, nil, Options{}, nil)

	if _, err := s.RunNow(); err == nil {
		t.Fatal("expected error")
	}
	if s.Last() != nil {
		t.Error("a failed scan must not replace the last report")
	}
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "Scan failed") {
		t.Errorf("expected failure notice, got %q", n.sent)
	}
}

func TestHandleCommand(t *testing.T) {
	runner := &stubRunner{}
	n := &stubNotifier{}
	rec := &stubRecorder{runs: []model.RunSummary{{
		RunID: "r1", StartedAt: time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC),
		Mode: "all", Requested: 2, Scored: 1, TopSymbol: "2330.TW", TopScore: 120,
	}}}
	s := NewScheduler(context.Background(), runner, n, rec, nil, Options{Request: tickers.Request{Mode: tickers.ModeAll}}, nil)
	ctx := context.Background()

	if got := s.HandleCommand(ctx, "/top"); !strings.Contains(got, "No scan") {
		t.Errorf("expected no-scan reply before any run, got %q", got)
	}
	if got := s.HandleCommand(ctx, "/scan 2330 2317"); got != "" {
		t.Errorf("expected empty reply for /scan, got %q", got)
	}
	if len(runner.reqs) != 1 || runner.reqs[0].Mode != tickers.ModeCodes || runner.reqs[0].Input != "2330 2317" {
		t.Errorf("expected a codes scan, got %+v", runner.reqs)
	}
	if got := s.HandleCommand(ctx, "/top"); !strings.Contains(got, "2330.TW") {
		t.Errorf("expected ranking in /top reply, got %q", got)
	}
	if got := s.HandleCommand(ctx, "/runs"); !strings.Contains(got, "2330.TW (120)") {
		t.Errorf("expected run list, got %q", got)
	}
	if got := s.HandleCommand(ctx, "hello"); !strings.Contains(got, "/scan") {
		t.Errorf("expected help text, got %q", got)
	}

	rec.err = errors.New("database is locked")
	if got := s.HandleCommand(ctx, "/runs"); !strings.Contains(got, "database is locked") {
		t.Errorf("expected error reply, got %q", got)
	}
}

type blockingRunner struct {
	stubRunner
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, req tickers.Request) (*model.Report, error) {
	r.entered <- struct{}{}
	<-r.release
	return r.stubRunner.Run(ctx, req)
}

func TestHandleCommand_ScanWhileRunning(t *testing.T) {
	runner := &blockingRunner{entered: make(chan struct{}, 1), release: make(chan struct{})}
	n := &stubNotifier{}
	s := NewScheduler(context.Background(), runner, n, nil, nil,
		Options{Request: tickers.Request{Mode: tickers.ModeAll}}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow()
		done <- err
	}()
	<-runner.entered

	if reply := s.HandleCommand(context.Background(), "/scan 2330"); !strings.Contains(reply, "already running") {
		t.Errorf("expected busy reply, got %q", reply)
	}
	if _, err := s.RunNow(); !errors.Is(err, ErrScanRunning) {
		t.Errorf("expected ErrScanRunning, got %v", err)
	}

	close(runner.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.reqs) != 1 {
		t.Errorf("expected a single scan, got %d", len(runner.reqs))
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, msg := range n.sent {
		if strings.Contains(msg, "Scan failed") {
			t.Errorf("a rejected scan should not push a failure: %q", msg)
		}
	}

	// the guard is released once the first scan completes
	if _, err := s.RunNow(); err != nil {
		t.Errorf("expected a follow-up scan to run, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &stubRunner{}, nil, nil, nil, Options{}, nil)
	if err := s.Register("0 30 14 * * 1-5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected one entry, got %d", len(s.Cron.Entries()))
	}
	if err := s.Register("every day"); err == nil {
		t.Error("expected error for invalid expression")
	}
}
