// Package scanner runs one end-to-end scan: resolve codes, fetch history,
// score each symbol and rank the results.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TickerScope/internal/analyzer"
	"TickerScope/internal/collector"
	"TickerScope/internal/model"
	"TickerScope/internal/recorder"
	"TickerScope/internal/tickers"
)

// TickerSource resolves a scan request into codes.
type TickerSource interface {
	Resolve(ctx context.Context, req tickers.Request) (tickers.Resolution, error)
}

// Observer receives every finished report.
type Observer interface {
	ObserveScan(rep *model.Report)
}

// Options tunes a Scanner. Zero values take the package defaults.
type Options struct {
	Range       string
	BatchSize   int
	Concurrency int
	Pause       time.Duration
	Analysis    analyzer.Options
	Progress    func(done, total int)
}

// Scanner wires ticker resolution, fetching and scoring together.
type Scanner struct {
	source   TickerSource
	resolver *collector.Resolver
	recorder recorder.Recorder
	observer Observer
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

// New creates a Scanner. rec and obs may be nil.
func New(source TickerSource, fetcher collector.Fetcher, rec recorder.Recorder, obs Observer, opts Options, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if opts.Analysis.Logger == nil {
		opts.Analysis.Logger = logger
	}
	return &Scanner{
		source:   source,
		resolver: collector.NewResolver(fetcher, opts.Range, logger),
		recorder: rec,
		observer: obs,
		opts:     opts,
		log:      logger,
		now:      time.Now,
	}
}

// Run executes one scan. It fails only when the request resolves to no
// codes or ctx is cancelled; per-symbol problems land in Report.Excluded.
func (s *Scanner) Run(ctx context.Context, req tickers.Request) (*model.Report, error) {
	started := s.now()
	res, err := s.source.Resolve(ctx, req)
	for _, e := range res.Errors {
		s.log.Warn("ticker source stage failed", zap.Error(e))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tickers: %w", err)
	}

	rep := &model.Report{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Mode:      string(req.Mode),
		Source:    res.Source,
		Requested: res.Codes,
	}
	if rep.Mode == "" {
		rep.Mode = string(tickers.ModeCodes)
	}
	log := s.log.With(zap.String("run_id", rep.RunID))
	log.Info("scan started", zap.Int("codes", len(res.Codes)), zap.String("source", res.Source))

	outcomes := collector.BatchFetch(ctx, s.resolver, res.Codes, collector.BatchOptions{
		BatchSize:   s.opts.BatchSize,
		Concurrency: s.opts.Concurrency,
		Pause:       s.opts.Pause,
		Logger:      log,
		OnChunk:     s.opts.Progress,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		if o.Err != nil {
			rep.Excluded = append(rep.Excluded, exclusion(o, o.Err))
			continue
		}
		result, err := analyzer.Analyze(o.Symbol, o.Bars, s.opts.Analysis)
		if err != nil {
			rep.Excluded = append(rep.Excluded, exclusion(o, err))
			continue
		}
		rep.Results = append(rep.Results, result)
	}

	Rank(rep.Results)
	rep.Duration = s.now().Sub(started)

	log.Info("scan finished",
		zap.Int("scored", len(rep.Results)),
		zap.Int("excluded", len(rep.Excluded)),
		zap.Duration("took", rep.Duration))

	if err := s.recorder.RecordRun(ctx, rep); err != nil {
		log.Error("record scan failed", zap.Error(err))
	}
	if s.observer != nil {
		s.observer.ObserveScan(rep)
	}
	return rep, nil
}

// Rank sorts results by score, highest first, keeping input order on ties.
func Rank(results []*model.AnalysisResult) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

func exclusion(o collector.Outcome, err error) model.Exclusion {
	ex := model.Exclusion{Code: o.Code, Symbol: o.Symbol, Detail: err.Error()}
	switch {
	case errors.Is(err, collector.ErrNoData):
		ex.Reason = model.ReasonNoData
	case errors.Is(err, analyzer.ErrInsufficientHistory):
		ex.Reason = model.ReasonInsufficientHistory
	case errors.Is(err, collector.ErrProvider), errors.Is(err, context.DeadlineExceeded):
		ex.Reason = model.ReasonFetchError
	case o.Bars != nil:
		ex.Reason = model.ReasonAnalysisError
	default:
		ex.Reason = model.ReasonFetchError
	}
	return ex
}
