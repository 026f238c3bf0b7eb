package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"TickerScope/internal/export"
	"TickerScope/internal/model"
	"TickerScope/internal/notifier"
	"TickerScope/internal/recorder"
	"TickerScope/internal/tickers"
)

// ErrScanRunning is returned when a scan is requested while another is in progress.
var ErrScanRunning = errors.New("scan already running")

// Runner executes one scan.
type Runner interface {
	Run(ctx context.Context, req tickers.Request) (*model.Report, error)
}

// Options configures the scheduled scan.
type Options struct {
	Request   tickers.Request
	TopN      int
	ExportDir string
	Retries   int
}

// Scheduler runs scans on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  Runner
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Exporter *export.Exporter
	Ctx      context.Context

	opts Options
	log  *zap.Logger

	running sync.Mutex

	mu   sync.Mutex
	last *model.Report
}

// NewScheduler creates a Scheduler. n, rec and exp may be nil.
func NewScheduler(ctx context.Context, sc Runner, n notifier.Notifier, rec recorder.Recorder, exp *export.Exporter, opts Options, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		Scanner:  sc,
		Notifier: n,
		Recorder: rec,
		Exporter: exp,
		Ctx:      ctx,
		opts:     opts,
		log:      logger,
	}
}

// Register adds the scan job.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the configured scan immediately.
func (s *Scheduler) RunNow() (*model.Report, error) {
	return s.scan(s.opts.Request)
}

// Last returns the most recent report, or nil before the first scan.
func (s *Scheduler) Last() *model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) scanTask() {
	if _, err := s.scan(s.opts.Request); errors.Is(err, ErrScanRunning) {
		s.log.Info("skipping scheduled scan", zap.Error(err))
	} else if err != nil {
		s.log.Error("scheduled scan failed", zap.Error(err))
	}
}

// scan runs one scan at a time across cron, RunNow and chat commands.
func (s *Scheduler) scan(req tickers.Request) (*model.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrScanRunning
	}
	defer s.running.Unlock()

	s.log.Info("running scan", zap.String("mode", string(req.Mode)))
	rep, err := s.Scanner.Run(s.Ctx, req)
	if err != nil {
		s.trySend(fmt.Sprintf("❌ Scan failed: %v", err))
		return nil, err
	}

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	s.trySend(notifier.FormatScanSummary(rep, s.opts.TopN))

	if s.Exporter != nil && s.opts.ExportDir != "" {
		a, err := s.Exporter.WriteArtifacts(s.opts.ExportDir, rep)
		if err != nil {
			s.log.Error("write artifacts", zap.String("run_id", rep.RunID), zap.Error(err))
		} else {
			s.log.Info("artifacts written", zap.String("run_id", rep.RunID),
				zap.String("data", a.DataPath), zap.String("prompt", a.PromptPath))
		}
	}
	return rep, nil
}

// HandleCommand processes a chat command and returns a reply. An empty
// reply means the answer was already pushed.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/scan":
		req := s.opts.Request
		if len(fields) > 1 {
			req = tickers.Request{Mode: tickers.ModeCodes, Input: strings.Join(fields[1:], " ")}
		}
		// Failures are pushed by scan itself.
		if _, err := s.scan(req); errors.Is(err, ErrScanRunning) {
			return "⏳ A scan is already running, try again when it finishes."
		}
		return ""
	case "/top":
		rep := s.Last()
		if rep == nil {
			return "📭 No scan has run yet. Send /scan to start one."
		}
		return notifier.FormatScanSummary(rep, s.opts.TopN)
	case "/runs":
		runs, err := s.Recorder.RecentRuns(ctx, 10)
		if err != nil {
			s.log.Error("list runs", zap.Error(err))
			return fmt.Sprintf("❌ Could not load scan history: %v", err)
		}
		return notifier.FormatRunList(runs)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n" +
	"• /scan [codes...]  run a scan now\n" +
	"• /top  latest ranking\n" +
	"• /runs  recent scans"

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, s.opts.Retries); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
