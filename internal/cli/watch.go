package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"TickerScope/internal/export"
	"TickerScope/internal/metrics"
	"TickerScope/internal/notifier"
	"TickerScope/internal/scheduler"
)

func newWatchCmd(appFn func() *app) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run scheduled scans, answer chat commands and serve metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, appFn(), runNow)
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run one scan immediately after start (also RUN_ON_START=true)")
	return cmd
}

func runWatch(ctx context.Context, a *app, runNow bool) error {
	cfg := a.cfg
	log := a.log
	log.Info("TickerScope starting")

	req, err := a.request(cfg.Schedule.Mode, joinCodes(cfg.Tickers.DefaultCodes), cfg.Schedule.Industries)
	if err != nil {
		return err
	}
	chain, err := a.chain()
	if err != nil {
		return err
	}
	rec := a.recorder(false)
	defer rec.Close()

	exp, err := export.New(cfg.Export.Logic, cfg.Export.PromptTemplate)
	if err != nil {
		return err
	}

	var (
		n  notifier.Notifier
		tn *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tn
	} else {
		log.Warn("telegram not configured, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, a.scanner(chain, rec), n, rec, exp, scheduler.Options{
		Request:   req,
		TopN:      cfg.Schedule.TopN,
		ExportDir: cfg.Export.Dir,
	}, log)
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(a.registry), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if runNow || cfg.Schedule.RunOnStart {
		log.Info("run on start enabled, scanning now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				log.Error("initial scan failed", zap.Error(err))
			}
		}()
	}

	log.Info("TickerScope is running. Press Ctrl+C to stop.", zap.String("cron", cfg.Schedule.ScanCron))
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return nil
}
