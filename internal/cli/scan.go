package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"TickerScope/internal/chart"
	"TickerScope/internal/collector"
	"TickerScope/internal/display"
	"TickerScope/internal/export"
	"TickerScope/internal/model"
)

type scanFlags struct {
	mode       string
	industries []string
	out        string
	chart      string
	detail     int
	noRecord   bool
}

func newScanCmd(appFn func() *app) *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "scan [CODES...]",
		Short: "Score and rank stocks",
		Long: `Fetch daily history for the requested stocks, score each one and print the ranking.
Codes may be separated by spaces, commas or '、'. Bare 4-digit codes are tried as
listed (.TW) first, then OTC (.TWO).
Example: tickerscope scan 2330 2317,2454 --chart 2330 --out ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScan(ctx, cmd, appFn(), strings.Join(args, " "), f)
		},
	}
	cmd.Flags().StringVar(&f.mode, "mode", "codes", "Ticker source: codes, industry or all")
	cmd.Flags().StringSliceVar(&f.industries, "industry", nil, "Industry to scan in industry mode (repeatable)")
	cmd.Flags().StringVar(&f.out, "out", "", "Directory for Stock_Data.json, AI_Prompt.txt and charts (default export.dir)")
	cmd.Flags().StringVar(&f.chart, "chart", "", "Write an HTML chart for this code or symbol")
	cmd.Flags().IntVar(&f.detail, "detail", 0, "Print the last N history rows of the charted or top symbol")
	cmd.Flags().BoolVar(&f.noRecord, "no-record", false, "Do not store this scan in the history database")
	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, a *app, input string, f scanFlags) error {
	out := cmd.OutOrStdout()
	req, err := a.request(f.mode, input, f.industries)
	if err != nil {
		return err
	}
	chain, err := a.chain()
	if err != nil {
		return err
	}
	rec := a.recorder(f.noRecord)
	defer rec.Close()

	fmt.Fprintln(out, display.Banner("TickerScope scan"))
	rep, err := a.scanner(chain, rec).Run(ctx, req)
	if err != nil {
		return err
	}

	if len(rep.Results) == 0 {
		fmt.Fprintln(out, display.Failure("No data found. Check the codes."))
		fmt.Fprint(out, display.RenderExclusions(rep.Excluded))
		return nil
	}

	fmt.Fprintln(out, display.RenderRanking(rep.Results))
	fmt.Fprint(out, display.RenderExclusions(rep.Excluded))
	fmt.Fprintln(out, display.Success(fmt.Sprintf("Scored %d of %d codes in %s",
		len(rep.Results), len(rep.Requested), rep.Duration.Round(100*time.Millisecond))))

	target := rep.Results[0]
	if f.chart != "" {
		target = findResult(rep.Results, f.chart)
		if target == nil {
			return fmt.Errorf("%s is not in the results", f.chart)
		}
	}
	if f.detail > 0 {
		fmt.Fprintln(out, display.RenderDetail(target, f.detail))
	}

	dir := f.out
	if dir == "" {
		dir = a.cfg.Export.Dir
	}
	if f.chart != "" {
		chartDir := dir
		if chartDir == "" {
			chartDir = "."
		}
		path, err := chart.WriteFile(chartDir, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, display.Success("Chart written to "+path))
	}
	if dir != "" {
		if err := writeArtifacts(a, dir, rep); err != nil {
			return err
		}
		fmt.Fprintln(out, display.Success("Data pack written to "+dir))
	}
	return nil
}

func writeArtifacts(a *app, dir string, rep *model.Report) error {
	exp, err := export.New(a.cfg.Export.Logic, a.cfg.Export.PromptTemplate)
	if err != nil {
		return err
	}
	arts, err := exp.WriteArtifacts(dir, rep)
	if err != nil {
		return err
	}
	a.log.Info("artifacts written", zap.String("data", arts.DataPath), zap.String("prompt", arts.PromptPath))
	return nil
}

// findResult matches a full symbol or a bare code.
func findResult(results []*model.AnalysisResult, want string) *model.AnalysisResult {
	want = strings.ToUpper(strings.TrimSpace(want))
	for _, r := range results {
		if r.ID == want {
			return r
		}
	}
	if collector.HasExchangeSuffix(want) {
		return nil
	}
	for _, r := range results {
		if i := strings.LastIndex(r.ID, "."); i > 0 && r.ID[:i] == want {
			return r
		}
	}
	return nil
}
