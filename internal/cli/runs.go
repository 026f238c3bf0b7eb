package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"TickerScope/internal/display"
	"TickerScope/internal/recorder"
)

func newRunsCmd(appFn func() *app) *cobra.Command {
	var (
		limit  int
		symbol string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			out := cmd.OutOrStdout()
			if a.cfg.Database.SQLitePath == "" {
				return fmt.Errorf("database.sqlite_path is not set")
			}
			rec, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.log)
			if err != nil {
				return err
			}
			defer rec.Close()

			if symbol != "" {
				scores, err := rec.SymbolHistory(cmd.Context(), strings.ToUpper(symbol), limit)
				if err != nil {
					return err
				}
				if len(scores) == 0 {
					fmt.Fprintf(out, "No recorded scores for %s\n", symbol)
					return nil
				}
				parts := make([]string, len(scores))
				for i, s := range scores {
					parts[i] = strconv.Itoa(s)
				}
				fmt.Fprintf(out, "%s scores, newest first: %s\n", strings.ToUpper(symbol), strings.Join(parts, " "))
				return nil
			}

			runs, err := rec.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No scans recorded yet.")
				return nil
			}
			fmt.Fprintln(out, display.RenderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries to show")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Show the score history of one symbol (e.g. 2330.TW)")
	return cmd
}
