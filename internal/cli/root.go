// Package cli implements the tickerscope command line.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd(version string) *cobra.Command {
	var (
		cfgPath  string
		logLevel string
		a        *app
	)

	rootCmd := &cobra.Command{
		Use:   "tickerscope",
		Short: "TickerScope - technical trend scanner for TWSE/TPEx stocks",
		Long: `TickerScope fetches daily bars for Taiwan-listed stocks, scores each one with
a moving-average, MACD and KD heuristic, and ranks them. Results can be exported
as a JSON data pack with an analysis prompt, charted, recorded and pushed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var err error
			a, err = newApp(cfgPath, logLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				_ = a.log.Sync()
			}
		},
	}

	appFn := func() *app { return a }
	rootCmd.AddCommand(newScanCmd(appFn))
	rootCmd.AddCommand(newWatchCmd(appFn))
	rootCmd.AddCommand(newTickersCmd(appFn))
	rootCmd.AddCommand(newRunsCmd(appFn))
	rootCmd.AddCommand(newVersionCmd(version))

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Configuration file path (default configs/config.yaml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	return rootCmd
}

func joinCodes(codes []string) string { return strings.Join(codes, " ") }
