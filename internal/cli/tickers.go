package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTickersCmd(appFn func() *app) *cobra.Command {
	var (
		mode       string
		industries []string
		list       bool
	)
	cmd := &cobra.Command{
		Use:   "tickers [CODES...]",
		Short: "Print the codes a scan would use, without fetching bars",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			out := cmd.OutOrStdout()
			chain, err := a.chain()
			if err != nil {
				return err
			}
			if list {
				for _, name := range chain.Industries() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			req, err := a.request(mode, strings.Join(args, " "), industries)
			if err != nil {
				return err
			}
			res, err := chain.Resolve(cmd.Context(), req)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "warning: %v\n", e)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d codes from %s\n", len(res.Codes), res.Source)
			fmt.Fprintln(out, strings.Join(res.Codes, " "))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "codes", "Ticker source: codes, industry or all")
	cmd.Flags().StringSliceVar(&industries, "industry", nil, "Industry to resolve in industry mode (repeatable)")
	cmd.Flags().BoolVar(&list, "industries", false, "List the known industries")
	return cmd
}
