package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Print the instrument profile table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		table := cfg.ProfileTable()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tSTOP\tTAKE")
		for _, sym := range table.Symbols() {
			p := table.Lookup(sym)
			fmt.Fprintf(w, "%s\t%s\t%s\n", sym, p.StopOffset.String(), p.TakeOffset.String())
		}
		p := table.Lookup("")
		fmt.Fprintf(w, "%s\t%s\t%s\n", "*", p.StopOffset.String(), p.TakeOffset.String())
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(symbolsCmd)
}
