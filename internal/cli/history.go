package cli

import (
	"fmt"
	"martinbot/internal/recorder"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded martingale steps",
	Long: `History reads the step journal (recorder.type / recorder.path) and prints
the most recent steps, oldest first.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of steps to show (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	rec, err := recorder.Open(cfg.Recorder.Type, cfg.Recorder.Path)
	if err != nil {
		return err
	}
	defer rec.Close()

	steps, err := rec.List(cmd.Context())
	if err != nil {
		return err
	}
	if historyLimit > 0 && len(steps) > historyLimit {
		steps = steps[len(steps)-historyLimit:]
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSYMBOL\tSIDE\tMODE\tLOT\tPRICE\tSL\tTP\tRESULT\tPROFIT")
	for _, s := range steps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Timestamp.Format(recorder.TimestampLayout), s.Instrument, s.Side, s.Mode,
			s.Volume.String(), s.EntryPrice.String(), s.StopLoss.String(), s.TakeProfit.String(),
			s.Outcome, s.Profit.StringFixed(2))
	}
	return w.Flush()
}
