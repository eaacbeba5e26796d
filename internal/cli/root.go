package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "martinbot",
	Short: "Martingale trading bot for MetaTrader 5",
	Long: `Martinbot opens a position with fixed stop-loss and take-profit offsets,
waits for it to close and doubles the volume after every loss until a
profit is taken or the step limit is reached.

Examples:
  martinbot buy --symbol XAUUSDm --lot 0.01 --steps 4
  martinbot sell --symbol BTCUSDm --mode limit --limit-price 65000
  martinbot serve`,
	SilenceUsage: true,
}

// Execute runs the command tree; ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default configs/config.yaml)")
}
