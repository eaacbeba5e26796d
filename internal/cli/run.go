package cli

import (
	"fmt"
	"martinbot/internal/engine"
	"martinbot/internal/models"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type runFlags struct {
	symbol     string
	mode       string
	limitPrice string
	lot        string
	steps      int
}

func newRunCommand(side models.OrderSide) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   strings.ToLower(string(side)),
		Short: fmt.Sprintf("Run one martingale series on the %s side", strings.ToLower(string(side))),
		Long: `Places the first order at the base lot, waits for it to close and
doubles the lot after each loss. Stops on the first profit or after the
configured number of steps. Progress is printed as the run advances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeries(cmd, side, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.symbol, "symbol", "s", "", "instrument (default bot.symbol)")
	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "", "execution mode: market or limit (default bot.mode)")
	cmd.Flags().StringVarP(&flags.limitPrice, "limit-price", "p", "", "entry price for limit mode")
	cmd.Flags().StringVarP(&flags.lot, "lot", "l", "", "base lot (default bot.lot)")
	cmd.Flags().IntVarP(&flags.steps, "steps", "n", 0, "maximum steps (default bot.max_steps)")
	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCommand(models.OrderSideBuy))
	rootCmd.AddCommand(newRunCommand(models.OrderSideSell))
}

func (f *runFlags) request(side models.OrderSide, defaults runDefaults) (engine.RunRequest, error) {
	req := engine.RunRequest{
		Instrument: f.symbol,
		Side:       side,
		MaxSteps:   f.steps,
	}
	if req.Instrument == "" {
		req.Instrument = defaults.symbol
	}

	modeStr := f.mode
	if modeStr == "" {
		modeStr = defaults.mode
	}
	mode, err := models.ParseExecutionMode(modeStr)
	if err != nil {
		return req, err
	}
	req.Mode = mode

	if f.limitPrice != "" {
		price, err := decimal.NewFromString(f.limitPrice)
		if err != nil {
			return req, fmt.Errorf("Некорректная лимитная цена %q: %w", f.limitPrice, err)
		}
		req.LimitPrice = &price
	}

	req.BaseVolume = defaults.lot
	if f.lot != "" {
		lot, err := decimal.NewFromString(f.lot)
		if err != nil {
			return req, fmt.Errorf("Некорректный лот %q: %w", f.lot, err)
		}
		req.BaseVolume = lot
	}
	return req, nil
}

type runDefaults struct {
	symbol string
	mode   string
	lot    decimal.Decimal
}

func runSeries(cmd *cobra.Command, side models.OrderSide, flags *runFlags) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := flags.request(side, runDefaults{
		symbol: cfg.Bot.Symbol,
		mode:   cfg.Bot.Mode,
		lot:    decimal.NewFromFloat(cfg.Bot.Lot),
	})
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, log, req.Instrument)
	if err != nil {
		return err
	}
	defer a.close()

	var runID string
	if side == models.OrderSideBuy {
		runID, err = a.engine.TriggerBuy(ctx, req.Instrument, req.Mode, req.LimitPrice, req.BaseVolume, req.MaxSteps)
	} else {
		runID, err = a.engine.TriggerSell(ctx, req.Instrument, req.Mode, req.LimitPrice, req.BaseVolume, req.MaxSteps)
	}
	if err != nil {
		return err
	}

	follow(cmd, a.engine, runID)
	result, ok := a.engine.Result(runID)
	if !ok {
		return fmt.Errorf("Серия %s завершилась без итогового статуса.", runID)
	}
	if result.State == engine.StateAborted {
		return result.Err
	}
	return nil
}

// follow prints progress for runID until the engine has no runs left.
// Progress updates may be dropped; the outcome is read from the engine.
func follow(cmd *cobra.Command, eng *engine.Engine, runID string) {
	out := cmd.OutOrStdout()
	done := make(chan struct{})
	go func() {
		eng.Wait()
		close(done)
	}()

	show := func(p engine.Progress) {
		if p.RunID != runID {
			return
		}
		fmt.Fprintf(out, "%s [%s] %s\n", p.Time.Format("15:04:05"), p.State, p.Text)
	}

	for {
		select {
		case p := <-eng.Progress():
			show(p)
		case <-done:
			for {
				select {
				case p := <-eng.Progress():
					show(p)
				default:
					return
				}
			}
		}
	}
}
