package cli

import (
	"martinbot/internal/feed"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger API and progress feed",
	Long: `Serve accepts run requests and streams progress of every run.

Endpoints:
  POST /api/runs      start a run {symbol, side, mode, limit_price, lot, steps}
  GET  /api/runs/{id} outcome of a finished run
  GET  /api/symbols   instrument profiles
  GET  /ws/progress   WebSocket progress stream
  GET  /metrics       prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default runtime.http_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log, cfg.Bot.Symbol)
	if err != nil {
		return err
	}
	defer a.close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Runtime.HTTPAddr
	}

	srv := feed.New(ctx, a.engine, a.table, a.metrics.Handler(), log)
	log.Info("Бот запущен.")
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return err
	}

	log.Info("Ожидание завершения активных серий...")
	a.engine.Wait()
	log.Info("Бот остановлен.")
	return nil
}
