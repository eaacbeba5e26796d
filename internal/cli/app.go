package cli

import (
	"context"
	"fmt"
	"martinbot/internal/broker"
	"martinbot/internal/broker/bridge"
	"martinbot/internal/broker/paper"
	"martinbot/internal/config"
	"martinbot/internal/engine"
	"martinbot/internal/instruments"
	"martinbot/internal/logger"
	"martinbot/internal/metrics"
	"martinbot/internal/recorder"
	"time"

	"github.com/shopspring/decimal"
)

// app holds the process-wide collaborators: one broker session, one store
// and one engine, torn down together by close.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	broker  broker.Broker
	rec     recorder.Recorder
	metrics *metrics.Metrics
	table   *instruments.Table
	engine  *engine.Engine

	stopWalker context.CancelFunc
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})
	return cfg, log, nil
}

// newApp connects to the broker. In dry-run mode a paper broker is used and
// a random-walk quote feed runs for paperSymbol.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, paperSymbol string) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		table:   cfg.ProfileTable(),
	}

	if cfg.Runtime.DryRun {
		pb := paper.New()
		pb.SetContractSize(paperSymbol, decimal.NewFromFloat(cfg.Runtime.Paper.ContractSize))
		a.broker = pb
	} else {
		a.broker = bridge.New(bridge.Config{
			BaseURL:  cfg.Broker.BaseUrl,
			APIKey:   cfg.Broker.ApiKey,
			Secret:   cfg.Broker.Secret,
			Login:    cfg.Broker.Login,
			Password: cfg.Broker.Password,
			Server:   cfg.Broker.Server,
			Timeout:  cfg.Broker.Timeout,
		}, log)
	}

	if err := a.broker.Connect(ctx); err != nil {
		return nil, fmt.Errorf("Не удалось подключиться к брокеру: %w", err)
	}

	if pb, ok := a.broker.(*paper.Broker); ok {
		walkCtx, cancel := context.WithCancel(context.Background())
		a.stopWalker = cancel
		w := paper.NewWalker(pb, paperSymbol,
			decimal.NewFromFloat(cfg.Runtime.Paper.Mid),
			decimal.NewFromFloat(cfg.Runtime.Paper.Spread),
			decimal.NewFromFloat(cfg.Runtime.Paper.Step),
			cfg.Runtime.Paper.Interval,
			uint64(time.Now().UnixNano()))
		w.Tick(time.Now())
		go w.Run(walkCtx)
		log.WithSymbol(paperSymbol).Info("Режим dry_run: котировки генерируются локально.")
	}

	rec, err := recorder.Open(cfg.Recorder.Type, cfg.Recorder.Path)
	if err != nil {
		a.close()
		return nil, err
	}
	a.rec = rec

	a.engine = engine.New(engine.OptionsFromConfig(cfg), a.broker, a.table, a.rec, a.metrics, log)
	return a, nil
}

func (a *app) close() {
	if a.stopWalker != nil {
		a.stopWalker()
	}
	if a.rec != nil {
		if err := a.rec.Close(); err != nil {
			a.log.WithError(err).Warn("Не удалось закрыть журнал.")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.broker.Close(ctx); err != nil {
		a.log.WithError(err).Warn("Не удалось закрыть сессию брокера.")
	}
}
