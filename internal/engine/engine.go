package engine

import (
	"context"
	"fmt"
	"martinbot/internal/broker"
	"martinbot/internal/config"
	"martinbot/internal/instruments"
	"martinbot/internal/logger"
	"martinbot/internal/metrics"
	"martinbot/internal/models"
	"martinbot/internal/recorder"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Options struct {
	PollInterval   time.Duration
	SettleDelay    time.Duration
	RetryDelay     time.Duration
	StepPause      time.Duration
	MonitorTimeout time.Duration
	ExclusiveRuns  bool
	ProgressBuffer int
	MaxSteps       int
	Side           models.OrderSide
	Order          OrderDefaults
	// QuoteAttempts bounds retries of a failing quote request.
	QuoteAttempts int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:   cfg.Engine.PollInterval,
		SettleDelay:    cfg.Engine.SettleDelay,
		RetryDelay:     cfg.Engine.RetryDelay,
		StepPause:      cfg.Engine.StepPause,
		MonitorTimeout: cfg.Engine.MonitorTimeout,
		ExclusiveRuns:  cfg.Engine.ExclusiveRuns,
		ProgressBuffer: cfg.Engine.ProgressBuffer,
		MaxSteps:       cfg.Bot.MaxSteps,
		Side:           models.OrderSide(strings.ToUpper(cfg.Bot.Side)),
		Order: OrderDefaults{
			Deviation: cfg.Bot.Deviation,
			Magic:     cfg.Bot.Magic,
			Comment:   cfg.Bot.Comment,
		},
		QuoteAttempts: 5,
	}
}

type runKey struct {
	instrument string
	side       models.OrderSide
}

type Engine struct {
	opts    Options
	client  broker.Broker
	table   *instruments.Table
	rec     recorder.Recorder
	metrics *metrics.Metrics
	log     *logger.Logger

	submitMu sync.Mutex

	mu       sync.Mutex
	active   map[runKey]string
	results  map[string]RunResult
	wg       sync.WaitGroup
	progress chan Progress

	now func() time.Time
}

// New wires the engine to a connected broker session. m may be nil.
func New(opts Options, client broker.Broker, table *instruments.Table, rec recorder.Recorder, m *metrics.Metrics, log *logger.Logger) *Engine {
	if opts.ProgressBuffer < 0 {
		opts.ProgressBuffer = 0
	}
	if opts.QuoteAttempts < 1 {
		opts.QuoteAttempts = 1
	}
	if table == nil {
		table = instruments.Default()
	}
	return &Engine{
		opts:     opts,
		client:   client,
		table:    table,
		rec:      rec,
		metrics:  m,
		log:      log,
		active:   map[runKey]string{},
		results:  map[string]RunResult{},
		progress: make(chan Progress, opts.ProgressBuffer),
		now:      time.Now,
	}
}

// Progress delivers human-readable run updates. Updates are dropped while the
// channel is full, so a slow reader never stalls a run.
func (e *Engine) Progress() <-chan Progress {
	return e.progress
}

// TriggerBuy starts a buy series. Zero maxSteps means the configured default.
func (e *Engine) TriggerBuy(ctx context.Context, instrument string, mode models.ExecutionMode, limitPrice *decimal.Decimal, baseVolume decimal.Decimal, maxSteps int) (string, error) {
	return e.Start(ctx, RunRequest{
		Instrument: instrument,
		Side:       models.OrderSideBuy,
		Mode:       mode,
		LimitPrice: limitPrice,
		BaseVolume: baseVolume,
		MaxSteps:   maxSteps,
	})
}

func (e *Engine) TriggerSell(ctx context.Context, instrument string, mode models.ExecutionMode, limitPrice *decimal.Decimal, baseVolume decimal.Decimal, maxSteps int) (string, error) {
	return e.Start(ctx, RunRequest{
		Instrument: instrument,
		Side:       models.OrderSideSell,
		Mode:       mode,
		LimitPrice: limitPrice,
		BaseVolume: baseVolume,
		MaxSteps:   maxSteps,
	})
}

// Start launches a run in the background and returns its id at once.
func (e *Engine) Start(ctx context.Context, req RunRequest) (string, error) {
	req, err := e.prepare(req)
	if err != nil {
		return "", err
	}
	runID := uuid.NewString()
	release, err := e.acquire(req, runID)
	if err != nil {
		return "", err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer release()
		res := e.run(ctx, runID, req)
		e.mu.Lock()
		e.results[runID] = res
		e.mu.Unlock()
	}()
	return runID, nil
}

// Run executes a run on the calling goroutine.
func (e *Engine) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	req, err := e.prepare(req)
	if err != nil {
		return RunResult{}, err
	}
	runID := uuid.NewString()
	release, err := e.acquire(req, runID)
	if err != nil {
		return RunResult{}, err
	}
	defer release()
	return e.run(ctx, runID, req), nil
}

// Result returns the outcome of a run launched with Start once it has
// finished. Unlike the final progress update it is never dropped.
func (e *Engine) Result(runID string) (RunResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, ok := e.results[runID]
	return res, ok
}

// Wait blocks until every started run has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) prepare(req RunRequest) (RunRequest, error) {
	if req.Mode == "" {
		req.Mode = models.ExecutionModeMarket
	}
	if req.MaxSteps == 0 {
		req.MaxSteps = e.opts.MaxSteps
	}
	if req.Side == "" {
		req.Side = e.opts.Side
	}
	switch {
	case req.Instrument == "":
		return req, fmt.Errorf("%w: не указан инструмент", ErrInvalidRequest)
	case req.Side != models.OrderSideBuy && req.Side != models.OrderSideSell:
		return req, fmt.Errorf("%w: неизвестное направление %q", ErrInvalidRequest, req.Side)
	case req.Mode != models.ExecutionModeMarket && req.Mode != models.ExecutionModeLimit:
		return req, fmt.Errorf("%w: неизвестный режим %q", ErrInvalidRequest, req.Mode)
	case !req.BaseVolume.IsPositive():
		return req, fmt.Errorf("%w: лот должен быть положительным", ErrInvalidRequest)
	case req.MaxSteps < 1:
		return req, fmt.Errorf("%w: число шагов должно быть не меньше 1", ErrInvalidRequest)
	case req.LimitPrice != nil && !req.LimitPrice.IsPositive():
		return req, fmt.Errorf("%w: лимитная цена должна быть положительной", ErrInvalidRequest)
	}
	return req, nil
}

func (e *Engine) acquire(req RunRequest, runID string) (func(), error) {
	if !e.opts.ExclusiveRuns {
		return func() {}, nil
	}
	key := runKey{instrument: req.Instrument, side: req.Side}

	e.mu.Lock()
	defer e.mu.Unlock()
	if owner, ok := e.active[key]; ok {
		return nil, fmt.Errorf("%w: %s %s (run %s)", ErrRunInProgress, req.Instrument, req.Side, owner)
	}
	e.active[key] = runID
	return func() {
		e.mu.Lock()
		delete(e.active, key)
		e.mu.Unlock()
	}, nil
}

func (e *Engine) notify(runID string, state RunState, step int, text string) {
	e.publish(Progress{RunID: runID, State: state, Step: step, Text: text, Time: e.now()})
}

func (e *Engine) publish(p Progress) {
	select {
	case e.progress <- p:
	default:
		e.log.WithRunID(p.RunID).WithField("text", p.Text).Debug("Очередь прогресса заполнена, сообщение пропущено.")
	}
}
