package engine

import (
	"context"
	"errors"
	"fmt"
	"martinbot/internal/models"

	"github.com/shopspring/decimal"
)

// run drives one martingale series: each step plans, submits and waits for
// the position to close. A profit ends the run; a loss doubles the volume
// until MaxSteps losses have been recorded.
func (e *Engine) run(ctx context.Context, runID string, req RunRequest) (res RunResult) {
	res.RunID = runID
	log := e.runEntry(runID, req)

	e.metrics.RunStarted()
	defer func() {
		e.metrics.RunFinished(string(res.State))
		log.WithField("state", res.State).Info("Серия завершена.")
		final := res
		e.publish(Progress{RunID: runID, State: res.State, Step: len(res.Steps), Text: finalText(res), Time: e.now(), Result: &final})
	}()

	if !e.table.Known(req.Instrument) {
		log.Warn("Профиль инструмента не задан, используются резервные отступы.")
	}
	e.notify(runID, StatePlanning, 0, fmt.Sprintf("Старт серии %s %s %s: лот %s, шагов %d.",
		req.Instrument, req.Side, req.Mode, req.BaseVolume.String(), req.MaxSteps))

	for step := 0; step < req.MaxSteps; step++ {
		n := step + 1
		volume := StepVolume(req.BaseVolume, step)
		e.notify(runID, StatePlanning, n, fmt.Sprintf("Шаг %d/%d - лот %s - размещение ордера...", n, req.MaxSteps, volume.String()))

		quote, err := e.fetchQuote(ctx, req.Instrument)
		if err != nil {
			return e.abort(res, n, err)
		}
		plan, err := Plan(e.table, PlanRequest{
			Instrument: req.Instrument,
			Side:       req.Side,
			Mode:       req.Mode,
			LimitPrice: req.LimitPrice,
			Volume:     volume,
		}, quote)
		if err != nil {
			return e.abort(res, n, err)
		}

		e.notify(runID, StateSubmitting, n, fmt.Sprintf("Шаг %d/%d - %s %s по %s, SL %s, TP %s.",
			n, req.MaxSteps, plan.OrderType, plan.Volume.String(), plan.EntryPrice.String(), plan.StopLoss.String(), plan.TakeProfit.String()))
		sub, err := e.submit(ctx, plan)
		if err != nil {
			return e.abort(res, n, err)
		}

		e.notify(runID, StateMonitoring, n, fmt.Sprintf("Шаг %d/%d - ордер %d принят, ждём закрытия позиции...", n, req.MaxSteps, sub.PositionID))
		outcome, err := e.awaitClosure(ctx, sub.PositionID)
		if err != nil {
			return e.abort(res, n, err)
		}

		e.notify(runID, StateRecording, n, fmt.Sprintf("Шаг %d/%d - позиция закрыта, результат %s.", n, req.MaxSteps, outcome.Profit.StringFixed(2)))
		rec := models.StepRecord{
			Timestamp:  e.now(),
			RunID:      runID,
			Step:       step,
			Instrument: plan.Instrument,
			Side:       plan.Side,
			Mode:       plan.Mode,
			Volume:     plan.Volume,
			EntryPrice: plan.EntryPrice,
			StopLoss:   plan.StopLoss,
			TakeProfit: plan.TakeProfit,
			Outcome:    models.OutcomeOf(outcome.IsProfit),
			Profit:     outcome.Profit,
		}
		res.Steps = append(res.Steps, rec)
		e.metrics.Step(string(rec.Outcome))
		if err := e.rec.Append(rec); err != nil {
			werr := fmt.Errorf("%w: %w", ErrStoreWrite, err)
			res.RecordErrors = append(res.RecordErrors, werr)
			e.metrics.RecordFailed()
			log.WithError(err).Warn("Шаг не записан в журнал.")
			e.notify(runID, StateRecording, n, "Внимание: шаг не записан в журнал.")
		}

		if outcome.IsProfit {
			res.State = StateSucceeded
			return res
		}
		if n == req.MaxSteps {
			res.State = StateExhausted
			return res
		}

		e.metrics.Doubled()
		e.notify(runID, StatePlanning, n, fmt.Sprintf("Убыток %s. Удваиваем лот до %s.", outcome.Profit.StringFixed(2), StepVolume(req.BaseVolume, n).String()))
		if err := sleepCtx(ctx, e.opts.StepPause); err != nil {
			return e.abort(res, n, err)
		}
	}

	res.State = StateExhausted
	return res
}

func (e *Engine) abort(res RunResult, step int, err error) RunResult {
	res.State = StateAborted
	res.Err = err
	e.log.WithRunID(res.RunID).WithField("step", step).WithError(err).Error("Серия прервана.")
	return res
}

func finalText(res RunResult) string {
	switch res.State {
	case StateSucceeded:
		last := res.Steps[len(res.Steps)-1]
		return fmt.Sprintf("Профит %s на шаге %d. Серия завершена.", last.Profit.StringFixed(2), last.Step+1)
	case StateExhausted:
		total := decimal.Zero
		for _, s := range res.Steps {
			total = total.Add(s.Profit)
		}
		return fmt.Sprintf("Достигнут лимит шагов (%d). Итог %s. Остановка.", len(res.Steps), total.StringFixed(2))
	default:
		var rejected *SubmissionError
		if errors.As(res.Err, &rejected) {
			return fmt.Sprintf("Ордер отклонён: %s. Серия прервана.", rejected.Error())
		}
		return fmt.Sprintf("Серия прервана: %v", res.Err)
	}
}
