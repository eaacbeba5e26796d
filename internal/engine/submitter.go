package engine

import (
	"context"
	"martinbot/internal/broker"
	"martinbot/internal/models"
)

type OrderDefaults struct {
	Deviation int
	Magic     int64
	Comment   string
}

func BuildOrderRequest(plan models.OrderPlan, defaults OrderDefaults) broker.OrderRequest {
	return broker.OrderRequest{
		Action:      plan.Action,
		Symbol:      plan.Instrument,
		Volume:      plan.Volume,
		Type:        plan.OrderType,
		Price:       plan.EntryPrice,
		SL:          plan.StopLoss,
		TP:          plan.TakeProfit,
		Deviation:   defaults.Deviation,
		Magic:       defaults.Magic,
		Comment:     defaults.Comment,
		TypeTime:    broker.TimeGTC,
		TypeFilling: broker.FillingFOK,
	}
}

// submit sends exactly one order. Submissions from concurrent runs share one
// broker session and are serialized. A failed submission is never retried.
func (e *Engine) submit(ctx context.Context, plan models.OrderPlan) (models.SubmissionResult, error) {
	req := BuildOrderRequest(plan, e.opts.Order)

	e.logEntry().WithFields(map[string]interface{}{
		"symbol": plan.Instrument,
		"action": plan.Action,
		"type":   plan.OrderType,
		"volume": plan.Volume.String(),
		"price":  plan.EntryPrice.String(),
		"sl":     plan.StopLoss.String(),
		"tp":     plan.TakeProfit.String(),
	}).Info("Отправка ордера.")

	e.submitMu.Lock()
	res, err := e.client.SendOrder(ctx, req)
	e.submitMu.Unlock()

	if err != nil {
		e.metrics.Submission(false)
		return models.SubmissionResult{RejectionReason: err.Error()}, &SubmissionError{Err: err}
	}

	result := models.SubmissionResult{Retcode: res.Retcode}
	if res.Retcode != broker.RetcodeDone || res.Order == 0 {
		e.metrics.Submission(false)
		result.RejectionReason = res.Comment
		if result.RejectionReason == "" {
			result.RejectionReason = "нет тикета ордера"
		}
		return result, &SubmissionError{Retcode: res.Retcode, Reason: result.RejectionReason}
	}

	e.metrics.Submission(true)
	result.Accepted = true
	result.PositionID = res.Order
	e.log.WithOrderID(res.Order).WithField("retcode", res.Retcode).Info("Ордер принят.")
	return result, nil
}
