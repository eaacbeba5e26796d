package engine

import (
	"context"
	"errors"
	"fmt"
	"martinbot/internal/broker"
	"martinbot/internal/models"

	"github.com/shopspring/decimal"
)

// awaitClosure blocks until the position opened by ticket is gone and its
// realized profit can be read from history. Broker errors while polling are
// logged and polling continues; only the monitor timeout or ctx ends it early.
func (e *Engine) awaitClosure(ctx context.Context, ticket uint64) (models.ClosureOutcome, error) {
	if e.opts.MonitorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.MonitorTimeout)
		defer cancel()
	}

	log := e.log.WithOrderID(ticket).WithField("component", "monitor")
	for {
		if err := sleepCtx(ctx, e.opts.PollInterval); err != nil {
			return models.ClosureOutcome{}, stallError(ticket, err)
		}

		positions, err := e.client.PositionsByTicket(ctx, ticket)
		if err != nil {
			log.WithError(err).Warn("Не удалось получить позицию, продолжаем опрос.")
			continue
		}
		if len(positions) > 0 {
			continue
		}

		log.Debug("Позиция не найдена среди открытых, проверяем историю.")
		if err := sleepCtx(ctx, e.opts.SettleDelay); err != nil {
			return models.ClosureOutcome{}, stallError(ticket, err)
		}

		outcome, closed, err := e.checkHistory(ctx, ticket)
		if err != nil {
			log.WithError(err).Warn("Не удалось прочитать историю сделок.")
		}
		if closed {
			log.WithFields(map[string]interface{}{
				"profit":    outcome.Profit.String(),
				"closed_by": outcome.ClosedBy,
			}).Info("Позиция закрыта.")
			return outcome, nil
		}

		if err := sleepCtx(ctx, e.opts.RetryDelay); err != nil {
			return models.ClosureOutcome{}, stallError(ticket, err)
		}
	}
}

// checkHistory first sums the closing deals recorded under the ticket. When
// there are none, or they cannot be read, but the order is in history, the
// deals of the position are summed instead.
func (e *Engine) checkHistory(ctx context.Context, ticket uint64) (models.ClosureOutcome, bool, error) {
	deals, dealsErr := e.client.DealsByTicket(ctx, ticket)
	if dealsErr == nil {
		if profit, ok := sumExitDeals(deals); ok {
			return closure(profit, models.ClosedByDeal), true, nil
		}
	}

	orders, err := e.client.OrdersByTicket(ctx, ticket)
	if err != nil {
		return models.ClosureOutcome{}, false, errors.Join(dealsErr, err)
	}
	if len(orders) == 0 {
		return models.ClosureOutcome{}, false, dealsErr
	}

	if err := sleepCtx(ctx, e.opts.SettleDelay); err != nil {
		return models.ClosureOutcome{}, false, err
	}
	deals, err = e.client.DealsByPosition(ctx, ticket)
	if err != nil {
		return models.ClosureOutcome{}, false, err
	}
	if len(deals) == 0 {
		return models.ClosureOutcome{}, false, nil
	}
	profit := decimal.Zero
	for _, d := range deals {
		profit = profit.Add(d.Profit)
	}
	return closure(profit, models.ClosedByHistory), true, nil
}

func sumExitDeals(deals []broker.Deal) (decimal.Decimal, bool) {
	profit := decimal.Zero
	found := false
	for _, d := range deals {
		if d.Entry != broker.DealEntryOut {
			continue
		}
		profit = profit.Add(d.Profit)
		found = true
	}
	return profit, found
}

// A zero profit counts as a loss.
func closure(profit decimal.Decimal, by models.ClosedBy) models.ClosureOutcome {
	return models.ClosureOutcome{
		IsProfit: profit.IsPositive(),
		Profit:   profit,
		ClosedBy: by,
	}
}

func stallError(ticket uint64, cause error) error {
	return fmt.Errorf("%w: тикет %d: %w", ErrMonitoringStall, ticket, cause)
}
