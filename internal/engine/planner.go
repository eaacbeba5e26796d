package engine

import (
	"martinbot/internal/instruments"
	"martinbot/internal/models"

	"github.com/shopspring/decimal"
)

type PlanRequest struct {
	Instrument string
	Side       models.OrderSide
	Mode       models.ExecutionMode
	LimitPrice *decimal.Decimal
	Volume     decimal.Decimal
}

// Plan turns one step's parameters and the current quote into a concrete
// order. A limit order is placed only when both LIMIT mode and a price are
// given; otherwise the order executes at the opposite side of the book.
func Plan(table *instruments.Table, req PlanRequest, quote *models.Quote) (models.OrderPlan, error) {
	if quote == nil || !quote.Bid.IsPositive() || !quote.Ask.IsPositive() {
		return models.OrderPlan{}, ErrQuoteUnavailable
	}

	plan := models.OrderPlan{
		Instrument: req.Instrument,
		Side:       req.Side,
		Mode:       req.Mode,
		Volume:     req.Volume,
	}

	long := req.Side == models.OrderSideBuy
	if req.Mode == models.ExecutionModeLimit && req.LimitPrice != nil {
		plan.Action = models.TradeActionPending
		plan.EntryPrice = *req.LimitPrice
		plan.OrderType = models.OrderTypeSellLimit
		if long {
			plan.OrderType = models.OrderTypeBuyLimit
		}
	} else {
		plan.Action = models.TradeActionDeal
		plan.EntryPrice = quote.Bid
		plan.OrderType = models.OrderTypeSell
		if long {
			plan.EntryPrice = quote.Ask
			plan.OrderType = models.OrderTypeBuy
		}
	}

	plan.StopLoss, plan.TakeProfit = CalcStops(plan.EntryPrice, table.Lookup(req.Instrument), long)
	return plan, nil
}
