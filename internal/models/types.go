package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string
type ExecutionMode string
type TradeAction string
type OrderType string
type Outcome string
type ClosedBy string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	ExecutionModeMarket ExecutionMode = "MARKET"
	ExecutionModeLimit  ExecutionMode = "LIMIT"

	TradeActionDeal    TradeAction = "DEAL"
	TradeActionPending TradeAction = "PENDING"

	OrderTypeBuy       OrderType = "BUY"
	OrderTypeSell      OrderType = "SELL"
	OrderTypeBuyLimit  OrderType = "BUY_LIMIT"
	OrderTypeSellLimit OrderType = "SELL_LIMIT"

	OutcomeProfit Outcome = "PROFIT"
	OutcomeLoss   Outcome = "LOSS"

	ClosedByDeal    ClosedBy = "DEAL"
	ClosedByHistory ClosedBy = "HISTORY"
)

// IsLong reports whether the order opens long exposure.
func (t OrderType) IsLong() bool {
	return t == OrderTypeBuy || t == OrderTypeBuyLimit
}

type Quote struct {
	Instrument string          `json:"instrument"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	Time       time.Time       `json:"time"`
}

type OrderPlan struct {
	Instrument string          `json:"instrument"`
	Side       OrderSide       `json:"side"`
	Mode       ExecutionMode   `json:"mode"`
	Action     TradeAction     `json:"action"`
	OrderType  OrderType       `json:"order_type"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	Volume     decimal.Decimal `json:"volume"`
}

type SubmissionResult struct {
	Accepted        bool   `json:"accepted"`
	PositionID      uint64 `json:"position_id,omitempty"`
	Retcode         int    `json:"retcode"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type ClosureOutcome struct {
	IsProfit bool            `json:"is_profit"`
	Profit   decimal.Decimal `json:"profit"`
	ClosedBy ClosedBy        `json:"closed_by"`
}

type StepRecord struct {
	Timestamp  time.Time       `json:"timestamp"`
	RunID      string          `json:"run_id"`
	Step       int             `json:"step"`
	Instrument string          `json:"instrument"`
	Side       OrderSide       `json:"side"`
	Mode       ExecutionMode   `json:"mode"`
	Volume     decimal.Decimal `json:"volume"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	Outcome    Outcome         `json:"outcome"`
	Profit     decimal.Decimal `json:"profit"`
}

func OutcomeOf(isProfit bool) Outcome {
	if isProfit {
		return OutcomeProfit
	}
	return OutcomeLoss
}
