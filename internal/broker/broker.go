package broker

import (
	"context"
	"martinbot/internal/models"

	"github.com/shopspring/decimal"
)

const (
	RetcodeDone = 10009

	TimeGTC    = "GTC"
	FillingFOK = "FOK"
)

type DealEntry string

const (
	DealEntryIn  DealEntry = "IN"
	DealEntryOut DealEntry = "OUT"
)

type OrderRequest struct {
	Action      models.TradeAction `json:"action"`
	Symbol      string             `json:"symbol"`
	Volume      decimal.Decimal    `json:"volume"`
	Type        models.OrderType   `json:"type"`
	Price       decimal.Decimal    `json:"price"`
	SL          decimal.Decimal    `json:"sl"`
	TP          decimal.Decimal    `json:"tp"`
	Deviation   int                `json:"deviation"`
	Magic       int64              `json:"magic"`
	Comment     string             `json:"comment"`
	TypeTime    string             `json:"type_time"`
	TypeFilling string             `json:"type_filling"`
}

type OrderResult struct {
	Retcode int    `json:"retcode"`
	Comment string `json:"comment"`
	Order   uint64 `json:"order"`
	Deal    uint64 `json:"deal"`
}

type Position struct {
	Ticket    uint64          `json:"ticket"`
	Symbol    string          `json:"symbol"`
	Volume    decimal.Decimal `json:"volume"`
	PriceOpen decimal.Decimal `json:"price_open"`
	Profit    decimal.Decimal `json:"profit"`
}

type Deal struct {
	Ticket     uint64          `json:"ticket"`
	Order      uint64          `json:"order"`
	PositionID uint64          `json:"position_id"`
	Symbol     string          `json:"symbol"`
	Entry      DealEntry       `json:"entry"`
	Volume     decimal.Decimal `json:"volume"`
	Price      decimal.Decimal `json:"price"`
	Profit     decimal.Decimal `json:"profit"`
}

type HistoryOrder struct {
	Ticket     uint64 `json:"ticket"`
	PositionID uint64 `json:"position_id"`
	Symbol     string `json:"symbol"`
	State      string `json:"state"`
}

// Broker is the process-wide session handle. It is connected once at startup
// and closed once at shutdown.
type Broker interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	// GetQuote returns nil without an error when the symbol has no live tick.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	SendOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	PositionsByTicket(ctx context.Context, ticket uint64) ([]Position, error)
	DealsByTicket(ctx context.Context, ticket uint64) ([]Deal, error)
	DealsByPosition(ctx context.Context, position uint64) ([]Deal, error)
	OrdersByTicket(ctx context.Context, ticket uint64) ([]HistoryOrder, error)
}
