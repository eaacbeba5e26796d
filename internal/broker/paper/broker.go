package paper

import (
	"context"
	"errors"
	"fmt"
	"martinbot/internal/broker"
	"martinbot/internal/models"
	"sync"

	"github.com/shopspring/decimal"
)

const (
	RetcodeInvalidVolume = 10014
	RetcodeNoQuotes      = 10021
	RetcodeInvalidStops  = 10016
)

var ErrNotConnected = errors.New("Сессия paper-брокера не открыта.")

type position struct {
	ticket    uint64
	symbol    string
	long      bool
	volume    decimal.Decimal
	openPrice decimal.Decimal
	sl        decimal.Decimal
	tp        decimal.Decimal
}

type pending struct {
	ticket uint64
	req    broker.OrderRequest
}

// Broker is an in-memory MT5-like broker. Positions close when a quote update
// crosses their stop-loss or take-profit.
type Broker struct {
	mu        sync.Mutex
	connected bool
	quotes    map[string]models.Quote
	positions map[uint64]*position
	pendings  map[uint64]*pending
	orders    map[uint64]broker.HistoryOrder
	deals     []broker.Deal
	contract  map[string]decimal.Decimal
	next      uint64
}

func New() *Broker {
	return &Broker{
		quotes:    map[string]models.Quote{},
		positions: map[uint64]*position{},
		pendings:  map[uint64]*pending{},
		orders:    map[uint64]broker.HistoryOrder{},
		contract:  map[string]decimal.Decimal{},
		next:      1000,
	}
}

// SetContractSize sets the profit multiplier per lot for a symbol (default 1).
func (b *Broker) SetContractSize(symbol string, size decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contract[symbol] = size
}

func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *Broker) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *Broker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, ErrNotConnected
	}
	q, ok := b.quotes[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (b *Broker) ticket() uint64 {
	b.next++
	return b.next
}

func (b *Broker) SendOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return broker.OrderResult{}, ErrNotConnected
	}

	q, ok := b.quotes[req.Symbol]
	if !ok {
		return broker.OrderResult{Retcode: RetcodeNoQuotes, Comment: "No quotes"}, nil
	}
	if !req.Volume.IsPositive() {
		return broker.OrderResult{Retcode: RetcodeInvalidVolume, Comment: "Invalid volume"}, nil
	}
	if !stopsValid(req) {
		return broker.OrderResult{Retcode: RetcodeInvalidStops, Comment: "Invalid stops"}, nil
	}

	ticket := b.ticket()
	if req.Action == models.TradeActionPending {
		b.pendings[ticket] = &pending{ticket: ticket, req: req}
		return broker.OrderResult{Retcode: broker.RetcodeDone, Comment: "Request executed", Order: ticket}, nil
	}

	price := q.Ask
	if !req.Type.IsLong() {
		price = q.Bid
	}
	deal := b.open(ticket, req, price)
	return broker.OrderResult{Retcode: broker.RetcodeDone, Comment: "Request executed", Order: ticket, Deal: deal}, nil
}

func stopsValid(req broker.OrderRequest) bool {
	if req.Type.IsLong() {
		return req.SL.LessThan(req.Price) && req.TP.GreaterThan(req.Price)
	}
	return req.SL.GreaterThan(req.Price) && req.TP.LessThan(req.Price)
}

func (b *Broker) open(ticket uint64, req broker.OrderRequest, price decimal.Decimal) uint64 {
	b.positions[ticket] = &position{
		ticket:    ticket,
		symbol:    req.Symbol,
		long:      req.Type.IsLong(),
		volume:    req.Volume,
		openPrice: price,
		sl:        req.SL,
		tp:        req.TP,
	}
	b.orders[ticket] = broker.HistoryOrder{Ticket: ticket, PositionID: ticket, Symbol: req.Symbol, State: "FILLED"}

	deal := b.ticket()
	b.deals = append(b.deals, broker.Deal{
		Ticket:     deal,
		Order:      ticket,
		PositionID: ticket,
		Symbol:     req.Symbol,
		Entry:      broker.DealEntryIn,
		Volume:     req.Volume,
		Price:      price,
		Profit:     decimal.Zero,
	})
	return deal
}

// UpdateQuote stores the tick, fills pending limits the price reached and
// closes positions whose stop-loss or take-profit was crossed.
func (b *Broker) UpdateQuote(q models.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.quotes[q.Instrument] = q

	for ticket, p := range b.pendings {
		if p.req.Symbol != q.Instrument {
			continue
		}
		reached := false
		if p.req.Type.IsLong() {
			reached = q.Ask.LessThanOrEqual(p.req.Price)
		} else {
			reached = q.Bid.GreaterThanOrEqual(p.req.Price)
		}
		if reached {
			delete(b.pendings, ticket)
			b.open(ticket, p.req, p.req.Price)
		}
	}

	for ticket, p := range b.positions {
		if p.symbol != q.Instrument {
			continue
		}
		if exit, ok := p.exitPrice(q); ok {
			b.closeLocked(ticket, p, exit)
		}
	}
}

func (p *position) exitPrice(q models.Quote) (decimal.Decimal, bool) {
	if p.long {
		switch {
		case q.Bid.LessThanOrEqual(p.sl):
			return p.sl, true
		case q.Bid.GreaterThanOrEqual(p.tp):
			return p.tp, true
		}
		return decimal.Zero, false
	}
	switch {
	case q.Ask.GreaterThanOrEqual(p.sl):
		return p.sl, true
	case q.Ask.LessThanOrEqual(p.tp):
		return p.tp, true
	}
	return decimal.Zero, false
}

func (b *Broker) closeLocked(ticket uint64, p *position, exit decimal.Decimal) {
	diff := exit.Sub(p.openPrice)
	if !p.long {
		diff = diff.Neg()
	}
	size, ok := b.contract[p.symbol]
	if !ok {
		size = decimal.NewFromInt(1)
	}
	profit := diff.Mul(p.volume).Mul(size).Round(2)

	closeOrder := b.ticket()
	b.orders[closeOrder] = broker.HistoryOrder{Ticket: closeOrder, PositionID: ticket, Symbol: p.symbol, State: "FILLED"}
	b.deals = append(b.deals, broker.Deal{
		Ticket:     b.ticket(),
		Order:      closeOrder,
		PositionID: ticket,
		Symbol:     p.symbol,
		Entry:      broker.DealEntryOut,
		Volume:     p.volume,
		Price:      exit,
		Profit:     profit,
	})
	delete(b.positions, ticket)
}

// ClosePosition closes an open position at the current market price.
func (b *Broker) ClosePosition(ticket uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.positions[ticket]
	if !ok {
		return fmt.Errorf("Позиция %d не найдена.", ticket)
	}
	q := b.quotes[p.symbol]
	exit := q.Bid
	if !p.long {
		exit = q.Ask
	}
	b.closeLocked(ticket, p, exit)
	return nil
}

func (b *Broker) PositionsByTicket(ctx context.Context, ticket uint64) ([]broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, ErrNotConnected
	}
	p, ok := b.positions[ticket]
	if !ok {
		return nil, nil
	}
	return []broker.Position{{
		Ticket:    p.ticket,
		Symbol:    p.symbol,
		Volume:    p.volume,
		PriceOpen: p.openPrice,
	}}, nil
}

func (b *Broker) DealsByTicket(ctx context.Context, ticket uint64) ([]broker.Deal, error) {
	return b.filterDeals(func(d broker.Deal) bool { return d.Ticket == ticket })
}

func (b *Broker) DealsByPosition(ctx context.Context, position uint64) ([]broker.Deal, error) {
	return b.filterDeals(func(d broker.Deal) bool { return d.PositionID == position })
}

func (b *Broker) filterDeals(match func(broker.Deal) bool) ([]broker.Deal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, ErrNotConnected
	}
	var out []broker.Deal
	for _, d := range b.deals {
		if match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *Broker) OrdersByTicket(ctx context.Context, ticket uint64) ([]broker.HistoryOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, ErrNotConnected
	}
	o, ok := b.orders[ticket]
	if !ok {
		return nil, nil
	}
	return []broker.HistoryOrder{o}, nil
}

var _ broker.Broker = (*Broker)(nil)
