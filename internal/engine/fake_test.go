package engine

import (
	"context"
	"errors"
	"martinbot/internal/broker"
	"martinbot/internal/instruments"
	"martinbot/internal/logger"
	"martinbot/internal/metrics"
	"martinbot/internal/models"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// closing scripts how the position opened by the n-th submission ends.
type closing struct {
	profit     string
	openPolls  int
	viaHistory bool
	never      bool
}

type fakeBroker struct {
	mu sync.Mutex

	quote     *models.Quote
	quoteErrs []error

	sends   []broker.OrderRequest
	rejects map[int]broker.OrderResult
	sendErr map[int]error
	script  []closing

	positionErrs int
	dealsErrs    int
	open         map[uint64]int
	tickets      map[uint64]closing
	sendGate     chan struct{}
}

func newFakeBroker(quote *models.Quote, script ...closing) *fakeBroker {
	return &fakeBroker{
		quote:   quote,
		script:  script,
		rejects: map[int]broker.OrderResult{},
		sendErr: map[int]error{},
		open:    map[uint64]int{},
		tickets: map[uint64]closing{},
	}
}

func (f *fakeBroker) Connect(ctx context.Context) error { return nil }
func (f *fakeBroker) Close(ctx context.Context) error   { return nil }

func (f *fakeBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.quoteErrs) > 0 {
		err := f.quoteErrs[0]
		f.quoteErrs = f.quoteErrs[1:]
		return nil, err
	}
	if f.quote == nil {
		return nil, nil
	}
	q := *f.quote
	q.Instrument = symbol
	return &q, nil
}

func (f *fakeBroker) SendOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if f.sendGate != nil {
		<-f.sendGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sends)
	f.sends = append(f.sends, req)
	if err, ok := f.sendErr[n]; ok {
		return broker.OrderResult{}, err
	}
	if res, ok := f.rejects[n]; ok {
		return res, nil
	}
	ticket := uint64(1000 + n)
	c := closing{profit: "-1"}
	if n < len(f.script) {
		c = f.script[n]
	}
	f.tickets[ticket] = c
	f.open[ticket] = c.openPolls
	return broker.OrderResult{Retcode: broker.RetcodeDone, Order: ticket, Deal: ticket + 500}, nil
}

func (f *fakeBroker) PositionsByTicket(ctx context.Context, ticket uint64) ([]broker.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.positionErrs > 0 {
		f.positionErrs--
		return nil, errors.New("bridge unavailable")
	}
	c := f.tickets[ticket]
	if c.never {
		return []broker.Position{{Ticket: ticket}}, nil
	}
	if f.open[ticket] > 0 {
		f.open[ticket]--
		return []broker.Position{{Ticket: ticket}}, nil
	}
	return nil, nil
}

func (f *fakeBroker) deals(ticket uint64) []broker.Deal {
	c := f.tickets[ticket]
	return []broker.Deal{
		{Ticket: ticket + 500, Order: ticket, PositionID: ticket, Entry: broker.DealEntryIn},
		{Ticket: ticket + 501, Order: ticket + 1, PositionID: ticket, Entry: broker.DealEntryOut, Profit: d(c.profit)},
	}
}

func (f *fakeBroker) DealsByTicket(ctx context.Context, ticket uint64) ([]broker.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dealsErrs > 0 {
		f.dealsErrs--
		return nil, errors.New("history unavailable")
	}
	if f.tickets[ticket].viaHistory {
		return nil, nil
	}
	return f.deals(ticket), nil
}

func (f *fakeBroker) DealsByPosition(ctx context.Context, position uint64) ([]broker.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deals(position), nil
}

func (f *fakeBroker) OrdersByTicket(ctx context.Context, ticket uint64) ([]broker.HistoryOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tickets[ticket].viaHistory {
		return nil, nil
	}
	return []broker.HistoryOrder{{Ticket: ticket, PositionID: ticket, State: "FILLED"}}, nil
}

func (f *fakeBroker) sent() []broker.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broker.OrderRequest(nil), f.sends...)
}

type memRecorder struct {
	mu      sync.Mutex
	records []models.StepRecord
	err     error
}

func (r *memRecorder) Append(rec models.StepRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memRecorder) List(ctx context.Context) ([]models.StepRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StepRecord(nil), r.records...), nil
}

func (r *memRecorder) Close() error { return nil }

func testOptions() Options {
	return Options{
		PollInterval:   time.Millisecond,
		SettleDelay:    time.Millisecond,
		RetryDelay:     time.Millisecond,
		ExclusiveRuns:  true,
		ProgressBuffer: 256,
		MaxSteps:       4,
		Order:          OrderDefaults{Deviation: 50, Magic: 123456, Comment: "Auto Martingale"},
		QuoteAttempts:  3,
	}
}

func newTestEngine(t *testing.T, opts Options, fb *fakeBroker, rec *memRecorder) *Engine {
	t.Helper()
	return New(opts, fb, instruments.Default(), rec, metrics.New(), logger.Discard())
}

func quoteOf(bid, ask string) *models.Quote {
	return &models.Quote{Bid: d(bid), Ask: d(ask), Time: time.Now()}
}

func volumes(reqs []broker.OrderRequest) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Volume.String())
	}
	return out
}
