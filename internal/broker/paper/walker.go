package paper

import (
	"context"
	"martinbot/internal/models"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

// Walker feeds the paper broker a random-walk quote stream for one symbol.
type Walker struct {
	Broker   *Broker
	Symbol   string
	Mid      decimal.Decimal
	Spread   decimal.Decimal
	Step     decimal.Decimal
	Interval time.Duration

	rnd *rand.Rand
}

func NewWalker(b *Broker, symbol string, mid, spread, step decimal.Decimal, interval time.Duration, seed uint64) *Walker {
	return &Walker{
		Broker:   b,
		Symbol:   symbol,
		Mid:      mid,
		Spread:   spread,
		Step:     step,
		Interval: interval,
		rnd:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Tick moves the mid price one step up or down and publishes the quote.
func (w *Walker) Tick(now time.Time) models.Quote {
	if w.rnd.IntN(2) == 0 {
		w.Mid = w.Mid.Add(w.Step)
	} else {
		w.Mid = w.Mid.Sub(w.Step)
	}
	half := w.Spread.Div(decimal.NewFromInt(2))
	q := models.Quote{
		Instrument: w.Symbol,
		Bid:        w.Mid.Sub(half),
		Ask:        w.Mid.Add(half),
		Time:       now,
	}
	w.Broker.UpdateQuote(q)
	return q
}

func (w *Walker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.Tick(now)
		}
	}
}
