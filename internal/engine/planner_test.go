package engine

import (
	"fmt"
	"martinbot/internal/broker"
	"martinbot/internal/instruments"
	"martinbot/internal/models"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanMarketBuy(t *testing.T) {
	plan, err := Plan(instruments.Default(), PlanRequest{
		Instrument: "XAUUSDm",
		Side:       models.OrderSideBuy,
		Mode:       models.ExecutionModeMarket,
		Volume:     d("0.01"),
	}, quoteOf("1999.8", "2000.0"))
	require.NoError(t, err)

	assert.Equal(t, models.TradeActionDeal, plan.Action)
	assert.Equal(t, models.OrderTypeBuy, plan.OrderType)
	assert.True(t, plan.EntryPrice.Equal(d("2000.0")))
	assert.True(t, plan.StopLoss.Equal(d("1999.0")))
	assert.True(t, plan.TakeProfit.Equal(d("2002.0")))
	assert.True(t, plan.Volume.Equal(d("0.01")))
}

func TestPlanMarketSell(t *testing.T) {
	plan, err := Plan(instruments.Default(), PlanRequest{
		Instrument: "BTCUSDm",
		Side:       models.OrderSideSell,
		Mode:       models.ExecutionModeMarket,
		Volume:     d("0.01"),
	}, quoteOf("50000", "50012"))
	require.NoError(t, err)

	assert.Equal(t, models.OrderTypeSell, plan.OrderType)
	assert.True(t, plan.EntryPrice.Equal(d("50000")))
	assert.True(t, plan.StopLoss.Equal(d("50100")))
	assert.True(t, plan.TakeProfit.Equal(d("49800")))
}

func TestPlanLimit(t *testing.T) {
	price := d("1990.5")
	plan, err := Plan(instruments.Default(), PlanRequest{
		Instrument: "XAUUSDm",
		Side:       models.OrderSideBuy,
		Mode:       models.ExecutionModeLimit,
		LimitPrice: &price,
		Volume:     d("0.02"),
	}, quoteOf("1999.8", "2000.0"))
	require.NoError(t, err)

	assert.Equal(t, models.TradeActionPending, plan.Action)
	assert.Equal(t, models.OrderTypeBuyLimit, plan.OrderType)
	assert.True(t, plan.EntryPrice.Equal(price))
	assert.True(t, plan.StopLoss.Equal(d("1989.5")))
	assert.True(t, plan.TakeProfit.Equal(d("1992.5")))

	sellPrice := d("2010")
	plan, err = Plan(instruments.Default(), PlanRequest{
		Instrument: "XAUUSDm",
		Side:       models.OrderSideSell,
		Mode:       models.ExecutionModeLimit,
		LimitPrice: &sellPrice,
		Volume:     d("0.02"),
	}, quoteOf("1999.8", "2000.0"))
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeSellLimit, plan.OrderType)
	assert.True(t, plan.StopLoss.Equal(d("2011")))
	assert.True(t, plan.TakeProfit.Equal(d("2008")))
}

func TestPlanLimitWithoutPriceFallsBackToMarket(t *testing.T) {
	plan, err := Plan(instruments.Default(), PlanRequest{
		Instrument: "XAUUSDm",
		Side:       models.OrderSideSell,
		Mode:       models.ExecutionModeLimit,
		Volume:     d("0.01"),
	}, quoteOf("1999.8", "2000.0"))
	require.NoError(t, err)

	assert.Equal(t, models.TradeActionDeal, plan.Action)
	assert.Equal(t, models.OrderTypeSell, plan.OrderType)
	assert.True(t, plan.EntryPrice.Equal(d("1999.8")))
	assert.Equal(t, models.ExecutionModeLimit, plan.Mode)
}

func TestPlanUnknownInstrumentUsesFallback(t *testing.T) {
	plan, err := Plan(instruments.Default(), PlanRequest{
		Instrument: "NOSUCH",
		Side:       models.OrderSideBuy,
		Volume:     d("0.01"),
	}, quoteOf("99", "100"))
	require.NoError(t, err)

	assert.True(t, plan.StopLoss.Equal(d("90")))
	assert.True(t, plan.TakeProfit.Equal(d("120")))
}

func TestPlanStopsBracketEntry(t *testing.T) {
	table := instruments.Default()
	prices := map[string]string{
		"BTCUSDm": "65000",
		"XAUUSDm": "2000",
		"XAGUSDm": "24.5",
		"USTEC":   "18000",
		"US30":    "39000",
		"USDJPYm": "151.2",
	}
	symbols := append(table.Symbols(), "NOSUCH")

	for _, symbol := range symbols {
		mid, ok := prices[symbol]
		if !ok {
			mid = "1.085"
			if symbol == "NOSUCH" {
				mid = "100"
			}
		}
		bid := d(mid)
		ask := bid.Add(table.Lookup(symbol).StopOffset.Div(d("10")))
		limit := bid.Sub(table.Lookup(symbol).StopOffset.Div(d("4")))

		for _, side := range []models.OrderSide{models.OrderSideBuy, models.OrderSideSell} {
			for _, mode := range []models.ExecutionMode{models.ExecutionModeMarket, models.ExecutionModeLimit} {
				t.Run(fmt.Sprintf("%s/%s/%s", symbol, side, mode), func(t *testing.T) {
					req := PlanRequest{Instrument: symbol, Side: side, Mode: mode, Volume: d("0.01")}
					if mode == models.ExecutionModeLimit {
						req.LimitPrice = &limit
					}
					plan, err := Plan(table, req, &models.Quote{Instrument: symbol, Bid: bid, Ask: ask})
					require.NoError(t, err)

					if side == models.OrderSideBuy {
						assert.True(t, plan.StopLoss.LessThan(plan.EntryPrice), "sl %s entry %s", plan.StopLoss, plan.EntryPrice)
						assert.True(t, plan.EntryPrice.LessThan(plan.TakeProfit), "entry %s tp %s", plan.EntryPrice, plan.TakeProfit)
					} else {
						assert.True(t, plan.TakeProfit.LessThan(plan.EntryPrice), "tp %s entry %s", plan.TakeProfit, plan.EntryPrice)
						assert.True(t, plan.EntryPrice.LessThan(plan.StopLoss), "entry %s sl %s", plan.EntryPrice, plan.StopLoss)
					}
				})
			}
		}
	}
}

func TestPlanWithoutQuote(t *testing.T) {
	req := PlanRequest{Instrument: "XAUUSDm", Side: models.OrderSideBuy, Volume: d("0.01")}

	_, err := Plan(instruments.Default(), req, nil)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, err = Plan(instruments.Default(), req, &models.Quote{Bid: decimal.Zero, Ask: d("1")})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestStepVolume(t *testing.T) {
	base := d("0.01")
	want := []string{"0.01", "0.02", "0.04", "0.08"}
	for k, w := range want {
		assert.True(t, StepVolume(base, k).Equal(d(w)), "step %d", k)
	}
}

func TestBuildOrderRequest(t *testing.T) {
	plan := models.OrderPlan{
		Instrument: "XAUUSDm",
		Action:     models.TradeActionDeal,
		OrderType:  models.OrderTypeBuy,
		EntryPrice: d("2000"),
		StopLoss:   d("1999"),
		TakeProfit: d("2002"),
		Volume:     d("0.04"),
	}
	req := BuildOrderRequest(plan, OrderDefaults{Deviation: 50, Magic: 123456, Comment: "Auto Martingale"})

	assert.Equal(t, "XAUUSDm", req.Symbol)
	assert.Equal(t, models.OrderTypeBuy, req.Type)
	assert.True(t, req.Volume.Equal(d("0.04")))
	assert.True(t, req.SL.Equal(d("1999")))
	assert.True(t, req.TP.Equal(d("2002")))
	assert.Equal(t, 50, req.Deviation)
	assert.Equal(t, int64(123456), req.Magic)
	assert.Equal(t, "Auto Martingale", req.Comment)
	assert.Equal(t, broker.TimeGTC, req.TypeTime)
	assert.Equal(t, broker.FillingFOK, req.TypeFilling)
}
