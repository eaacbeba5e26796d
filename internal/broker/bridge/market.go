package bridge

import (
	"context"
	"martinbot/internal/models"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

type tickInfo struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	TimeMs int64           `json:"time_msc"`
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var resp bridgeResponse[*tickInfo]

	path := "/api/v1/symbols/" + url.PathEscape(symbol) + "/tick"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, true, &resp); err != nil {
		return nil, err
	}

	tick := resp.Result
	if tick == nil || !tick.Bid.IsPositive() || !tick.Ask.IsPositive() {
		return nil, nil
	}

	return &models.Quote{
		Instrument: symbol,
		Bid:        tick.Bid,
		Ask:        tick.Ask,
		Time:       time.UnixMilli(tick.TimeMs),
	}, nil
}
