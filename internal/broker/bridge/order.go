package bridge

import (
	"context"
	"martinbot/internal/broker"
	"net/http"
)

func (c *Client) SendOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	var resp bridgeResponse[broker.OrderResult]

	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/orders/send", nil, req, true, &resp); err != nil {
		return broker.OrderResult{}, err
	}

	return resp.Result, nil
}

func (c *Client) PositionsByTicket(ctx context.Context, ticket uint64) ([]broker.Position, error) {
	var resp bridgeResponse[struct {
		List []broker.Position `json:"list"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/positions", ticketParams("ticket", ticket), nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Result.List, nil
}

func (c *Client) DealsByTicket(ctx context.Context, ticket uint64) ([]broker.Deal, error) {
	return c.historyDeals(ctx, "ticket", ticket)
}

func (c *Client) DealsByPosition(ctx context.Context, position uint64) ([]broker.Deal, error) {
	return c.historyDeals(ctx, "position", position)
}

func (c *Client) historyDeals(ctx context.Context, key string, id uint64) ([]broker.Deal, error) {
	var resp bridgeResponse[struct {
		List []broker.Deal `json:"list"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/history/deals", ticketParams(key, id), nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Result.List, nil
}

func (c *Client) OrdersByTicket(ctx context.Context, ticket uint64) ([]broker.HistoryOrder, error) {
	var resp bridgeResponse[struct {
		List []broker.HistoryOrder `json:"list"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/history/orders", ticketParams("ticket", ticket), nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Result.List, nil
}

var _ broker.Broker = (*Client)(nil)
