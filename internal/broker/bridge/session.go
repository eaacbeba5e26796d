package bridge

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) Connect(ctx context.Context) error {
	body := map[string]any{
		"login":    c.login,
		"password": c.password,
		"server":   c.server,
	}

	var resp bridgeResponse[sessionInfo]
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/session/login", nil, body, true, &resp); err != nil {
		return fmt.Errorf("Не удалось авторизоваться в MT5: %w", err)
	}
	if resp.Result.Token == "" {
		return fmt.Errorf("MT5 bridge не вернул токен сессии.")
	}

	c.mu.Lock()
	c.token = resp.Result.Token
	c.mu.Unlock()

	c.logEntry().WithFields(map[string]interface{}{
		"login":   resp.Result.Login,
		"server":  resp.Result.Server,
		"company": resp.Result.Company,
	}).Info("Сессия MT5 открыта.")
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if c.sessionToken() == "" {
		return nil
	}

	var resp bridgeResponse[struct{}]
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/session/logout", nil, map[string]any{}, true, &resp)

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("Не удалось закрыть сессию MT5: %w", err)
	}
	c.logEntry().Info("Сессия MT5 закрыта.")
	return nil
}

func (c *Client) sessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}
