package bridge

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const recvWindow = "5000"

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any, auth bool, out any) error {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("Не удалось подготовить тело запроса: %w", err)
		}
		bodyStr = string(payload)
		bodyReader = bytes.NewReader(payload)
	}

	urlStr := c.baseURL + path
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return fmt.Errorf("Не удалось создать запрос: %w", err)
	}

	if auth {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		query := ""

		if method == http.MethodGet && len(params) > 0 {
			query = params.Encode()
		}

		signBase := timestamp + c.apiKey + recvWindow + query + bodyStr
		signature := sign(c.secret, signBase)

		req.Header.Set("X-API-KEY", c.apiKey)
		req.Header.Set("X-SIGN", signature)
		req.Header.Set("X-TIMESTAMP", timestamp)
		req.Header.Set("X-RECV-WINDOW", recvWindow)

		if token := c.sessionToken(); token != "" {
			req.Header.Set("X-SESSION", token)
		}
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ошибка запроса: %w", err)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Не удалось прочитать ответ: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("Неуспешный статус: %s", resp.Status)
		}
		return fmt.Errorf("Не удалось разобрать ответ: %w", err)
	}

	if carrier, ok := out.(statusCarrier); ok {
		if retCode, retMsg := carrier.status(); retCode != 0 {
			return &APIError{Code: retCode, Message: retMsg}
		}
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Неуспешный статус: %s", resp.Status)
	}

	return nil
}

type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Ошибка MT5 bridge: %s (code=%d)", e.Message, e.Code)
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func ticketParams(key string, ticket uint64) url.Values {
	params := url.Values{}
	params.Set(key, strconv.FormatUint(ticket, 10))
	return params
}
