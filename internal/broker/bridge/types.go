package bridge

import (
	"martinbot/internal/logger"
	"net/http"
	"sync"
)

type Client struct {
	baseURL  string
	apiKey   string
	secret   string
	login    int64
	password string
	server   string

	httpClient *http.Client
	log        *logger.Logger

	mu    sync.RWMutex
	token string
}

type bridgeResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
	Time    int64  `json:"time"`
}

func (r *bridgeResponse[T]) status() (int, string) {
	return r.RetCode, r.RetMsg
}

type statusCarrier interface {
	status() (int, string)
}

type sessionInfo struct {
	Token   string `json:"token"`
	Login   int64  `json:"login"`
	Server  string `json:"server"`
	Company string `json:"company"`
}
