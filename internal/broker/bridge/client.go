package bridge

import (
	"martinbot/internal/logger"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	BaseURL  string
	APIKey   string
	Secret   string
	Login    int64
	Password string
	Server   string
	Timeout  time.Duration
}

func New(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		secret:   cfg.Secret,
		login:    cfg.Login,
		password: cfg.Password,
		server:   cfg.Server,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *Client) logEntry() *logrus.Entry {
	return c.log.WithComponent("mt5_bridge")
}
