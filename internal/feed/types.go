package feed

import (
	"context"
	"martinbot/internal/engine"
	"martinbot/internal/instruments"
	"martinbot/internal/logger"
	"martinbot/internal/models"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Runner is the part of the engine the server drives.
type Runner interface {
	Start(ctx context.Context, req engine.RunRequest) (string, error)
	Result(runID string) (engine.RunResult, bool)
	Progress() <-chan engine.Progress
}

type Server struct {
	runner   Runner
	table    *instruments.Table
	metrics  http.Handler
	log      *logger.Logger
	upgrader websocket.Upgrader

	// runCtx outlives the request that started a run.
	runCtx context.Context

	mu      sync.Mutex
	clients map[*client]struct{}

	writeTimeout time.Duration
	sendBuffer   int
}

type client struct {
	conn     *websocket.Conn
	send     chan engine.Progress
	stopOnce sync.Once
	done     chan struct{}
}

type runPayload struct {
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"`
	Mode       string           `json:"mode"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
	Lot        decimal.Decimal  `json:"lot"`
	Steps      int              `json:"steps"`
}

type runAccepted struct {
	RunID string `json:"run_id"`
}

type runStatus struct {
	RunID        string              `json:"run_id"`
	State        engine.RunState     `json:"state"`
	Steps        []models.StepRecord `json:"steps"`
	Error        string              `json:"error,omitempty"`
	RecordErrors []string            `json:"record_errors,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

type symbolInfo struct {
	Symbol     string          `json:"symbol"`
	StopOffset decimal.Decimal `json:"stop_offset"`
	TakeOffset decimal.Decimal `json:"take_offset"`
}
