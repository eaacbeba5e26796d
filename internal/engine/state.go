package engine

import (
	"martinbot/internal/models"
	"time"

	"github.com/shopspring/decimal"
)

type RunState string

const (
	StatePlanning   RunState = "PLANNING"
	StateSubmitting RunState = "SUBMITTING"
	StateMonitoring RunState = "MONITORING"
	StateRecording  RunState = "RECORDING"
	StateSucceeded  RunState = "SUCCEEDED"
	StateExhausted  RunState = "EXHAUSTED"
	StateAborted    RunState = "ABORTED"
)

type RunRequest struct {
	Instrument string               `json:"symbol"`
	Side       models.OrderSide     `json:"side"`
	Mode       models.ExecutionMode `json:"mode"`
	LimitPrice *decimal.Decimal     `json:"limit_price,omitempty"`
	BaseVolume decimal.Decimal      `json:"lot"`
	MaxSteps   int                  `json:"steps"`
}

type RunResult struct {
	RunID string
	State RunState
	Steps []models.StepRecord
	// Err is set for aborted runs only; exhaustion is not an error.
	Err error
	// RecordErrors holds store failures that did not change the outcome.
	RecordErrors []error
}

type Progress struct {
	RunID  string     `json:"run_id"`
	State  RunState   `json:"state"`
	Step   int        `json:"step"`
	Text   string     `json:"text"`
	Time   time.Time  `json:"time"`
	Result *RunResult `json:"-"`
}
