package recorder

import (
	"context"
	"fmt"
	"martinbot/internal/models"
	"strings"
)

const TimestampLayout = "2006-01-02 15:04:05"

// Recorder is the append-only store of completed martingale steps.
// Implementations must be safe for concurrent Append calls.
type Recorder interface {
	Append(rec models.StepRecord) error
	List(ctx context.Context) ([]models.StepRecord, error)
	Close() error
}

func Open(kind, path string) (Recorder, error) {
	switch strings.ToLower(kind) {
	case "", "csv":
		return NewCSV(path)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("Неизвестный тип хранилища: %s", kind)
	}
}
