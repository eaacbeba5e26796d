package recorder

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"martinbot/internal/models"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var Header = []string{"Timestamp", "Symbol", "OrderType", "ExecutionType", "LotSize", "Price", "SL", "TP", "Result", "Profit"}

type CSVRecorder struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

// NewCSV opens the store for appending. The header row is written only when
// the file is created by this call; an existing file is never rewritten.
func NewCSV(path string) (*CSVRecorder, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	created := err == nil
	if errors.Is(err, os.ErrExist) {
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("Не удалось открыть журнал %s: %w", path, err)
	}

	r := &CSVRecorder{path: path, f: f, w: csv.NewWriter(f)}
	if created {
		if err := r.writeRow(Header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *CSVRecorder) Append(rec models.StepRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeRow([]string{
		rec.Timestamp.Format(TimestampLayout),
		rec.Instrument,
		string(rec.Side),
		string(rec.Mode),
		rec.Volume.String(),
		rec.EntryPrice.String(),
		rec.StopLoss.String(),
		rec.TakeProfit.String(),
		string(rec.Outcome),
		rec.Profit.String(),
	})
}

func (r *CSVRecorder) writeRow(row []string) error {
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("Не удалось записать строку журнала: %w", err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("Не удалось записать строку журнала: %w", err)
	}
	return r.f.Sync()
}

func (r *CSVRecorder) List(ctx context.Context) ([]models.StepRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(Header)

	var out []models.StepRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Не удалось прочитать журнал: %w", err)
		}
		if row[0] == Header[0] {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string) (models.StepRecord, error) {
	ts, err := time.ParseInLocation(TimestampLayout, row[0], time.Local)
	if err != nil {
		return models.StepRecord{}, fmt.Errorf("Некорректное время %q: %w", row[0], err)
	}
	nums := make([]decimal.Decimal, 0, 5)
	for _, idx := range []int{4, 5, 6, 7, 9} {
		v, err := decimal.NewFromString(row[idx])
		if err != nil {
			return models.StepRecord{}, fmt.Errorf("Некорректное число %q: %w", row[idx], err)
		}
		nums = append(nums, v)
	}
	return models.StepRecord{
		Timestamp:  ts,
		Instrument: row[1],
		Side:       models.OrderSide(row[2]),
		Mode:       models.ExecutionMode(row[3]),
		Volume:     nums[0],
		EntryPrice: nums[1],
		StopLoss:   nums[2],
		TakeProfit: nums[3],
		Outcome:    models.Outcome(row[8]),
		Profit:     nums[4],
	}, nil
}

func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return err
	}
	return r.f.Close()
}
