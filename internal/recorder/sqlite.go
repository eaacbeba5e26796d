package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"martinbot/internal/models"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const Schema = `
CREATE TABLE IF NOT EXISTS steps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	run_id TEXT NOT NULL,
	step INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	mode TEXT NOT NULL,
	volume TEXT NOT NULL,
	price TEXT NOT NULL,
	sl TEXT NOT NULL,
	tp TEXT NOT NULL,
	result TEXT NOT NULL,
	profit TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id, step);
`

type SQLiteRecorder struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Не удалось создать схему журнала: %w", err)
	}

	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) Append(rec models.StepRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO steps
		(ts, run_id, step, symbol, side, mode, volume, price, sl, tp, result, profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.RunID, rec.Step, rec.Instrument,
		string(rec.Side), string(rec.Mode), rec.Volume.String(), rec.EntryPrice.String(),
		rec.StopLoss.String(), rec.TakeProfit.String(), string(rec.Outcome), rec.Profit.String(),
	)
	if err != nil {
		return fmt.Errorf("Не удалось записать шаг в журнал: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) List(ctx context.Context) ([]models.StepRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, run_id, step, symbol, side, mode, volume, price, sl, tp, result, profit
		FROM steps ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StepRecord
	for rows.Next() {
		var (
			ts, side, mode, result        string
			volume, price, sl, tp, profit string
			rec                           models.StepRecord
		)
		if err := rows.Scan(&ts, &rec.RunID, &rec.Step, &rec.Instrument, &side, &mode, &volume, &price, &sl, &tp, &result, &profit); err != nil {
			return nil, err
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		rec.Side = models.OrderSide(side)
		rec.Mode = models.ExecutionMode(mode)
		rec.Outcome = models.Outcome(result)
		for dst, src := range map[*decimal.Decimal]string{
			&rec.Volume:     volume,
			&rec.EntryPrice: price,
			&rec.StopLoss:   sl,
			&rec.TakeProfit: tp,
			&rec.Profit:     profit,
		} {
			if *dst, err = decimal.NewFromString(src); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
