package engine

import (
	"context"
	"errors"
	"martinbot/internal/models"
	"math"
	"strings"
	"time"
)

// fetchQuote retries transport failures with backoff. A quote that simply is
// not there is reported at once.
func (e *Engine) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quote, err := withRetry(ctx, e, func() (*models.Quote, error) {
		return e.client.GetQuote(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, errors.Join(ErrQuoteUnavailable, err)
	}
	if quote == nil {
		return nil, ErrQuoteUnavailable
	}
	return quote, nil
}

func withRetry[T any](ctx context.Context, e *Engine, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := e.opts.RetryDelay
	if backoff <= 0 {
		backoff = time.Second
	}
	for i := 0; i < e.opts.QuoteAttempts; i++ {
		val, err := fn()
		if err == nil {
			return val, nil
		}
		lastErr = err
		if i == e.opts.QuoteAttempts-1 {
			break
		}
		wait := time.Duration(math.Min(float64(backoff), float64(30*time.Second)))
		if isRateLimitError(err) {
			wait = time.Duration(math.Min(float64(backoff*4), float64(30*time.Second)))
		}
		e.logEntry().WithError(lastErr).Warn("Ошибка, повторяем запрос.")
		if err := sleepCtx(ctx, wait); err != nil {
			return zero, err
		}
		backoff *= 2
	}
	return zero, lastErr
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
