package engine

import (
	"errors"
	"fmt"
)

var (
	ErrQuoteUnavailable   = errors.New("Нет котировки по инструменту.")
	ErrSubmissionRejected = errors.New("Брокер отклонил ордер.")
	ErrMonitoringStall    = errors.New("Не дождались закрытия позиции.")
	ErrStoreWrite         = errors.New("Не удалось записать шаг в журнал.")
	ErrRunInProgress      = errors.New("Серия по этому инструменту и направлению уже запущена.")
	ErrInvalidRequest     = errors.New("Некорректный запрос на запуск серии.")
)

// SubmissionError carries the broker's answer for a declined order. Err is set
// when the order never reached the broker.
type SubmissionError struct {
	Retcode int
	Reason  string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Ордер не отправлен: %v", e.Err)
	}
	return fmt.Sprintf("Брокер отклонил ордер: %s (retcode=%d)", e.Reason, e.Retcode)
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSubmissionRejected, e.Err}
	}
	return []error{ErrSubmissionRejected}
}
