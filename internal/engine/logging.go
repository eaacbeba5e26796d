package engine

import (
	"github.com/sirupsen/logrus"
)

func (e *Engine) logEntry() *logrus.Entry {
	return e.log.WithComponent("engine")
}

func (e *Engine) runEntry(runID string, req RunRequest) *logrus.Entry {
	return e.logEntry().WithFields(logrus.Fields{
		"run_id": runID,
		"symbol": req.Instrument,
		"side":   req.Side,
		"mode":   req.Mode,
	})
}
