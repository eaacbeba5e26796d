package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"martinbot/internal/engine"
	"martinbot/internal/instruments"
	"martinbot/internal/logger"
	"martinbot/internal/models"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// New builds the trigger API and progress feed. Runs started over HTTP live
// on runCtx rather than on the request context.
func New(runCtx context.Context, runner Runner, table *instruments.Table, metrics http.Handler, log *logger.Logger) *Server {
	return &Server{
		runner:  runner,
		table:   table,
		metrics: metrics,
		log:     log,
		runCtx:  runCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:      map[*client]struct{}{},
		writeTimeout: 5 * time.Second,
		sendBuffer:   32,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.handleStartRun)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunResult)
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
	mux.HandleFunc("GET /ws/progress", s.handleProgress)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Broadcast(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logEntry().WithField("addr", addr).Info("HTTP сервер запущен.")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP сервер завершился с ошибкой: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("Не удалось остановить HTTP сервер: %w", err)
		}
		s.logEntry().Info("HTTP сервер остановлен.")
		return nil
	}
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var payload runPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("Некорректное тело запроса: %v", err)})
		return
	}

	// An empty side is filled in by the engine from bot.side.
	var side models.OrderSide
	if payload.Side != "" {
		parsed, err := models.ParseSide(payload.Side)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		side = parsed
	}
	mode, err := models.ParseExecutionMode(payload.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	runID, err := s.runner.Start(s.runCtx, engine.RunRequest{
		Instrument: payload.Symbol,
		Side:       side,
		Mode:       mode,
		LimitPrice: payload.LimitPrice,
		BaseVolume: payload.Lot,
		MaxSteps:   payload.Steps,
	})
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	case errors.Is(err, engine.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	case err != nil:
		s.logEntry().WithError(err).Error("Не удалось запустить серию.")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	s.logEntry().WithFields(map[string]interface{}{
		"run_id": runID,
		"symbol": payload.Symbol,
		"side":   side,
		"mode":   mode,
	}).Info("Серия запущена через API.")
	writeJSON(w, http.StatusAccepted, runAccepted{RunID: runID})
}

func (s *Server) handleRunResult(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	res, ok := s.runner.Result(runID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("Серия %s не найдена или ещё выполняется.", runID)})
		return
	}
	status := runStatus{RunID: res.RunID, State: res.State, Steps: res.Steps}
	if res.Err != nil {
		status.Error = res.Err.Error()
	}
	for _, err := range res.RecordErrors {
		status.RecordErrors = append(status.RecordErrors, err.Error())
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := s.table.Symbols()
	out := make([]symbolInfo, 0, len(symbols))
	for _, sym := range symbols {
		p := s.table.Lookup(sym)
		out = append(out, symbolInfo{Symbol: sym, StopOffset: p.StopOffset, TakeOffset: p.TakeOffset})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logEntry().WithError(err).Warn("Не удалось открыть WS соединение.")
		return
	}
	c := s.register(conn)
	go s.writeLoop(c)
	go s.readLoop(c)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
