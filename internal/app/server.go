// file: internal/app/server.go

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credit-agent/internal/pipeline"
)

const maxRequestBody = 1 << 20 // 1MB

// Serve runs the evaluation HTTP API until the context is cancelled or a
// termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/evaluate", a.instrument("/evaluate", a.handleEvaluate))
	mux.HandleFunc("/healthz", a.instrument("/healthz", a.handleHealth))

	server := &http.Server{
		Addr:         a.config.Server.Address,
		Handler:      mux,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if a.metrics != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(a.config.Metrics.Path,
			promhttp.HandlerFor(a.metrics.GetRegistry(), promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:    a.config.Metrics.Address,
			Handler: metricsMux,
		}
		go func() {
			a.logger.Info("metrics server listening", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("evaluation server listening",
			"address", server.Addr,
			"signatureVerification", a.security.CounterpartyKeyAvailable())
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownGracePeriod)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

// handleEvaluate accepts a credit application and returns the evaluation
// record. Invalid input yields 400; an evaluation always yields 200, the
// verdict lives inside the record.
func (a *App) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var application pipeline.CreditApplication
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&application); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))
		return
	}

	record, err := a.Evaluate(r.Context(), &application)
	if err != nil {
		var inputErr *pipeline.InputError
		if errors.As(err, &inputErr) {
			writeError(w, http.StatusBadRequest, inputErr.Error())
			return
		}
		a.logger.Error("evaluation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                "ok",
		"signatureVerification": a.security.CounterpartyKeyAvailable(),
	})
}

// instrument wraps a handler with request metrics and access logging.
func (a *App) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)

		duration := time.Since(start)
		if a.metrics != nil {
			a.metrics.IncHTTPInboundRequestsTotal(path, r.Method, strconv.Itoa(recorder.status))
			a.metrics.ObserveHTTPRequestDuration(path, r.Method, duration.Seconds())
		}
		a.logger.Debug("handled request",
			"path", path,
			"method", r.Method,
			"status", recorder.status,
			"duration", duration.String())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
