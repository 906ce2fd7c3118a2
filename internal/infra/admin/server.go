package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ddigate/internal/infra/telemetry"
)

// Server is the admin listener: index, Prometheus text exposition, JSON
// metrics snapshot and the derived health endpoint. It is not part of the
// RPC protocol and binds a separate port.
type Server struct {
	collector *telemetry.Collector
	health    *telemetry.Health
	logger    *zap.Logger
}

func NewServer(collector *telemetry.Collector, health *telemetry.Health, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		collector: collector,
		health:    health,
		logger:    logger.Named("admin"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/metrics", promhttp.HandlerFor(s.collector.Gatherer(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/metrics/json", s.handleMetricsJSON)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("admin server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("admin server shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("admin server stopped")
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "ddigate",
		"uptime_seconds": int64(s.collector.Uptime().Seconds()),
		"endpoints": []string{
			"/metrics",
			"/metrics/json",
			"/health",
		},
	})
}

func (s *Server) handleMetricsJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	report := s.health.Report()
	status := http.StatusOK
	if report.Status == telemetry.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
