// Package server implements the HTTP server that exposes the tutor REST API:
// PDF upload and question answering, the conversational lesson modes, the
// quiz cycle, and the operational endpoints (health, readiness, metrics).
// The server is started by the `aitutor serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ECampbell37/ai-tutor-go/internal/logging"
	"github.com/ECampbell37/ai-tutor-go/internal/rag"
	"github.com/ECampbell37/ai-tutor-go/internal/session"
	"github.com/ECampbell37/ai-tutor-go/internal/tutor"
)

// userHeader carries the caller's user identifier. Every tutor and PDF
// route requires it; per-user state is keyed on its value.
const userHeader = "X-User-ID"

// New constructs a Server from the provided services and config.
func New(pdf PDFService, tut TutorService, cfg *Config) (*Server, error) {
	if pdf == nil {
		return nil, fmt.Errorf("server: pdf service must not be nil")
	}
	if tut == nil {
		return nil, fmt.Errorf("server: tutor service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full generation round trip.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	s := &Server{
		pdf:     pdf,
		tutor:   tut,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry, pdf.Sessions),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: TUTOR_API_KEY not set, API authentication is disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/pdf/upload", s.route("pdf_upload", s.handleUpload))
	mux.Handle("POST /api/pdf/ask", s.route("pdf_ask", s.handleAsk))
	mux.Handle("POST /api/pdf/clear", s.route("pdf_clear", s.handleClear))
	mux.Handle("GET /api/intro", s.route("intro", s.handleIntro))
	mux.Handle("POST /api/chat", s.route("chat", s.handleChat))
	mux.Handle("POST /api/quiz/start", s.route("quiz_start", s.handleQuizStart))
	mux.Handle("POST /api/quiz/submit", s.route("quiz_submit", s.handleQuizSubmit))
	mux.Handle("GET /api/continue", s.route("continue", s.handleContinue))
	mux.Handle("POST /api/reset", s.route("reset", s.handleReset))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = rl.middleware(handler)
	handler = corsMiddleware(cfg.AllowedOrigins, handler)
	handler = requestLogger(s.log, handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// route wraps an API handler with bearer auth and metrics instrumentation.
// The name becomes the "handler" metric label.
func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return authMiddleware(s.cfg.APIKey, s.instrument(name, h))
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// userID extracts the required X-User-ID header. An empty return means the
// response has already been written.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) string {
	user := strings.TrimSpace(r.Header.Get(userHeader))
	if user == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: userHeader + " header is required"})
	}
	return user
}

// decodeJSON decodes the request body into v. A false return means the
// error response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to an HTTP status code and writes the
// JSON error body. Validation problems are the caller's fault; everything
// unrecognized is treated as an upstream model or embedding failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, rag.ErrInvalidArgument), errors.Is(err, tutor.ErrUnsupportedMode):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrNoDocument), errors.Is(err, tutor.ErrNoQuiz):
		status = http.StatusConflict
	case errors.Is(err, session.ErrDocumentProcessing):
		status = http.StatusUnprocessableEntity
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
