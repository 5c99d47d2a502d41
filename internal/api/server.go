// Package api exposes the classifier over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"token-risk-lab/internal/audit"
	"token-risk-lab/internal/classifier"
	"token-risk-lab/internal/observability"
)

// maxBodyBytes bounds classify request bodies.
const maxBodyBytes = 1 << 20

type ctxKey int

const requestIDKey ctxKey = iota

// Server routes API requests to the classifier engine and the verdict recorder.
type Server struct {
	engine   *classifier.Engine
	recorder *audit.Recorder
	logger   *zap.Logger
	router   chi.Router
}

// NewServer creates a Server. recorder may be nil to disable persistence.
func NewServer(engine *classifier.Engine, recorder *audit.Recorder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		recorder: recorder,
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(s.requestID)
	s.router.Use(s.instrument)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", observability.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Post("/classify/observation", s.handleClassifyObservation)
		r.Get("/model", s.handleModel)
		r.Get("/stats", s.handleStats)
		r.Get("/verdicts/{id}", s.handleGetVerdict)
		r.Get("/tokens/{mint}/verdicts", s.handleTokenVerdicts)
		r.Get("/ws", s.handleWS)
	})
}

// requestID propagates X-Request-ID or assigns a fresh one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// instrument records request count and latency per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordAPIRequest(route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("API error", zap.Error(err), zap.Int("status", status),
			zap.String("request_id", requestIDFrom(r.Context())))
	} else {
		s.logger.Debug("API request rejected", zap.Error(err), zap.Int("status", status),
			zap.String("request_id", requestIDFrom(r.Context())))
	}
	s.respondJSON(w, status, map[string]string{
		"error":     err.Error(),
		"requestId": requestIDFrom(r.Context()),
	})
}
