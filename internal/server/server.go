package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"internbot/internal/metrics"
	"internbot/internal/observability"
)

type Config struct {
	Port string
}

// Server exposes the webhook, metrics and health endpoints.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

func New(cfg Config, webhook http.Handler, collector *metrics.Collector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewHandler(webhook, collector, logger),
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routing table. A nil webhook leaves the route out,
// which is the case when updates arrive by long polling.
func NewHandler(webhook http.Handler, collector *metrics.Collector, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.Handle("/telegram/webhook", webhook)
	}
	if collector != nil {
		mux.Handle("/metrics", metrics.NewHandler(collector))
	}
	mux.HandleFunc("/health", health)
	return chain(mux, requestID(logger), countRequests(collector), recoverPanics(logger))
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type middleware func(http.Handler) http.Handler

// chain wraps h so that the first middleware runs outermost.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func requestID(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = observability.NewRequestID()
			}
			w.Header().Set("X-Request-ID", id)
			logger.Debug("request received",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.String("request_id", id),
			)
			next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
		})
	}
}

type responseStatus struct {
	http.ResponseWriter
	code int
}

func (rs *responseStatus) WriteHeader(code int) {
	rs.code = code
	rs.ResponseWriter.WriteHeader(code)
}

func countRequests(collector *metrics.Collector) middleware {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := &responseStatus{ResponseWriter: w, code: http.StatusOK}
			collector.IncRequests()
			next.ServeHTTP(rs, r)
			if rs.code >= http.StatusInternalServerError {
				collector.IncHTTPErrors()
			}
		})
	}
}

// recoverPanics answers 500 instead of dropping the connection.
func recoverPanics(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("http handler panicked",
						zap.String("path", r.URL.Path),
						zap.String("request_id", observability.RequestIDFromContext(r.Context())),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
