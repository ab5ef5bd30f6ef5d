package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const contextKeyRequestID contextKey = "requestID"

// responseWriter records the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader keeps the first status code; later calls are ignored.
func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.written {
		return
	}
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
	rw.written = true
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Status returns the HTTP status code that was written.
func (rw *responseWriter) Status() int {
	return rw.statusCode
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(contextKeyRequestID).(string)
	return id
}

// withMiddleware wraps API handlers with common middleware
func (h *handler) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return h.metricsMiddleware(
		h.requestIDMiddleware(
			h.panicRecoveryMiddleware(
				h.rateLimitMiddleware(
					h.loggingMiddleware(next),
				),
			),
		),
	)
}

// requestIDMiddleware extracts or generates request IDs
func (h *handler) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		w.Header().Set("X-Request-Id", id)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// rateLimitMiddleware rejects requests once the shared token bucket is empty
func (h *handler) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			rateLimitRejects.Inc()
			w.Header().Set("Retry-After", "1")
			h.writeError(w, r, http.StatusTooManyRequests, errCodeRateLimited, "rate limit exceeded",
				"server.rateLimitMiddleware", map[string]interface{}{
					"limit": float64(h.limiter.Limit()),
					"burst": h.limiter.Burst(),
				})
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", int(h.limiter.Limit())))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(h.limiter.Tokens())))

		next.ServeHTTP(w, r)
	}
}

// panicRecoveryMiddleware turns a handler panic into a 500 response
func (h *handler) panicRecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				panicRecoveries.Inc()
				h.logger.Error("panic recovered",
					zap.String("op", "server.panicRecoveryMiddleware"),
					zap.String("requestID", requestID(r)),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.Any("panic", rec),
				)
				h.writeError(w, r, http.StatusInternalServerError, errCodeInternal, "internal server error",
					"server.panicRecoveryMiddleware", nil)
			}
		}()
		next.ServeHTTP(w, r)
	}
}

// loggingMiddleware logs request start and completion at debug level
func (h *handler) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		h.logger.Debug("request started",
			zap.String("op", "server.loggingMiddleware"),
			zap.String("requestID", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)

		next.ServeHTTP(rw, r)

		h.logger.Debug("request completed",
			zap.String("op", "server.loggingMiddleware"),
			zap.String("requestID", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
