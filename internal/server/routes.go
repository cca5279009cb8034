package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jackzampolin/pageindex/internal/svcctx"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// withServices wraps a handler to enrich the request context with services.
// Each request gets its own copy with a logger tagged by request id.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID(r)
		w.Header().Set(RequestIDHeader, reqID)

		svcs := *s.services
		svcs.Options = s.options.Load()
		svcs.Logger = s.logger.With("request_id", reqID, "method", r.Method, "path", r.URL.Path)

		next.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), &svcs)))
	})
}

// requestID returns the caller's X-Request-ID if it is a UUID, otherwise a new one.
func requestID(r *http.Request) string {
	if id, err := uuid.Parse(r.Header.Get(RequestIDHeader)); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the worker pool isn't running.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.pool.Running() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"detail":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
