package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/djb258/client-sub001/internal/logger"
)

// requireKey rejects requests without the configured bearer token.
func (s *Server) requireKey(next http.Handler) http.Handler {
	want := []byte(s.apiKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLog attaches a request-scoped logger to the context and logs one
// line per request.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = middleware.GetReqID(r.Context())
		}
		log := s.log.With(logger.F("request_id", reqID))

		next.ServeHTTP(ww, r.WithContext(log.WithContext(r.Context())))

		log.Info("request",
			logger.F("method", r.Method),
			logger.F("path", r.URL.Path),
			logger.F("status", ww.Status()),
			logger.F("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}
