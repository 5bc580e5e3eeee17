package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader carries a caller-supplied request id, and the assigned id
// on play mode responses.
const RequestIDHeader = "X-Request-Id"

// requestLogger tags each request with an id and logs it once it completes.
// An inbound X-Request-Id is kept; otherwise a new UUID is assigned. The id
// lives in the request context (middleware.GetReqID) and never in the
// request headers. echo also sets it on the response.
func requestLogger(log *slog.Logger, echo bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, id))
			if echo {
				w.Header().Set(RequestIDHeader, id)
			}

			// Keeps Flusher available to the proxy.
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.RequestURI(),
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
