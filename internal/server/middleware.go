package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"task-tracker/internal/logger"
)

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.w.WriteHeader(statusCode)
}

// requestLogger присваивает запросу id и пишет строку лога по завершении.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rr := &responseRecorder{w: w}
		logger.Debug(ctx, "request started", "http.req.method", r.Method, "http.req.path", r.URL.Path)
		defer func() {
			logger.Info(ctx, "request complete",
				"http.req.method", r.Method,
				"http.req.path", r.URL.Path,
				"http.resp.status", rr.status,
				"http.resp.bytes", rr.b,
				"http.resp.took_ms", time.Since(start).Milliseconds(),
			)
		}()

		next.ServeHTTP(rr, r.WithContext(ctx))
	})
}
