package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

// PatientIDHeader is set by the auth middleware once a bearer token is verified.
const PatientIDHeader = "X-Patient-Id"

// responseRecorder remembers what the handler sent so it can be logged.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(p []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(p)
	rr.written += int64(n)
	return n, err
}

func (rr *responseRecorder) Unwrap() http.ResponseWriter { return rr.ResponseWriter }

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelWarn
	case status == 0:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// WithAccessLog writes one structured line per request.
func WithAccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int64("bytes", rec.written),
				slog.Int64("duration_ms", time.Since(began).Milliseconds()),
			}
			if patient := r.Header.Get(PatientIDHeader); patient != "" {
				attrs = append(attrs, slog.String("patient_id", patient))
			}
			logger.LogAttrs(r.Context(), accessLevel(rec.status), "http request", attrs...)
		})
	}
}
