package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// tenantStamp is placed in the context by Logger and filled in by the auth
// middleware once a principal is known, so the access log carries the tenant
// dimension even though authentication runs further down the chain.
type tenantStamp struct {
	id string
}

const tenantStampKey contextKey = "tenantStamp"

func stampTenant(ctx context.Context, tenantID string) {
	if s, ok := ctx.Value(tenantStampKey).(*tenantStamp); ok {
		s.id = tenantID
	}
}

// Logger emits one access-log line per request, tagged with a generated
// request id (also echoed in the X-Request-ID response header) and, for
// authenticated requests, the tenant id.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		stamp := &tenantStamp{}

		w.Header().Set("X-Request-ID", requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(
			context.WithValue(r.Context(), tenantStampKey, stamp)))

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if stamp.id != "" {
			attrs = append(attrs, "tenant_id", stamp.id)
		}
		slog.Info("request", attrs...)
	})
}
