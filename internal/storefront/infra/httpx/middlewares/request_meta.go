package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/storefront/internal/pkg/requestmeta"
)

// AttachRequestMeta copies the chi request id and the idempotency key header
// into the request context and onto the active span. It must run after
// middleware.RequestID.
func AttachRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(requestmeta.HeaderXIdempotencyKey)

		ctx := requestmeta.WithRequestID(r.Context(), requestID)
		if idempotencyKey != "" {
			ctx = requestmeta.WithIdempotencyKey(ctx, idempotencyKey)
		}

		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String("http.request_id", requestID))
		if idempotencyKey != "" {
			span.SetAttributes(attribute.String("http.idempotency_key", idempotencyKey))
		}

		if requestID != "" {
			w.Header().Set(requestmeta.HeaderXRequestID, requestID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
