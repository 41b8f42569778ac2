package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// correlationHeader carries a caller-supplied request id across the
// service boundary. The reminder scheduler sets one per cycle so a
// manual dispatch can be traced from trigger to delivery logs.
const correlationHeader = "X-Correlation-ID"

type ctxKey int

const correlationKey ctxKey = iota

// CorrelationID accepts the caller's X-Correlation-ID or mints a UUID
// when none is given, stores it on the request context, and echoes it in
// the response so the caller can grep the server logs for their request.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), correlationKey, id),
		))
	})
}

// GetCorrelationID returns the id stored by CorrelationID, or "" when
// the middleware is not in the chain.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}
