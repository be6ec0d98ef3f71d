package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/event-booking/internal/lib/jwt"
	"github.com/Shivanand-hulikatti/event-booking/internal/lib/logger/sl"
)

type holderKey struct{}

// Authenticator requires a bearer token signed with secret and stores its
// subject as the request's holder.
func Authenticator(log *slog.Logger, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
				return
			}

			holderID, err := jwt.Subject(strings.TrimSpace(token), secret)
			if err != nil {
				log.Debug("token rejected", sl.Err(err))
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithHolder(r.Context(), holderID)))
		})
	}
}

// WithHolder returns a copy of ctx carrying holderID.
func WithHolder(ctx context.Context, holderID string) context.Context {
	return context.WithValue(ctx, holderKey{}, holderID)
}

// HolderFromContext returns the authenticated holder, if any.
func HolderFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(holderKey{}).(string)
	return id, ok && id != ""
}
