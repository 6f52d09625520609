package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "eventboard/internal/delivery/http/helpers"
	"eventboard/internal/domain"
)

type contextKey struct{}

var requesterKey contextKey

// SetUserID returns a context carrying the authenticated requester ID.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, requesterKey, userID)
}

// UserIDFromContext returns the authenticated requester ID, if present and non-empty.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requesterKey).(string)
	return id, ok && id != ""
}

// bearerToken extracts the credentials from an Authorization header value.
// The scheme is matched case-insensitively. On failure it returns the message
// to send back.
func bearerToken(header string) (token, problem string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization format"
	}
	token = strings.TrimSpace(rest)
	if token == "" {
		return "", "missing token"
	}
	return token, ""
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the
// requester ID in the request context. Missing or invalid tokens get a 401.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	unauthorized := func(w http.ResponseWriter, message string) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="eventboard"`)
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, message)
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				unauthorized(w, problem)
				return
			}
			requesterID, err := verifier.Verify(token)
			if err != nil || requesterID == "" {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				unauthorized(w, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetUserID(r.Context(), requesterID)))
		}
	}
}
