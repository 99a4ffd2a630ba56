package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/verdefield/agrocheck/internal/auth"
)

type contextKey string

const apiKeyContextKey contextKey = "apiKey"

// authMiddleware validates the X-API-Key header and enforces the key's
// per-minute rate limit (spec.md §6 / §7: AuthError -> 401, RateLimitError
// -> 429). Both checks are skipped when no auth store is configured,
// which is only valid for local/dev deployments.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authStore == nil {
			next.ServeHTTP(w, r)
			return
		}

		rawKey, err := auth.KeyFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		key, err := auth.Validate(r.Context(), s.authStore, rawKey, auth.PermissionRead)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if s.rateLimiter != nil && !s.rateLimiter.Allow(key.ID, key.RateLimitRPM) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
