package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/gophsync/internal/server/handlers"
)

// TokenQueryParam передает токен при WebSocket handshake, где браузер не задает заголовки
const TokenQueryParam = "access_token"

// AuthMiddleware кладет владельца записей в контекст запроса.
// Без секрета все запросы принадлежат handlers.DefaultOwner; с секретом
// требуется Bearer токен (заголовок Authorization или ?access_token=).
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !jwtConfig.Enabled() {
				next.ServeHTTP(w, r.WithContext(handlers.WithOwner(r.Context(), handlers.DefaultOwner)))
				return
			}

			tokenString, ok := bearerToken(r)
			if !ok {
				logger.Warn("Missing or malformed credentials",
					"path", r.URL.Path,
					"correlation_id", handlers.GetCorrelationID(r.Context()),
				)
				unauthorized(w, "missing token")
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, tokenString)
			if err != nil {
				logger.Warn("Invalid access token",
					"error", err,
					"correlation_id", handlers.GetCorrelationID(r.Context()),
				)
				unauthorized(w, "invalid token")
				return
			}

			logger.Debug("Request authenticated", "owner", claims.Subject)
			next.ServeHTTP(w, r.WithContext(handlers.WithOwner(r.Context(), claims.Subject)))
		})
	}
}

// bearerToken извлекает токен из заголовка "Authorization: Bearer <token>" или query параметра
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if token := r.URL.Query().Get(TokenQueryParam); token != "" {
		return token, true
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="gophsync"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized: ` + reason + `"}`))
}
