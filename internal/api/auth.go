package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// APIKeyHeader carries the host's API key.
const APIKeyHeader = "X-API-Key"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	APIKey  string
}

// ValidateAuthConfig validates the authentication configuration.
func ValidateAuthConfig(cfg AuthConfig) error {
	if cfg.Enabled && cfg.APIKey == "" {
		return fmt.Errorf("API key is required when authentication is enabled")
	}
	if cfg.Enabled && len(cfg.APIKey) < 16 {
		return fmt.Errorf("API key must be at least 16 characters (got %d)", len(cfg.APIKey))
	}
	return nil
}

// AuthMiddleware requires the X-API-Key header when auth is enabled. The
// root and health endpoints stay public. Browsers cannot set headers on
// websocket handshakes, so extension popups need auth disabled or a proxy
// that adds the header.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				logging.SecurityEvent("unauthorized_request", "auth",
					"path", r.URL.Path,
					"reason", "missing API key")
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing X-API-Key header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
				logging.SecurityEvent("unauthorized_request", "auth",
					"path", r.URL.Path,
					"reason", "invalid API key")
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isPublicEndpoint(path string) bool {
	return path == "/" || path == "/healthz"
}
