// Package api serves loaded pages over HTTP: it is the page context that
// popups and overlay buttons talk to.
//
// A page is loaded by POST /pages, which parses the document, scans it and
// keeps the resulting session under a random id until the page is deleted,
// evicted or idles out. Commands reach the session as single JSON
// exchanges or over a websocket.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/messaging"
	"github.com/FocuswithJustin/BibleSpeak/internal/overlay"
)

// Config holds page host configuration.
type Config struct {
	Version        string
	AllowedOrigins []string // CORS and websocket origins (empty = same-origin and non-browser clients only)
	MaxPages       int
	PageTTL        time.Duration // idle time before a page is discarded (0 = never)
	DictionaryTTL  time.Duration // how long a loaded dictionary is reused (0 = forever)
	AutoDismiss    time.Duration
	// AllowPrivateURLs lets POST /pages fetch loopback and private
	// addresses.
	AllowPrivateURLs bool
	FetchTimeout     time.Duration
	RateLimit        RateLimiterConfig // RequestsPerMinute 0 = disabled
	Auth             AuthConfig
	WebSocket        messaging.WebSocketConfig
	// Overlay options applied to every page, for tests.
	Overlay []overlay.Option
}

// DefaultConfig returns the host defaults.
func DefaultConfig() Config {
	return Config{
		Version:       "dev",
		MaxPages:      256,
		PageTTL:       30 * time.Minute,
		DictionaryTTL: 10 * time.Minute,
		AutoDismiss:   10 * time.Second,
		FetchTimeout:  15 * time.Second,
		WebSocket:     messaging.DefaultWebSocketConfig(),
	}
}

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// respondErr maps domain errors to status codes.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var ve *errors.ValidationError
	switch {
	case errors.Is(err, errors.ErrDisabled):
		respondError(w, http.StatusConflict, "EXTENSION_DISABLED", err.Error())
	case errors.Is(err, errors.ErrUnsupported):
		respondError(w, http.StatusUnprocessableEntity, "UNSUPPORTED", err.Error())
	case errors.Is(err, errors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &ve), errors.Is(err, errors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		logging.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
