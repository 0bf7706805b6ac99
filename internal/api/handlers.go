package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// HealthInfo is the health check response.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Pages   int    `json:"pages"`
}

// PrefsInfo reports the persisted preferences.
type PrefsInfo struct {
	IsExtensionEnabled   bool     `json:"isExtensionEnabled"`
	ToastDisabledDomains []string `json:"toastDisabledDomains"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "BibleSpeak page host",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /healthz",
			"GET /dictionary",
			"GET /prefs",
			"POST /pages",
			"GET /pages/:id",
			"GET /pages/:id/info",
			"DELETE /pages/:id",
			"POST /pages/:id/messages",
			"POST /pages/:id/click",
			"WS /pages/:id/ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, HealthInfo{
		Status:  "ok",
		Version: s.cfg.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Pages:   s.pages.Len(),
	})
}

// handleDictionary serves the merged dictionary in its source format, with
// the content fingerprint as ETag.
func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	dict, err := s.dicts.Get(r.Context(), dictionaryKey)
	if err != nil {
		logging.ErrorContext(r.Context(), "dictionary load failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "DICTIONARY_UNAVAILABLE", "dictionary could not be loaded")
		return
	}
	etag := `"` + dict.Fingerprint() + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	data, err := dict.MarshalJSON()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	info := PrefsInfo{IsExtensionEnabled: true, ToastDisabledDomains: []string{}}
	if s.prefs != nil {
		enabled, err := s.prefs.ExtensionEnabled(r.Context())
		if err != nil {
			respondErr(w, r, err)
			return
		}
		domains, err := s.prefs.ToastDisabledDomains(r.Context())
		if err != nil {
			respondErr(w, r, err)
			return
		}
		info.IsExtensionEnabled = enabled
		info.ToastDisabledDomains = append(info.ToastDisabledDomains, domains...)
	}
	respond(w, http.StatusOK, info)
}
