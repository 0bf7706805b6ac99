package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/FocuswithJustin/BibleSpeak/core/dom"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/core/session"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/messaging"
	"github.com/FocuswithJustin/BibleSpeak/internal/server"
	"github.com/FocuswithJustin/BibleSpeak/internal/validation"
)

// CreatePageRequest is the JSON form of POST /pages. When HTML is empty
// the host fetches URL itself.
type CreatePageRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// PageInfo describes a live page.
type PageInfo struct {
	ID                 string   `json:"id"`
	URL                string   `json:"url,omitempty"`
	Available          bool     `json:"available"`
	IsExtensionEnabled bool     `json:"isExtensionEnabled"`
	Names              []string `json:"names"`
	EnabledNames       []string `json:"enabledNames"`
	Overlays           []string `json:"overlays,omitempty"`
}

// ClickRequest presses an overlay button.
type ClickRequest struct {
	Action string   `json:"action"`
	Names  []string `json:"names,omitempty"`
}

func pageInfo(id string, sess *session.Session) PageInfo {
	return PageInfo{
		ID:                 id,
		URL:                sess.URL(),
		Available:          sess.Available(),
		IsExtensionEnabled: sess.ExtensionEnabled(),
		Names:              sess.Found(),
		EnabledNames:       sess.Enabled(),
		Overlays:           sess.Overlays(),
	}
}

// handleCreatePage accepts text/html (page URL in the ?url= query) or a
// JSON CreatePageRequest.
func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		doc     *html.Node
		pageURL string
		err     error
	)
	contentType := r.Header.Get("Content-Type")
	switch {
	case server.ValidateContentType(contentType, "text/html", "application/xhtml+xml"):
		if pageURL, err = pageURLParam(r.URL.Query().Get("url")); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
		doc, err = dom.Parse(r.Body)

	case server.ValidateContentType(contentType, "application/json"):
		var req CreatePageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBodyError(w, err)
			return
		}
		if req.HTML != "" {
			if pageURL, err = pageURLParam(req.URL); err != nil {
				respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
				return
			}
			doc, err = dom.Parse(strings.NewReader(req.HTML))
			break
		}
		u, verr := validation.ValidatePageURL(req.URL, s.cfg.AllowPrivateURLs)
		if verr != nil {
			logging.SecurityEvent("page_url_rejected", "api", "url", req.URL, "error", verr)
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", verr.Error())
			return
		}
		pageURL = u.String()
		doc, err = s.fetchPage(ctx, u)
		if err != nil {
			logging.WarnContext(ctx, "page fetch failed", "url", pageURL, "error", err)
			respondError(w, http.StatusBadGateway, "FETCH_FAILED", err.Error())
			return
		}

	default:
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Content-Type must be text/html or application/json")
		return
	}
	if err != nil {
		respondBodyError(w, err)
		return
	}

	id := uuid.NewString()
	ctx = logging.WithPageID(ctx, id)
	sess := session.Load(ctx, doc, s.dictionary(ctx), session.Options{
		URL:         pageURL,
		Prefs:       s.prefs,
		AutoDismiss: s.cfg.AutoDismiss,
		Overlay:     s.cfg.Overlay,
	})
	s.pages.Put(id, sess)
	logging.InfoContext(ctx, "page loaded", "url", pageURL, "found", len(sess.Found()))

	w.Header().Set("Location", "/pages/"+id)
	respond(w, http.StatusCreated, pageInfo(id, sess))
}

// pageURLParam checks a page URL supplied alongside inline HTML. It is
// never fetched, so private hosts are fine.
func pageURLParam(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	u, err := validation.ValidatePageURL(raw, true)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func respondBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
}

// fetchPage downloads and parses an HTML page.
func (s *Server) fetchPage(ctx context.Context, u *url.URL) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "BibleSpeak/"+s.cfg.Version)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, errors.NewIO("fetch", u.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" &&
		!server.ValidateContentType(ct, "text/html", "application/xhtml+xml") {
		return nil, errors.NewUnsupported("page content type", ct)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, validation.MaxPageSize+1))
	if err != nil {
		return nil, errors.NewIO("read", u.String(), err)
	}
	if len(body) > validation.MaxPageSize {
		return nil, fmt.Errorf("fetch %s: page exceeds %d bytes", u, validation.MaxPageSize)
	}
	return dom.Parse(strings.NewReader(string(body)))
}

// withPage resolves the {id} parameter, answering 404 for unknown pages.
func (s *Server) withPage(w http.ResponseWriter, r *http.Request) (string, *session.Session, context.Context, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.page(id)
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "page not found: "+id)
		return "", nil, nil, false
	}
	return id, sess, logging.WithPageID(r.Context(), id), true
}

// handleRenderPage serves the current document. Page scripts are blocked
// by the page CSP.
func (s *Server) handleRenderPage(w http.ResponseWriter, r *http.Request) {
	_, sess, ctx, ok := s.withPage(w, r)
	if !ok {
		return
	}
	out, err := sess.Render()
	if err != nil {
		respondErr(w, r.WithContext(ctx), err)
		return
	}
	w.Header().Set("Content-Security-Policy", server.PageCSPConfig().BuildCSPHeader())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out)
}

func (s *Server) handlePageInfo(w http.ResponseWriter, r *http.Request) {
	id, sess, _, ok := s.withPage(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, pageInfo(id, sess))
}

// handleDeletePage discards the session, as navigating away does.
func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if validation.ValidatePageID(id) != nil || !s.pages.Remove(id) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "page not found: "+id)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id, "status": "closed"})
}

// handleMessage performs one request/response exchange.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	_, sess, ctx, ok := s.withPage(w, r)
	if !ok {
		return
	}
	var req messaging.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBodyError(w, err)
		return
	}
	resp, err := sess.Handle(ctx, req)
	if err != nil {
		respondErr(w, r.WithContext(ctx), err)
		return
	}
	resp.ID = req.ID
	respond(w, http.StatusOK, resp)
}

// handleClick presses an overlay button by its data-command action.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	_, sess, ctx, ok := s.withPage(w, r)
	if !ok {
		return
	}
	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBodyError(w, err)
		return
	}
	resp, err := sess.Click(ctx, req.Action, req.Names)
	if err != nil {
		respondErr(w, r.WithContext(ctx), err)
		return
	}
	respond(w, http.StatusOK, resp)
}

func (s *Server) handleWebSocket() http.HandlerFunc {
	cfg := s.cfg.WebSocket
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = s.cfg.AllowedOrigins
	}
	return messaging.WebSocketHandler(cfg, func(r *http.Request) messaging.Responder {
		sess, ok := s.page(chi.URLParam(r, "id"))
		if !ok {
			return nil
		}
		return sess
	})
}
