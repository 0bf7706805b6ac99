package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/session"
	"github.com/FocuswithJustin/BibleSpeak/internal/cache"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/prefs"
	"github.com/FocuswithJustin/BibleSpeak/internal/server"
	"github.com/FocuswithJustin/BibleSpeak/internal/validation"
)

// DictionarySource loads the merged dictionary.
type DictionarySource func(ctx context.Context) (*dictionary.Dictionary, error)

// FileSource loads the two dictionary tiers from disk.
func FileSource(curatedPath, manualPath string) DictionarySource {
	return func(context.Context) (*dictionary.Dictionary, error) {
		return dictionary.Load(curatedPath, manualPath)
	}
}

const dictionaryKey = "merged"

// Server is the page host.
type Server struct {
	cfg     Config
	prefs   *prefs.Prefs
	dicts   *cache.Loader[string, *dictionary.Dictionary]
	pages   *cache.LRU[string, *session.Session]
	limiter *RateLimiter
	fetcher *http.Client
	router  chi.Router
	started time.Time

	closeOnce sync.Once
	stop      chan struct{}
}

// New creates a page host. p may be nil, in which case every page sees the
// default preferences.
func New(cfg Config, source DictionarySource, p *prefs.Prefs) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, err
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	s := &Server{
		cfg:     cfg,
		prefs:   p,
		started: time.Now(),
		stop:    make(chan struct{}),
	}
	s.dicts = cache.NewLoader(cache.Config[string, *dictionary.Dictionary]{
		MaxSize: 1,
		TTL:     cfg.DictionaryTTL,
	}, func(ctx context.Context, _ string) (*dictionary.Dictionary, error) {
		d, err := source(ctx)
		if err == nil {
			logging.Info("dictionary cached", "entries", d.Len(), "fingerprint", d.Fingerprint()[:12])
		}
		return d, err
	})
	s.pages = cache.NewLRU(cache.Config[string, *session.Session]{
		MaxSize: cfg.MaxPages,
		TTL:     cfg.PageTTL,
		OnEvict: func(id string, sess *session.Session) {
			sess.Close()
			logging.Debug("page discarded", "page_id", id)
		},
	})
	if cfg.RateLimit.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit)
	}
	s.fetcher = &http.Client{
		Timeout: cfg.FetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			_, err := validation.ValidatePageURL(req.URL.String(), cfg.AllowPrivateURLs)
			return err
		},
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(logging.CombinedMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(server.Timing)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", APIKeyHeader, logging.RequestIDHeader},
		ExposedHeaders: []string{"ETag", logging.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(server.SecurityHeaders(server.APICSPConfig()))
	r.Use(AuthMiddleware(s.cfg.Auth))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/dictionary", s.handleDictionary)
	r.Get("/prefs", s.handlePrefs)

	r.Route("/pages", func(r chi.Router) {
		r.With(server.LimitBody(validation.MaxPageSize)).Post("/", s.handleCreatePage)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleRenderPage)
			r.Delete("/", s.handleDeletePage)
			r.Get("/info", s.handlePageInfo)
			r.With(server.LimitBody(64<<10)).Post("/messages", s.handleMessage)
			r.With(server.LimitBody(64<<10)).Post("/click", s.handleClick)
			r.Get("/ws", s.handleWebSocket())
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes every page.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := s.httpServer(addr)
	go s.janitor(time.Minute)

	errCh := make(chan error, 1)
	go func() {
		logging.ServerStartup(addr,
			"max_pages", s.cfg.MaxPages,
			"auth", s.cfg.Auth.Enabled,
			"origins", len(s.cfg.AllowedOrigins))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// httpServer configures the listener. Errors from net/http itself go
// through the structured logger at warn level.
func (s *Server) httpServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logging.GetLogger().Handler(), slog.LevelWarn),
	}
}

// janitor expires idle pages and rate limiter buckets.
func (s *Server) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.pages.Sweep(); n > 0 {
				logging.Debug("expired idle pages", "count", n)
			}
			if s.limiter != nil {
				s.limiter.Sweep()
			}
		}
	}
}

// Close discards every page and stops background work.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.pages.Clear()
	})
}

// dictionary returns the cached dictionary, or nil when it cannot be
// loaded. Pages loaded without one are kept but never annotated.
func (s *Server) dictionary(ctx context.Context) *dictionary.Dictionary {
	d, err := s.dicts.Get(ctx, dictionaryKey)
	if err != nil {
		logging.ErrorContext(ctx, "dictionary load failed", "error", err)
		return nil
	}
	return d
}

// page looks up a live session.
func (s *Server) page(id string) (*session.Session, bool) {
	if validation.ValidatePageID(id) != nil {
		return nil, false
	}
	return s.pages.Get(id)
}
