// Package session holds the state of one loaded page: its document, the
// dictionary fetched for it, the names found at load, the names currently
// annotated and the extension flag read at load.
//
// A Session is created when the page finishes loading, is changed only by
// annotation commands, and is discarded on navigation. All methods are safe
// for concurrent use; commands are applied one at a time.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/FocuswithJustin/BibleSpeak/core/annotate"
	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/dom"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/core/scanner"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/messaging"
	"github.com/FocuswithJustin/BibleSpeak/internal/overlay"
	"github.com/FocuswithJustin/BibleSpeak/internal/prefs"
)

// Options configures Load.
type Options struct {
	// URL is the page address. Its root domain keys toast suppression.
	URL string
	// Prefs holds the persisted flags. Nil means defaults: extension on,
	// no suppressed domains.
	Prefs *prefs.Prefs
	// AutoDismiss is how long the toast stays up; zero keeps it.
	AutoDismiss time.Duration
	// Overlay options, for tests.
	Overlay []overlay.Option
}

// Session is the state object of one page.
type Session struct {
	mu sync.Mutex

	doc    *html.Node
	body   *html.Node
	url    string
	domain string

	dict    *dictionary.Dictionary
	engine  *annotate.Engine
	prefs   *prefs.Prefs
	overlay *overlay.Manager

	found            []string
	enabled          annotate.NameSet
	extensionEnabled bool
	scanned          bool
}

// Load builds the session for doc. A nil dict means the dictionary could
// not be loaded: the page is kept but nothing is scanned or annotated.
// Documents without a body are accepted and left alone.
func Load(ctx context.Context, doc *html.Node, dict *dictionary.Dictionary, opts Options) *Session {
	s := &Session{
		doc:              doc,
		url:              opts.URL,
		domain:           prefs.RootDomain(opts.URL),
		dict:             dict,
		prefs:            opts.Prefs,
		enabled:          annotate.NameSet{},
		found:            []string{},
		extensionEnabled: true,
	}

	body, err := dom.Body(doc)
	if err != nil {
		logging.DebugContext(ctx, "page has no body, skipping", "url", opts.URL)
		return s
	}
	s.body = body
	s.overlay = overlay.NewManager(body, &s.mu, opts.AutoDismiss, opts.Overlay...)

	if s.prefs != nil {
		enabled, err := s.prefs.ExtensionEnabled(ctx)
		if err != nil {
			logging.WarnContext(ctx, "reading extension flag failed, assuming enabled", "error", err)
		}
		s.extensionEnabled = enabled
	}
	if dict == nil {
		logging.WarnContext(ctx, "dictionary unavailable, annotation disabled for page", "url", opts.URL)
		return s
	}
	s.engine = annotate.New(dict, overlay.Skip)

	if !s.extensionEnabled {
		return s
	}
	s.scan(ctx)
	s.offerToast(ctx)
	return s
}

// scan computes the found names once per page.
func (s *Session) scan(ctx context.Context) {
	if s.scanned || s.engine == nil {
		return
	}
	start := time.Now()
	text := dom.Snapshot(s.body, overlay.Skip)
	s.found = scanner.New(s.dict).Scan(text)
	s.scanned = true
	logging.ScanComplete(ctx, len(s.found), time.Since(start), "url", s.url)
}

func (s *Session) offerToast(ctx context.Context) {
	if len(s.found) == 0 {
		return
	}
	if s.prefs != nil {
		ok, err := s.prefs.ToastAllowed(ctx, s.domain)
		if err != nil {
			logging.WarnContext(ctx, "reading toast preferences failed", "error", err)
		}
		if !ok {
			return
		}
	}
	s.overlay.ShowToast(len(s.found), s.domain)
}

// Available reports whether the page can be annotated at all.
func (s *Session) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available()
}

func (s *Session) available() bool {
	return s.body != nil && s.engine != nil
}

// URL returns the page address given at load.
func (s *Session) URL() string {
	return s.url
}

// Found returns the names found at load.
func (s *Session) Found() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.found)
}

// Enabled returns the currently annotated names in display order.
func (s *Session) Enabled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled.Sorted()
}

// Overlays returns the ids of the overlays currently in the page.
func (s *Session) Overlays() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	if s.overlay == nil {
		return ids
	}
	for _, id := range overlay.IDs {
		if s.overlay.Visible(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ExtensionEnabled reports the flag as the page currently sees it.
func (s *Session) ExtensionEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extensionEnabled
}

// Render serialises the current document.
func (s *Session) Render() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.Render(s.doc)
}

// Close stops pending overlay timers. The session must not be used after.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlay != nil {
		s.overlay.Close()
	}
}

// Handle implements messaging.Responder.
func (s *Session) Handle(ctx context.Context, req messaging.Request) (messaging.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Action {
	case messaging.GetFoundNames:
		resp := s.state()
		if s.dict != nil {
			resp.Data = s.dict.Subset(s.found)
		}
		return resp, nil

	case messaging.GetExtensionState:
		return messaging.Response{IsExtensionEnabled: s.extensionEnabled}, nil

	case messaging.EnableAll:
		if err := s.requireActive(); err != nil {
			return s.state(), err
		}
		s.enabled = s.engine.Enable(s.body, s.found, s.enabled)
		s.afterChange()

	case messaging.EnableSelected:
		if err := s.requireActive(); err != nil {
			return s.state(), err
		}
		s.enabled = s.engine.Enable(s.body, s.onlyFound(req.Names), s.enabled)
		s.afterChange()

	case messaging.UpdateSelected:
		if err := s.requireActive(); err != nil {
			return s.state(), err
		}
		var plan annotate.Plan
		s.enabled, plan = s.engine.Reconcile(s.body, s.onlyFound(req.Names), s.enabled)
		logging.DebugContext(ctx, "selection reconciled", "disabled", plan.Disable, "enabled", plan.Enable)
		s.overlay.HideMenu()
		s.afterChange()

	case messaging.DisableAll:
		if s.available() {
			s.enabled = s.engine.Disable(s.body, nil, s.enabled)
			s.afterChange()
		}

	case messaging.ToggleExtension:
		if err := s.toggle(ctx, req.Enabled); err != nil {
			return s.state(), err
		}

	case messaging.Dismiss:
		if s.overlay != nil {
			s.overlay.Dismiss()
		}

	case messaging.DisableToastForDomain:
		if s.prefs != nil && s.domain != "" {
			if _, err := s.prefs.DisableToastForDomain(ctx, s.domain); err != nil {
				return s.state(), err
			}
		}
		if s.overlay != nil {
			s.overlay.HideToast()
		}

	default:
		logging.DebugContext(ctx, "ignoring unknown command", "action", req.Action.String())
	}
	return s.state(), nil
}

func (s *Session) state() messaging.Response {
	return messaging.Response{
		Names:              slices.Clone(s.found),
		EnabledNames:       s.enabled.Sorted(),
		IsExtensionEnabled: s.extensionEnabled,
	}
}

func (s *Session) requireActive() error {
	if !s.extensionEnabled {
		return errors.ErrDisabled
	}
	if !s.available() {
		return &errors.UnsupportedError{Feature: "annotation", Reason: "page cannot be annotated", Err: errors.ErrUnsupported}
	}
	return nil
}

// onlyFound keeps the names that were found on the page, so the enabled
// set never leaves the found set.
func (s *Session) onlyFound(names []string) []string {
	found := annotate.NewNameSet(s.found...)
	out := make([]string, 0, len(names))
	for _, n := range names {
		if found.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Session) afterChange() {
	if s.overlay == nil {
		return
	}
	s.overlay.HideToast()
	s.overlay.UpdateBubble(len(s.enabled))
}

// toggle persists the extension flag. Turning it off removes every
// annotation and overlay from the page; turning it on scans the page if
// that was skipped at load.
func (s *Session) toggle(ctx context.Context, want *bool) error {
	next := !s.extensionEnabled
	if want != nil {
		next = *want
	}
	if s.prefs != nil {
		if err := s.prefs.SetExtensionEnabled(ctx, next); err != nil {
			return err
		}
	}
	s.extensionEnabled = next

	if !s.available() {
		return nil
	}
	if !next {
		s.enabled = s.engine.Disable(s.body, nil, s.enabled)
		s.overlay.Dismiss()
		return nil
	}
	s.scan(ctx)
	return nil
}

// ShowMenu opens the name selection menu.
func (s *Session) ShowMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlay == nil || !s.extensionEnabled {
		return
	}
	s.overlay.ShowMenu(s.found, s.enabled.Has)
}

// Click performs the overlay button action named by a data-command
// attribute, as if the user pressed it in the page.
func (s *Session) Click(ctx context.Context, action string, names []string) (messaging.Response, error) {
	if action == overlay.ActionShowMenu {
		s.ShowMenu()
		return s.Handle(ctx, messaging.Request{Action: messaging.GetExtensionState})
	}
	cmd := messaging.ParseCommand(action)
	if cmd == messaging.CommandUnknown {
		return messaging.Response{}, errors.NewValidation("action", "unknown overlay action "+action)
	}
	return s.Handle(ctx, messaging.Request{Action: cmd, Names: names})
}
