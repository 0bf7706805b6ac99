// Package overlay renders the extension's own UI inside a page: the
// "names found" toast, the name selection menu and the floating bubble that
// counts live annotations.
//
// Every overlay element carries a fixed id. Showing an overlay first removes
// any element with the same id, and every user action cancels pending
// auto-dismiss timers, so overlapping requests never leave duplicates behind.
package overlay

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/BibleSpeak/core/dom"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// Overlay element ids.
const (
	ToastID  = "bible-speak-toast"
	MenuID   = "bible-speak-menu"
	BubbleID = "bible-speak-bubble"
)

// IDs lists every overlay id.
var IDs = []string{ToastID, MenuID, BubbleID}

// Skip is the traversal filter that leaves overlay subtrees out of scanning
// and annotation.
var Skip = dom.SkipIDs(IDs...)

// Actions carried by overlay buttons in their data-command attribute.
const (
	ActionEnableAll        = "enableAll"
	ActionShowMenu         = "showMenu"
	ActionUpdateSelected   = "updateSelected"
	ActionDisableForDomain = "disableToastForDomain"
	ActionDismiss          = "dismiss"
)

// Timer is the part of *time.Timer the manager needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manager owns the overlay elements of one page body.
//
// The Locker passed to NewManager must be the lock guarding the document;
// callers hold it while calling Manager methods, and timer callbacks acquire
// it before touching the tree.
type Manager struct {
	body        *html.Node
	lock        sync.Locker
	autoDismiss time.Duration
	after       AfterFunc

	timers map[string]Timer
	gen    map[string]uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithAfterFunc replaces the timer source.
func WithAfterFunc(f AfterFunc) Option {
	return func(m *Manager) { m.after = f }
}

// NewManager returns a Manager for body. A zero autoDismiss keeps the toast
// until it is dismissed.
func NewManager(body *html.Node, lock sync.Locker, autoDismiss time.Duration, opts ...Option) *Manager {
	m := &Manager{
		body:        body,
		lock:        lock,
		autoDismiss: autoDismiss,
		after:       realAfterFunc,
		timers:      make(map[string]Timer),
		gen:         make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Visible reports whether the overlay with id is in the document.
func (m *Manager) Visible(id string) bool {
	return dom.FindByID(m.body, id) != nil
}

// ShowToast offers to annotate the names found on the page. domain is the
// root domain named by the "don't show again" button; it may be empty.
func (m *Manager) ShowToast(found int, domain string) {
	m.remove(ToastID)

	toast := dom.NewElement(atom.Div,
		"id", ToastID,
		"class", ToastID,
		"role", "status")
	msg := dom.NewElement(atom.P)
	msg.AppendChild(dom.NewText(foundMessage(found)))
	toast.AppendChild(msg)
	toast.AppendChild(button(ActionEnableAll, "Show pronunciations"))
	toast.AppendChild(button(ActionShowMenu, "Choose names"))
	if domain != "" {
		toast.AppendChild(button(ActionDisableForDomain, "Don't show on "+domain))
	}
	toast.AppendChild(button(ActionDismiss, "Dismiss"))
	m.body.AppendChild(toast)

	if m.autoDismiss > 0 {
		m.schedule(ToastID, m.autoDismiss)
	}
}

func foundMessage(n int) string {
	if n == 1 {
		return "BibleSpeak found 1 name on this page."
	}
	return fmt.Sprintf("BibleSpeak found %d names on this page.", n)
}

// ShowMenu lists found names as checkboxes, checked when enabled.
func (m *Manager) ShowMenu(found []string, enabled func(string) bool) {
	m.remove(ToastID)
	m.remove(MenuID)

	menu := dom.NewElement(atom.Div,
		"id", MenuID,
		"class", MenuID,
		"role", "dialog")
	form := dom.NewElement(atom.Form, "data-command", ActionUpdateSelected)
	for i, name := range found {
		id := MenuID + "-" + strconv.Itoa(i)
		label := dom.NewElement(atom.Label, "for", id)
		input := dom.NewElement(atom.Input, "type", "checkbox", "id", id, "name", "names", "value", name)
		if enabled(name) {
			input.Attr = append(input.Attr, html.Attribute{Key: "checked"})
		}
		label.AppendChild(input)
		label.AppendChild(dom.NewText(" " + name))
		form.AppendChild(label)
	}
	form.AppendChild(button(ActionUpdateSelected, "Apply"))
	menu.AppendChild(form)
	menu.AppendChild(button(ActionDismiss, "Close"))
	m.body.AppendChild(menu)
}

// UpdateBubble shows the number of live annotated names, or removes the
// bubble when there are none.
func (m *Manager) UpdateBubble(enabled int) {
	m.remove(BubbleID)
	if enabled == 0 {
		return
	}
	bubble := dom.NewElement(atom.Div,
		"id", BubbleID,
		"class", BubbleID,
		"title", "Names with pronunciations shown")
	bubble.AppendChild(dom.NewText(strconv.Itoa(enabled)))
	m.body.AppendChild(bubble)
}

// HideToast removes the toast and cancels its timer.
func (m *Manager) HideToast() {
	m.remove(ToastID)
}

// HideMenu removes the selection menu.
func (m *Manager) HideMenu() {
	m.remove(MenuID)
}

// Dismiss removes every overlay and cancels every pending timer.
func (m *Manager) Dismiss() {
	for _, id := range IDs {
		m.remove(id)
	}
}

// Close cancels pending timers without touching the document. It is called
// when the page session is discarded.
func (m *Manager) Close() {
	for id := range m.timers {
		m.cancel(id)
	}
}

func (m *Manager) remove(id string) {
	m.cancel(id)
	for {
		n := dom.FindByID(m.body, id)
		if n == nil {
			return
		}
		dom.Remove(n)
	}
}

func (m *Manager) cancel(id string) {
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	m.gen[id]++
}

// schedule removes overlay id after d unless it is replaced or cancelled
// first. The generation check covers a timer that fired but was waiting for
// the lock while a newer overlay was shown.
func (m *Manager) schedule(id string, d time.Duration) {
	m.cancel(id)
	gen := m.gen[id]
	m.timers[id] = m.after(d, func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		if m.gen[id] != gen {
			return
		}
		delete(m.timers, id)
		for n := dom.FindByID(m.body, id); n != nil; n = dom.FindByID(m.body, id) {
			dom.Remove(n)
		}
		logging.Debug("overlay auto-dismissed", "id", id)
	})
}

func button(action, label string) *html.Node {
	b := dom.NewElement(atom.Button, "type", "button", "data-command", action)
	b.AppendChild(dom.NewText(label))
	return b
}
