package overlay

import (
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/FocuswithJustin/BibleSpeak/core/dom"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func newBody(t *testing.T) *html.Node {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader("<html><body><p>Paul</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	body, err := dom.Body(doc)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func countID(body *html.Node, id string) int {
	return len(dom.Elements(body, nil, func(n *html.Node) bool {
		v, _ := dom.Attr(n, "id")
		return v == id
	}))
}

func TestShowToastReplacesExisting(t *testing.T) {
	body := newBody(t)
	var mu sync.Mutex
	clock := &fakeClock{}
	m := NewManager(body, &mu, 5*time.Second, WithAfterFunc(clock.AfterFunc))

	m.ShowToast(3, "example.com")
	m.ShowToast(1, "example.com")

	if n := countID(body, ToastID); n != 1 {
		t.Fatalf("expected 1 toast, got %d", n)
	}
	if got := dom.TextContent(dom.FindByID(body, ToastID)); !strings.Contains(got, "found 1 name on") {
		t.Errorf("toast text = %q", got)
	}
	if len(clock.timers) != 2 {
		t.Fatalf("expected 2 timers scheduled, got %d", len(clock.timers))
	}
	if !clock.timers[0].stopped {
		t.Error("first auto-dismiss timer was not cancelled")
	}
}

func TestToastAutoDismiss(t *testing.T) {
	body := newBody(t)
	var mu sync.Mutex
	clock := &fakeClock{}
	m := NewManager(body, &mu, time.Second, WithAfterFunc(clock.AfterFunc))

	m.ShowToast(2, "")
	clock.timers[0].f()

	if m.Visible(ToastID) {
		t.Error("toast still visible after timer fired")
	}
}

func TestStaleTimerDoesNotRemoveNewToast(t *testing.T) {
	body := newBody(t)
	var mu sync.Mutex
	clock := &fakeClock{}
	m := NewManager(body, &mu, time.Second, WithAfterFunc(clock.AfterFunc))

	m.ShowToast(2, "")
	stale := clock.timers[0]
	m.ShowToast(4, "")
	// The stale timer fires anyway, as if Stop lost the race.
	stale.f()

	if !m.Visible(ToastID) {
		t.Error("stale timer removed the replacement toast")
	}
}

func TestToastDomainButton(t *testing.T) {
	tests := []struct {
		domain string
		want   bool
	}{
		{"example.com", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			body := newBody(t)
			m := NewManager(body, &sync.Mutex{}, 0)
			m.ShowToast(1, tt.domain)
			buttons := dom.Elements(body, nil, func(n *html.Node) bool {
				v, _ := dom.Attr(n, "data-command")
				return v == ActionDisableForDomain
			})
			if got := len(buttons) == 1; got != tt.want {
				t.Errorf("domain button present = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShowMenu(t *testing.T) {
	body := newBody(t)
	m := NewManager(body, &sync.Mutex{}, 0)
	m.ShowToast(2, "")

	enabled := map[string]bool{"Silas": true}
	m.ShowMenu([]string{"Paul", "Silas"}, func(n string) bool { return enabled[n] })
	m.ShowMenu([]string{"Paul", "Silas"}, func(n string) bool { return enabled[n] })

	if m.Visible(ToastID) {
		t.Error("menu should replace the toast")
	}
	if n := countID(body, MenuID); n != 1 {
		t.Fatalf("expected 1 menu, got %d", n)
	}
	inputs := dom.Elements(body, nil, func(n *html.Node) bool { return n.Data == "input" })
	if len(inputs) != 2 {
		t.Fatalf("expected 2 checkboxes, got %d", len(inputs))
	}
	for _, in := range inputs {
		name, _ := dom.Attr(in, "value")
		_, checked := dom.Attr(in, "checked")
		if checked != enabled[name] {
			t.Errorf("%s checked = %v", name, checked)
		}
	}
}

func TestBubbleAndDismiss(t *testing.T) {
	body := newBody(t)
	clock := &fakeClock{}
	m := NewManager(body, &sync.Mutex{}, time.Second, WithAfterFunc(clock.AfterFunc))

	m.UpdateBubble(2)
	m.UpdateBubble(3)
	if n := countID(body, BubbleID); n != 1 {
		t.Fatalf("expected 1 bubble, got %d", n)
	}
	if got := dom.TextContent(dom.FindByID(body, BubbleID)); got != "3" {
		t.Errorf("bubble text = %q", got)
	}
	m.UpdateBubble(0)
	if m.Visible(BubbleID) {
		t.Error("bubble should be removed at zero")
	}

	m.UpdateBubble(1)
	m.ShowToast(1, "")
	m.Dismiss()
	for _, id := range IDs {
		if m.Visible(id) {
			t.Errorf("%s visible after Dismiss", id)
		}
	}
	if !clock.timers[0].stopped {
		t.Error("Dismiss did not cancel the toast timer")
	}
}

func TestSkipFilter(t *testing.T) {
	body := newBody(t)
	m := NewManager(body, &sync.Mutex{}, 0)
	m.ShowToast(1, "")

	var texts []string
	for _, n := range dom.TextNodes(body, Skip) {
		texts = append(texts, n.Data)
	}
	if len(texts) != 1 || texts[0] != "Paul" {
		t.Errorf("TextNodes with Skip = %q", texts)
	}
}
