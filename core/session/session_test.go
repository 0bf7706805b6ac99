package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/dom"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/messaging"
	"github.com/FocuswithJustin/BibleSpeak/internal/overlay"
	"github.com/FocuswithJustin/BibleSpeak/internal/prefs"
)

const page = `<html><head><title>Acts</title><script>var Paul;</script></head>` +
	`<body><h1>Acts 16</h1><p>Paul and Silas were in prison. Paul's song rose.</p>` +
	`<p>Lydia listened.</p></body></html>`

func testDict() *dictionary.Dictionary {
	return dictionary.New(map[string]dictionary.Entry{
		"Paul":    {Pronunciation: "PAWL", Link: "https://biblespeak.org/paul"},
		"Silas":   {Pronunciation: "SAI-luhs", Link: "https://biblespeak.org/silas"},
		"Aaron":   {Pronunciation: "AIR-uhn", Link: "https://biblespeak.org/aaron"},
		"Pharaoh": {Pronunciation: "FAIR-oh", Link: "https://biblespeak.org/pharaoh"},
	}, map[string]dictionary.Entry{
		"Lydia": {Pronunciation: "LID-ee-uh"},
	})
}

type noTimer struct{}

func (noTimer) Stop() bool { return true }

func noTimers() []overlay.Option {
	return []overlay.Option{overlay.WithAfterFunc(func(time.Duration, func()) overlay.Timer { return noTimer{} })}
}

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func load(t *testing.T, p *prefs.Prefs) *Session {
	t.Helper()
	s := Load(context.Background(), parse(t, page), testDict(), Options{
		URL:         "https://www.example.com/acts-16",
		Prefs:       p,
		AutoDismiss: time.Second,
		Overlay:     noTimers(),
	})
	t.Cleanup(s.Close)
	return s
}

func send(t *testing.T, s *Session, req messaging.Request) messaging.Response {
	t.Helper()
	resp, err := s.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle(%s) error = %v", req.Action, err)
	}
	return resp
}

func rendered(t *testing.T, s *Session) string {
	t.Helper()
	out, err := s.Render()
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestLoadScansAndShowsToast(t *testing.T) {
	s := load(t, prefs.New(prefs.NewMemoryStore()))

	if diff := cmp.Diff([]string{"Lydia", "Paul", "Silas"}, s.Found()); diff != "" {
		t.Errorf("Found() mismatch (-want +got):\n%s", diff)
	}
	out := rendered(t, s)
	if !strings.Contains(out, `id="`+overlay.ToastID+`"`) {
		t.Error("toast not shown")
	}
	if !strings.Contains(out, "Don&#39;t show on example.com") {
		t.Errorf("toast missing domain button:\n%s", out)
	}
}

func TestGetFoundNames(t *testing.T) {
	s := load(t, nil)

	resp := send(t, s, messaging.Request{Action: messaging.GetFoundNames})

	if diff := cmp.Diff([]string{"Lydia", "Paul", "Silas"}, resp.Names); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	if len(resp.EnabledNames) != 0 {
		t.Errorf("EnabledNames = %v", resp.EnabledNames)
	}
	if !resp.IsExtensionEnabled {
		t.Error("IsExtensionEnabled = false")
	}
	if got := resp.Data["Paul"].Pronunciation; got != "PAWL" {
		t.Errorf("Data[Paul] = %q", got)
	}
	if _, ok := resp.Data["Aaron"]; ok {
		t.Error("Data should only hold found names")
	}
}

func TestEnableAllThenDisableAllRestoresPage(t *testing.T) {
	s := load(t, nil)
	send(t, s, messaging.Request{Action: messaging.Dismiss})
	before := rendered(t, s)

	resp := send(t, s, messaging.Request{Action: messaging.EnableAll})
	if diff := cmp.Diff([]string{"Lydia", "Paul", "Silas"}, resp.EnabledNames); diff != "" {
		t.Errorf("EnabledNames mismatch (-want +got):\n%s", diff)
	}
	out := rendered(t, s)
	if !strings.Contains(out, `Paul&#39;s (<a href="https://biblespeak.org/paul"`) {
		t.Errorf("possessive annotation missing:\n%s", out)
	}
	if !strings.Contains(out, `id="`+overlay.BubbleID+`"`) || !strings.Contains(out, `shown">3</div>`) {
		t.Errorf("bubble missing:\n%s", out)
	}
	if !strings.Contains(out, "<script>var Paul;</script>") {
		t.Error("script content changed")
	}

	resp = send(t, s, messaging.Request{Action: messaging.DisableAll})
	if len(resp.EnabledNames) != 0 {
		t.Errorf("EnabledNames after disableAll = %v", resp.EnabledNames)
	}
	if after := rendered(t, s); after != before {
		t.Errorf("page not restored:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestSelectedCommands(t *testing.T) {
	s := load(t, nil)

	resp := send(t, s, messaging.Request{Action: messaging.EnableSelected, Names: []string{"Paul", "Aaron"}})
	if diff := cmp.Diff([]string{"Paul"}, resp.EnabledNames); diff != "" {
		t.Errorf("enableSelected mismatch (-want +got):\n%s", diff)
	}

	resp = send(t, s, messaging.Request{Action: messaging.UpdateSelected, Names: []string{"Silas", "Lydia"}})
	if diff := cmp.Diff([]string{"Lydia", "Silas"}, resp.EnabledNames); diff != "" {
		t.Errorf("updateSelected mismatch (-want +got):\n%s", diff)
	}
	out := rendered(t, s)
	if strings.Contains(out, "PAWL") {
		t.Error("Paul annotation not removed")
	}
	if !strings.Contains(out, `<span class="bible-speak-pronunciation bible-speak-manual">LID-ee-uh</span>`) {
		t.Errorf("manual annotation missing:\n%s", out)
	}
}

func TestExtensionDisabledAtLoad(t *testing.T) {
	p := prefs.New(prefs.NewMemoryStore())
	if err := p.SetExtensionEnabled(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	s := load(t, p)

	if len(s.Found()) != 0 {
		t.Errorf("page scanned while disabled: %v", s.Found())
	}
	if strings.Contains(rendered(t, s), overlay.ToastID) {
		t.Error("toast shown while disabled")
	}
	_, err := s.Handle(context.Background(), messaging.Request{Action: messaging.EnableAll})
	if !errors.Is(err, errors.ErrDisabled) {
		t.Errorf("enableAll error = %v, want ErrDisabled", err)
	}

	on := true
	resp := send(t, s, messaging.Request{Action: messaging.ToggleExtension, Enabled: &on})
	if !resp.IsExtensionEnabled {
		t.Error("toggle did not enable")
	}
	if diff := cmp.Diff([]string{"Lydia", "Paul", "Silas"}, resp.Names); diff != "" {
		t.Errorf("scan after enabling mismatch (-want +got):\n%s", diff)
	}
	if enabled, _ := p.ExtensionEnabled(context.Background()); !enabled {
		t.Error("flag not persisted")
	}
}

func TestToggleOffClearsAnnotations(t *testing.T) {
	s := load(t, prefs.New(prefs.NewMemoryStore()))
	send(t, s, messaging.Request{Action: messaging.EnableAll})

	resp := send(t, s, messaging.Request{Action: messaging.ToggleExtension})
	if resp.IsExtensionEnabled {
		t.Fatal("toggle did not disable")
	}
	if len(resp.EnabledNames) != 0 {
		t.Errorf("EnabledNames = %v", resp.EnabledNames)
	}
	out := rendered(t, s)
	for _, id := range overlay.IDs {
		if strings.Contains(out, id) {
			t.Errorf("%s still present", id)
		}
	}
	state := send(t, s, messaging.Request{Action: messaging.GetExtensionState})
	if state.IsExtensionEnabled {
		t.Error("getExtensionState reports enabled")
	}
}

func TestToastSuppressedDomain(t *testing.T) {
	p := prefs.New(prefs.NewMemoryStore())
	s := load(t, p)

	send(t, s, messaging.Request{Action: messaging.DisableToastForDomain})
	if strings.Contains(rendered(t, s), overlay.ToastID) {
		t.Error("toast still shown")
	}

	again := load(t, p)
	if strings.Contains(rendered(t, again), overlay.ToastID) {
		t.Error("toast shown on a suppressed domain")
	}
	if len(again.Found()) == 0 {
		t.Error("suppressing the toast must not stop scanning")
	}
}

func TestNoBody(t *testing.T) {
	doc := parse(t, `<html><frameset><frame src="a.html"></frameset></html>`)
	s := Load(context.Background(), doc, testDict(), Options{})
	defer s.Close()

	if s.Available() {
		t.Error("frameset document reported as available")
	}
	resp := send(t, s, messaging.Request{Action: messaging.GetFoundNames})
	if len(resp.Names) != 0 {
		t.Errorf("Names = %v", resp.Names)
	}
	if _, err := s.Handle(context.Background(), messaging.Request{Action: messaging.EnableAll}); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("enableAll error = %v, want ErrUnsupported", err)
	}
	send(t, s, messaging.Request{Action: messaging.DisableAll})
	send(t, s, messaging.Request{Action: messaging.Dismiss})
}

func TestNilDictionary(t *testing.T) {
	s := Load(context.Background(), parse(t, page), nil, Options{})
	defer s.Close()

	if s.Available() {
		t.Error("page without dictionary reported as available")
	}
	resp := send(t, s, messaging.Request{Action: messaging.GetFoundNames})
	if len(resp.Names) != 0 || resp.Data != nil {
		t.Errorf("unexpected data %+v", resp)
	}
}

func TestUnknownCommandIsNoop(t *testing.T) {
	s := load(t, nil)
	before := rendered(t, s)

	send(t, s, messaging.Request{Action: messaging.CommandUnknown})

	if after := rendered(t, s); after != before {
		t.Error("unknown command changed the page")
	}
}

func TestClick(t *testing.T) {
	s := load(t, nil)
	ctx := context.Background()

	if _, err := s.Click(ctx, overlay.ActionShowMenu, nil); err != nil {
		t.Fatal(err)
	}
	out := rendered(t, s)
	if !strings.Contains(out, overlay.MenuID) || strings.Contains(out, overlay.ToastID) {
		t.Errorf("menu should replace toast:\n%s", out)
	}

	resp, err := s.Click(ctx, overlay.ActionUpdateSelected, []string{"Silas"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Silas"}, resp.EnabledNames); diff != "" {
		t.Errorf("EnabledNames mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(rendered(t, s), `id="`+overlay.MenuID+`"`) {
		t.Error("menu still open after applying a selection")
	}

	if _, err := s.Click(ctx, "explode", nil); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("unknown action error = %v, want ErrInvalidInput", err)
	}
}

func TestOverlaysTrackState(t *testing.T) {
	s := load(t, nil)
	if diff := cmp.Diff([]string{overlay.ToastID}, s.Overlays()); diff != "" {
		t.Errorf("Overlays() at load (-want +got):\n%s", diff)
	}

	send(t, s, messaging.Request{Action: messaging.EnableAll})
	if diff := cmp.Diff([]string{overlay.BubbleID}, s.Overlays()); diff != "" {
		t.Errorf("Overlays() after enable (-want +got):\n%s", diff)
	}

	send(t, s, messaging.Request{Action: messaging.ToggleExtension})
	if len(s.Overlays()) != 0 || s.ExtensionEnabled() {
		t.Errorf("toggle off left overlays %v, enabled=%v", s.Overlays(), s.ExtensionEnabled())
	}
}
