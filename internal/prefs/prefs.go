package prefs

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
)

// Persisted keys.
const (
	KeyExtensionEnabled     = "extensionEnabled"
	KeyToastDisabledDomains = "toastDisabledDomains"
)

// Prefs reads and writes typed preferences on top of a Store.
type Prefs struct {
	store Store
	// mu serialises read-modify-write updates of the domain list.
	mu sync.Mutex
}

// New returns Prefs backed by store.
func New(store Store) *Prefs {
	return &Prefs{store: store}
}

// Close closes the underlying store.
func (p *Prefs) Close() error {
	return p.store.Close()
}

func (p *Prefs) get(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, errors.NewParse("JSON", key, err)
	}
	return true, nil
}

func (p *Prefs) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, key, string(raw))
}

// ExtensionEnabled reports the global extension flag. It defaults to true.
func (p *Prefs) ExtensionEnabled(ctx context.Context) (bool, error) {
	enabled := true
	if _, err := p.get(ctx, KeyExtensionEnabled, &enabled); err != nil {
		return true, err
	}
	return enabled, nil
}

// SetExtensionEnabled stores the global extension flag.
func (p *Prefs) SetExtensionEnabled(ctx context.Context, enabled bool) error {
	return p.set(ctx, KeyExtensionEnabled, enabled)
}

// ToggleExtension flips the flag and returns the new value.
func (p *Prefs) ToggleExtension(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, err := p.ExtensionEnabled(ctx)
	if err != nil {
		return cur, err
	}
	return !cur, p.SetExtensionEnabled(ctx, !cur)
}

// ToastDisabledDomains returns the root domains with the toast suppressed,
// sorted.
func (p *Prefs) ToastDisabledDomains(ctx context.Context) ([]string, error) {
	var domains []string
	if _, err := p.get(ctx, KeyToastDisabledDomains, &domains); err != nil {
		return nil, err
	}
	slices.Sort(domains)
	return domains, nil
}

// DisableToastForDomain suppresses the toast on the root domain of host.
// It returns the root domain that was stored.
func (p *Prefs) DisableToastForDomain(ctx context.Context, host string) (string, error) {
	root := RootDomain(host)
	if root == "" {
		return "", errors.NewValidation("domain", "empty host")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	domains, err := p.ToastDisabledDomains(ctx)
	if err != nil {
		return "", err
	}
	if slices.Contains(domains, root) {
		return root, nil
	}
	domains = append(domains, root)
	slices.Sort(domains)
	return root, p.set(ctx, KeyToastDisabledDomains, domains)
}

// EnableToastForDomain lifts the suppression for the root domain of host.
func (p *Prefs) EnableToastForDomain(ctx context.Context, host string) error {
	root := RootDomain(host)
	p.mu.Lock()
	defer p.mu.Unlock()
	domains, err := p.ToastDisabledDomains(ctx)
	if err != nil {
		return err
	}
	i := slices.Index(domains, root)
	if i < 0 {
		return nil
	}
	return p.set(ctx, KeyToastDisabledDomains, slices.Delete(domains, i, i+1))
}

// ToastAllowed reports whether the toast may be shown on host.
func (p *Prefs) ToastAllowed(ctx context.Context, host string) (bool, error) {
	root := RootDomain(host)
	if root == "" {
		return true, nil
	}
	domains, err := p.ToastDisabledDomains(ctx)
	if err != nil {
		return true, err
	}
	return !slices.Contains(domains, root), nil
}

// RootDomain returns the registrable domain of a host name or URL:
// "www.bbc.co.uk" and "https://news.bbc.co.uk/x" both give "bbc.co.uk".
// IP addresses and single-label hosts are returned as they are.
func RootDomain(hostOrURL string) string {
	host := strings.TrimSpace(hostOrURL)
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return ""
		}
		host = u.Hostname()
	} else if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return root
}
