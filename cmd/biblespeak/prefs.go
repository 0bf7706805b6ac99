package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FocuswithJustin/BibleSpeak/internal/prefs"
)

// PrefsGroup contains preference commands.
type PrefsGroup struct {
	Show       PrefsShowCmd       `cmd:"" help:"Print the stored preferences"`
	Toggle     PrefsToggleCmd     `cmd:"" help:"Switch the extension on or off"`
	Suppress   PrefsSuppressCmd   `cmd:"" help:"Stop the names-found toast on a domain"`
	Unsuppress PrefsUnsuppressCmd `cmd:"" help:"Show the names-found toast on a domain again"`
}

// PrefsFlags selects the preference database.
type PrefsFlags struct {
	PrefsPath string `name:"prefs" help:"Preferences database (default from config)" type:"path"`
}

func (f PrefsFlags) open() (*prefs.Prefs, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openPrefs(cfg, f.PrefsPath)
}

// PrefsView is the printed form of the preferences.
type PrefsView struct {
	ExtensionEnabled     bool     `json:"extensionEnabled"`
	ToastDisabledDomains []string `json:"toastDisabledDomains"`
}

func readPrefs(ctx context.Context, p *prefs.Prefs) (PrefsView, error) {
	enabled, err := p.ExtensionEnabled(ctx)
	if err != nil {
		return PrefsView{}, err
	}
	domains, err := p.ToastDisabledDomains(ctx)
	if err != nil {
		return PrefsView{}, err
	}
	if domains == nil {
		domains = []string{}
	}
	return PrefsView{ExtensionEnabled: enabled, ToastDisabledDomains: domains}, nil
}

type PrefsShowCmd struct {
	PrefsFlags
}

func (c *PrefsShowCmd) Run() error {
	p, err := c.open()
	if err != nil {
		return err
	}
	defer p.Close()
	view, err := readPrefs(context.Background(), p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// PrefsToggleCmd sets or flips the extension flag.
type PrefsToggleCmd struct {
	PrefsFlags
	State string `arg:"" optional:"" enum:"flip,on,off" default:"flip" help:"on, off, or flip"`
}

func (c *PrefsToggleCmd) Run() error {
	p, err := c.open()
	if err != nil {
		return err
	}
	defer p.Close()
	ctx := context.Background()

	enabled := c.State == "on"
	if c.State == "flip" {
		enabled, err = p.ToggleExtension(ctx)
	} else {
		err = p.SetExtensionEnabled(ctx, enabled)
	}
	if err != nil {
		return err
	}
	state := "off"
	if enabled {
		state = "on"
	}
	fmt.Fprintf(stdout, "Extension %s\n", state)
	return nil
}

type PrefsSuppressCmd struct {
	PrefsFlags
	Host string `arg:"" help:"Host name or URL; its root domain is stored"`
}

func (c *PrefsSuppressCmd) Run() error {
	p, err := c.open()
	if err != nil {
		return err
	}
	defer p.Close()
	root, err := p.DisableToastForDomain(context.Background(), c.Host)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Toast disabled on %s\n", root)
	return nil
}

type PrefsUnsuppressCmd struct {
	PrefsFlags
	Host string `arg:"" help:"Host name or URL"`
}

func (c *PrefsUnsuppressCmd) Run() error {
	p, err := c.open()
	if err != nil {
		return err
	}
	defer p.Close()
	if err := p.EnableToastForDomain(context.Background(), c.Host); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Toast enabled on %s\n", prefs.RootDomain(c.Host))
	return nil
}
