package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/api"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/messaging"
	"github.com/FocuswithJustin/BibleSpeak/internal/server"
)

// ServeCmd starts the page host.
type ServeCmd struct {
	DictFlags
	Port         int    `help:"Port to listen on (default from config)"`
	PrefsPath    string `name:"prefs" help:"Preferences database (default from config)" type:"path"`
	AllowPrivate bool   `help:"Allow fetching pages from loopback and private addresses"`
	APIKey       string `name:"api-key" env:"BIBLESPEAK_API_KEY" help:"Require this key in the X-API-Key header"`
	RateLimit    int    `help:"Requests per minute per client (0 = unlimited)" default:"0"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := openPrefs(cfg, c.PrefsPath)
	if err != nil {
		return err
	}
	defer p.Close()

	apiCfg := api.DefaultConfig()
	apiCfg.Version = version
	apiCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	apiCfg.MaxPages = cfg.Server.MaxPages
	apiCfg.PageTTL = cfg.Server.PageTTL.Std()
	apiCfg.DictionaryTTL = cfg.Dictionary.TTL.Std()
	apiCfg.AutoDismiss = cfg.Overlay.AutoDismiss.Std()
	apiCfg.AllowPrivateURLs = c.AllowPrivate
	apiCfg.RateLimit = api.RateLimiterConfig{RequestsPerMinute: c.RateLimit}
	apiCfg.WebSocket.AllowedOrigins = cfg.Server.AllowedOrigins
	if c.APIKey != "" {
		apiCfg.Auth = api.AuthConfig{Enabled: true, APIKey: c.APIKey}
	}

	curated, manual := c.paths(cfg)
	srv, err := api.New(apiCfg, api.FileSource(curated, manual), p)
	if err != nil {
		return err
	}

	addr := cfg.Addr()
	if c.Port != 0 {
		addr = fmt.Sprintf(":%d", c.Port)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	printServeBanner(stdout, addr, curated, manual, prefsPath(cfg, c.PrefsPath))
	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// printServeBanner reports the listen address and the files the host reads,
// with absolute paths.
func printServeBanner(w io.Writer, addr, curated, manual, prefsFile string) {
	curated, manual, prefsFile = server.AbsPath(curated), server.AbsPath(manual), server.AbsPath(prefsFile)
	logging.Info("page host data", "curated", curated, "manual", manual, "prefs", prefsFile)
	fmt.Fprintf(w, "BibleSpeak page host listening on %s\n", addr)
	fmt.Fprintf(w, "  curated: %s\n", curated)
	fmt.Fprintf(w, "  manual:  %s\n", manual)
	fmt.Fprintf(w, "  prefs:   %s\n", prefsFile)
}

// PopupCmd sends one command to a hosted page, the way the popup does.
type PopupCmd struct {
	Page    string        `arg:"" help:"Page id returned when the page was loaded"`
	Action  string        `arg:"" help:"Command name (getFoundNames, enableAll, enableSelected, updateSelected, disableAll, toggleExtension, getExtensionState, dismiss, disableToastForDomain)"`
	Names   []string      `arg:"" optional:"" help:"Names for enableSelected and updateSelected"`
	Host    string        `default:"http://localhost:8080" help:"Page host base URL"`
	WS      bool          `name:"ws" help:"Use the websocket transport"`
	State   string        `enum:"flip,on,off" default:"flip" help:"New state for toggleExtension"`
	APIKey  string        `name:"api-key" env:"BIBLESPEAK_API_KEY" help:"Value for the X-API-Key header"`
	Timeout time.Duration `default:"10s" help:"Request timeout"`
}

func (c *PopupCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	cmd := messaging.ParseCommand(c.Action)
	if cmd == messaging.CommandUnknown {
		names := make([]string, 0, len(messaging.Commands()))
		for _, known := range messaging.Commands() {
			names = append(names, known.String())
		}
		return fmt.Errorf("unknown command %q (want one of %s)", c.Action, strings.Join(names, ", "))
	}
	req := messaging.Request{Action: cmd, Names: c.Names}
	if cmd == messaging.ToggleExtension && c.State != "flip" {
		on := c.State == "on"
		req.Enabled = &on
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	header := http.Header{}
	if c.APIKey != "" {
		header.Set(api.APIKeyHeader, c.APIKey)
	}
	var sender messaging.Sender
	if c.WS {
		wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(c.Host, "/"), "http") + "/pages/" + c.Page + "/ws"
		client, err := messaging.DialWebSocket(ctx, wsURL, header)
		switch {
		case errors.Is(err, errors.ErrNoResponder):
			sender = messaging.Local{}
		case err != nil:
			return err
		default:
			defer client.Close()
			sender = client
		}
	} else {
		sender = &messaging.HTTPClient{BaseURL: c.Host, PageID: c.Page, Header: header}
	}

	resp, ok, err := messaging.Fetch(ctx, sender, req)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(stdout, "Page not available (not loaded, or closed).")
		return nil
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
