// Command biblespeak finds biblical names in web pages and annotates them
// with their pronunciations. It scans and annotates HTML files, hosts live
// pages for popup clients, and maintains the pronunciation dictionary.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/internal/config"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/prefs"
)

const version = "0.4.0"

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for biblespeak.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Config file path" default:"biblespeak.yaml" type:"path"`
	LogLevel  string `name:"log-level" help:"Override the configured log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Override the configured log format (text, json)"`

	// Command groups (noun-first organization)
	Scan     ScanCmd     `cmd:"" help:"List the names found in HTML files"`
	Annotate AnnotateCmd `cmd:"" help:"Write annotated copies of HTML files"`
	Serve    ServeCmd    `cmd:"" help:"Start the page host"`
	Popup    PopupCmd    `cmd:"" help:"Send a popup command to a hosted page"`
	Dict     DictGroup   `cmd:"" help:"Dictionary maintenance (validate, organize, update, suggest, pack)"`
	Prefs    PrefsGroup  `cmd:"" help:"Show and change persisted preferences"`
	Cfg      ConfigGroup `cmd:"" name:"config" help:"Configuration file helpers"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// ConfigGroup contains configuration helpers.
type ConfigGroup struct {
	Init ConfigInitCmd `cmd:"" help:"Write a config file with the defaults"`
}

// ConfigInitCmd writes the default configuration.
type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing file"`
}

func (c *ConfigInitCmd) Run() error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "biblespeak version %s\n", version)
	return nil
}

// Helper functions

func configPath() string {
	if CLI.Config != "" {
		return CLI.Config
	}
	return config.DefaultPath
}

// loadConfig reads the config file and environment, applies the global
// log flags and initialises logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Log.Format = CLI.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logging.InitLogger(level, format)
	return cfg, nil
}

// DictFlags lets a command override the configured dictionary files.
type DictFlags struct {
	Curated string `help:"Curated dictionary file (.json or .json.xz)" type:"path"`
	Manual  string `help:"Manual dictionary file (.json or .json.xz)" type:"path"`
}

func (f DictFlags) paths(cfg *config.Config) (curated, manual string) {
	curated, manual = cfg.Dictionary.Curated, cfg.Dictionary.Manual
	if f.Curated != "" {
		curated = f.Curated
	}
	if f.Manual != "" {
		manual = f.Manual
	}
	return curated, manual
}

func (f DictFlags) load(cfg *config.Config) (*dictionary.Dictionary, error) {
	curated, manual := f.paths(cfg)
	return dictionary.Load(curated, manual)
}

// openPrefs opens the preference database named by the config, or path
// when set.
func prefsPath(cfg *config.Config, path string) string {
	if path == "" {
		return cfg.Prefs.Path
	}
	return path
}

func openPrefs(cfg *config.Config, path string) (*prefs.Prefs, error) {
	store, err := prefs.OpenSQLite(prefsPath(cfg, path))
	if err != nil {
		return nil, err
	}
	return prefs.New(store), nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("biblespeak"),
		kong.Description("BibleSpeak - pronunciations for biblical names on any page"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
