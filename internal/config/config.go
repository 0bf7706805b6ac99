// Package config loads biblespeak settings from a YAML file overlaid with
// BIBLESPEAK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "biblespeak.yaml"

// EnvPrefix prefixes environment overrides. Nested keys are joined with a
// double underscore: BIBLESPEAK_SERVER__PORT sets server.port.
const EnvPrefix = "BIBLESPEAK_"

// Duration is a time.Duration written as "30s" in YAML and env values.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the full settings tree.
type Config struct {
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Dictionary DictionaryConfig `yaml:"dictionary" koanf:"dictionary"`
	Prefs      PrefsConfig      `yaml:"prefs" koanf:"prefs"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
	Overlay    OverlayConfig    `yaml:"overlay" koanf:"overlay"`
	Scrape     ScrapeConfig     `yaml:"scrape" koanf:"scrape"`
	Suggest    SuggestConfig    `yaml:"suggest" koanf:"suggest"`
}

// ServerConfig configures the page host.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	// MaxPages caps live page sessions; the least recently used is closed.
	MaxPages int      `yaml:"max_pages" koanf:"max_pages"`
	PageTTL  Duration `yaml:"page_ttl" koanf:"page_ttl"`
}

// DictionaryConfig locates the two dictionary tiers.
type DictionaryConfig struct {
	Curated string   `yaml:"curated" koanf:"curated"`
	Manual  string   `yaml:"manual" koanf:"manual"`
	TTL     Duration `yaml:"ttl" koanf:"ttl"`
}

// PrefsConfig locates the preference database.
type PrefsConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// OverlayConfig tunes the in-page overlays.
type OverlayConfig struct {
	AutoDismiss Duration `yaml:"auto_dismiss" koanf:"auto_dismiss"`
}

// ScrapeConfig configures the curated dictionary updater.
type ScrapeConfig struct {
	BaseURL string   `yaml:"base_url" koanf:"base_url"`
	Workers int      `yaml:"workers" koanf:"workers"`
	Timeout Duration `yaml:"timeout" koanf:"timeout"`
}

// SuggestConfig configures pronunciation suggestions. The API key is read
// from the environment variable named by APIKeyEnv, never from the file.
type SuggestConfig struct {
	Model     string `yaml:"model" koanf:"model"`
	BaseURL   string `yaml:"base_url,omitempty" koanf:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" koanf:"api_key_env"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			MaxPages: 256,
			PageTTL:  Duration(30 * time.Minute),
		},
		Dictionary: DictionaryConfig{
			Curated: filepath.Join("data", "names_pronunciations.json"),
			Manual:  filepath.Join("data", "manual_pronunciations.json"),
			TTL:     Duration(10 * time.Minute),
		},
		Prefs: PrefsConfig{Path: defaultPrefsPath()},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Overlay: OverlayConfig{AutoDismiss: Duration(10 * time.Second)},
		Scrape: ScrapeConfig{
			BaseURL: "https://biblespeak.org",
			Workers: 4,
			Timeout: Duration(30 * time.Second),
		},
		Suggest: SuggestConfig{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".biblespeak", "prefs.db")
	}
	return filepath.Join(dir, "biblespeak", "prefs.db")
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// envKey maps BIBLESPEAK_SERVER__ALLOWED_ORIGINS to server.allowed_origins.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxPages < 1 {
		return fmt.Errorf("server.max_pages must be at least 1")
	}
	if c.Server.PageTTL < 0 {
		return fmt.Errorf("server.page_ttl must be non-negative")
	}
	if c.Dictionary.Curated == "" {
		return fmt.Errorf("dictionary.curated is required")
	}
	if c.Dictionary.TTL < 0 {
		return fmt.Errorf("dictionary.ttl must be non-negative")
	}
	if c.Prefs.Path == "" {
		return fmt.Errorf("prefs.path is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	if c.Overlay.AutoDismiss < 0 {
		return fmt.Errorf("overlay.auto_dismiss must be non-negative")
	}
	if c.Scrape.Workers < 1 {
		return fmt.Errorf("scrape.workers must be at least 1")
	}
	if !strings.HasPrefix(c.Scrape.BaseURL, "http://") && !strings.HasPrefix(c.Scrape.BaseURL, "https://") {
		return fmt.Errorf("invalid scrape.base_url %q", c.Scrape.BaseURL)
	}
	if c.Suggest.Model == "" {
		return fmt.Errorf("suggest.model is required")
	}
	return nil
}

// Addr returns the listen address for the page host.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
