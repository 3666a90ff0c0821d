// Package config loads the edge server configuration from an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/yaml.v3"

	"github.com/ascww/newsportal/pkg/newsmeta"
)

const (
	InjectionText = "text"
	InjectionDOM  = "dom"
)

type Shell struct {
	File   string `yaml:"file"`
	Origin string `yaml:"origin,omitempty"`
}

type Backend struct {
	NewsURL      string        `yaml:"news_url"`
	ImageBaseURL string        `yaml:"image_base_url"`
	ProxyTarget  string        `yaml:"proxy_target"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	UserAgent    string        `yaml:"user_agent,omitempty"`
}

type Site struct {
	Name   string `yaml:"name"`
	Locale string `yaml:"locale"`
}

type Defaults struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Logo        string `yaml:"logo"`
}

// Config is the full server configuration.
type Config struct {
	Port      string   `yaml:"port"`
	Prefork   bool     `yaml:"prefork,omitempty"`
	StaticDir string   `yaml:"static_dir"`
	Shell     Shell    `yaml:"shell"`
	Backend   Backend  `yaml:"backend"`
	Site      Site     `yaml:"site"`
	Defaults  Defaults `yaml:"defaults"`
	Injection string   `yaml:"injection"`
	LogLevel  string   `yaml:"log_level"`
}

// Default returns the built-in configuration of the portal.
func Default() *Config {
	return &Config{
		Port:      "8080",
		StaticDir: "dist",
		Shell:     Shell{File: "index.html"},
		Backend: Backend{
			NewsURL:      "https://backend.ascww.org/api/news",
			ImageBaseURL: "https://backend.ascww.org/api/news/image/",
			ProxyTarget:  "https://backend.ascww.org/api",
		},
		Site: Site{
			Name:   "شركة مياه الشرب والصرف الصحي بأسيوط",
			Locale: "ar_AR",
		},
		Defaults: Defaults{
			Title:       "شركة مياه الشرب والصرف الصحي بأسيوط والوادي الجديد",
			Description: "الموقع الرسمي لشركة مياه الشرب والصرف الصحي بأسيوط والوادي الجديد - تابع أحدث الأخبار والخدمات",
			Logo:        "/logo.png",
		},
		Injection: InjectionText,
		LogLevel:  "info",
	}
}

// Load builds the configuration: built-in defaults, then the YAML file at
// path (if any), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("syntax error in config file '%s': %w", path, err)
		}
	} else {
		log.Debugf("no config file given, using built-in defaults")
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getenv("PORT", c.Port)
	c.StaticDir = getenv("STATIC_DIR", c.StaticDir)
	c.Shell.Origin = getenv("SHELL_ORIGIN", c.Shell.Origin)
	c.Backend.NewsURL = getenv("NEWS_API_URL", c.Backend.NewsURL)
	c.Backend.ImageBaseURL = getenv("NEWS_IMAGE_BASE_URL", c.Backend.ImageBaseURL)
	c.Backend.ProxyTarget = getenv("BACKEND_PROXY_TARGET", c.Backend.ProxyTarget)
	c.Backend.UserAgent = getenv("USER_AGENT", c.Backend.UserAgent)
	c.Injection = getenv("INJECTION_MODE", c.Injection)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)

	if raw := getenv("BACKEND_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid BACKEND_TIMEOUT %q: %w", raw, err)
		}
		c.Backend.Timeout = d
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Backend.NewsURL == "" {
		return fmt.Errorf("backend.news_url must be set")
	}
	u, err := url.Parse(c.Backend.NewsURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("backend.news_url must be an absolute URL, got %q", c.Backend.NewsURL)
	}
	if c.Shell.Origin != "" {
		if o, err := url.Parse(c.Shell.Origin); err != nil || !o.IsAbs() {
			return fmt.Errorf("shell.origin must be an absolute URL, got %q", c.Shell.Origin)
		}
	}
	switch strings.ToLower(c.Injection) {
	case InjectionText, InjectionDOM:
	default:
		return fmt.Errorf("unknown injection mode %q (want %q or %q)", c.Injection, InjectionText, InjectionDOM)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}
	return nil
}

// MetaDefaults returns the fallback tag values for the rewriter.
func (c *Config) MetaDefaults() newsmeta.Defaults {
	return newsmeta.Defaults{
		Title:       c.Defaults.Title,
		Description: c.Defaults.Description,
		Logo:        c.Defaults.Logo,
	}
}

// MetaSite returns the site-wide Open Graph values.
func (c *Config) MetaSite() newsmeta.Site {
	return newsmeta.Site{Name: c.Site.Name, Locale: c.Site.Locale}
}

// Injector returns the injector selected by the injection mode.
func (c *Config) Injector() newsmeta.Injector {
	if strings.EqualFold(c.Injection, InjectionDOM) {
		return newsmeta.DOMInjector{}
	}
	return newsmeta.TextInjector{}
}

// ShellPath is the on-disk location of the SPA shell.
func (c *Config) ShellPath() string {
	return filepath.Join(c.StaticDir, c.Shell.File)
}

// Level maps LogLevel onto the fiber logger levels.
func (c *Config) Level() log.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn", "warning":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
