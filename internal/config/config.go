package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"
)

const configEnv = "GHCAL_CONFIG"

type OIDCProviderConfig struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	IssuerURL    string   `yaml:"issuer_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

// WidgetConfig holds the rendering options recognised by the widget. Both
// templates are plain strings so that no host or relay is baked into code.
type WidgetConfig struct {
	SourceURL   string `yaml:"source_url"`
	Proxy       string `yaml:"proxy"`
	SummaryText string `yaml:"summary_text"`
	GlobalStats bool   `yaml:"global_stats"`
	Responsive  bool   `yaml:"responsive"`
}

type FetchConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

type NudgeConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	NotifyEmail  string `yaml:"notify_email"`
	From         string `yaml:"from"`
}

type Config struct {
	ListenAddr    string               `yaml:"listen_addr"`
	APIBaseURL    string               `yaml:"api_base_url"`
	DBPath        string               `yaml:"db_path"`
	LogLevel      string               `yaml:"log_level"`
	LogFormat     string               `yaml:"log_format"`
	AuthEnabled   bool                 `yaml:"auth_enabled"`
	OIDCProviders []OIDCProviderConfig `yaml:"oidc_providers"`
	Widget        WidgetConfig         `yaml:"widget"`
	Fetch         FetchConfig          `yaml:"fetch"`
	Nudge         NudgeConfig          `yaml:"nudge"`
}

const DefaultSummaryText = `Summary of pull requests, issues opened, and commits made by <a href="https://github.com/{identity}" target="blank">@{identity}</a>`

func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		APIBaseURL: "http://localhost:8080",
		DBPath:     "ghcal.db",
		LogLevel:   "info",
		LogFormat:  "text",
		Widget: WidgetConfig{
			SourceURL:   "https://github.com/users/{identity}/contributions",
			SummaryText: DefaultSummaryText,
			GlobalStats: true,
		},
		Fetch: FetchConfig{
			MaxAttempts: 20,
			RetryDelay:  500 * time.Millisecond,
			Timeout:     10 * time.Second,
		},
		Nudge: NudgeConfig{
			From: "onboarding@resend.dev",
		},
	}
}

// Load reads the YAML config at path, falling back to $GHCAL_CONFIG. With
// neither set the defaults are used. Environment overrides apply last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(configEnv)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be positive, got %d", c.Fetch.MaxAttempts)
	}
	if c.Fetch.RetryDelay <= 0 {
		return fmt.Errorf("fetch.retry_delay must be positive, got %s", c.Fetch.RetryDelay)
	}
	if !strings.Contains(c.Widget.SourceURL, "{identity}") {
		return fmt.Errorf("widget.source_url must contain {identity}")
	}
	if c.Widget.Proxy != "" && !strings.Contains(c.Widget.Proxy, "{url}") {
		return fmt.Errorf("widget.proxy must contain {url}")
	}
	if c.AuthEnabled && len(c.OIDCProviders) == 0 {
		return fmt.Errorf("auth_enabled requires at least one oidc provider")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.ListenAddr = getenv("GHCAL_LISTEN_ADDR", cfg.ListenAddr)
	cfg.APIBaseURL = getenv("GHCAL_API_BASE", cfg.APIBaseURL)
	cfg.DBPath = getenv("GHCAL_DB_PATH", cfg.DBPath)
	cfg.LogLevel = getenv("GHCAL_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("GHCAL_LOG_FORMAT", cfg.LogFormat)
	cfg.Widget.Proxy = getenv("GHCAL_PROXY", cfg.Widget.Proxy)
	cfg.Nudge.ResendAPIKey = getenv("GHCAL_RESEND_API_KEY", cfg.Nudge.ResendAPIKey)
	cfg.Nudge.NotifyEmail = getenv("GHCAL_NOTIFY_EMAIL", cfg.Nudge.NotifyEmail)

	if v := os.Getenv("GHCAL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GHCAL_MAX_ATTEMPTS must be a valid integer: %v", err)
		}
		cfg.Fetch.MaxAttempts = n
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
