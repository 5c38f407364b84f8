package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type KeyType string

type DisplayMode string

const (
	KeyTypeHMAC    KeyType = "hmac"
	KeyTypeEd25519 KeyType = "ed25519"
)

const (
	DisplayAuto  DisplayMode = "auto"
	DisplayTUI   DisplayMode = "tui"
	DisplayPlain DisplayMode = "plain"
)

const (
	MinRefreshIntervalSec     = 10
	MaxRefreshIntervalSec     = 300
	DefaultRefreshIntervalSec = 30
	DefaultPageSize           = 10
)

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Display  DisplayConfig  `yaml:"display"`
	Stream   StreamConfig   `yaml:"stream"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

type ExchangeConfig struct {
	APIKey            string  `yaml:"api_key"`
	APISecret         string  `yaml:"api_secret"`
	KeyType           KeyType `yaml:"key_type"`
	Ed25519KeyPath    string  `yaml:"ed25519_private_key_path"`
	RestBaseURL       string  `yaml:"rest_base_url"`
	RecvWindowMs      int64   `yaml:"recv_window_ms"`
	HTTPTimeoutSec    int64   `yaml:"http_timeout_sec"`
	MaxRequestsPerSec float64 `yaml:"max_requests_per_sec"`
	TradeHistoryLimit int     `yaml:"trade_history_limit"`
}

type RefreshConfig struct {
	IntervalSec int64 `yaml:"interval_sec"`
	PageSize    int   `yaml:"page_size"`
}

type DisplayConfig struct {
	Mode     DisplayMode `yaml:"mode"`
	Locale   string      `yaml:"locale"`
	Timezone string      `yaml:"timezone"`
}

type StreamConfig struct {
	Enabled      bool   `yaml:"enabled"`
	WSBaseURL    string `yaml:"ws_base_url"`
	KeepaliveMin int64  `yaml:"keepalive_min"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	var cfg Config
	cfg.normalize()
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist and missingOK is set.
func LoadOrDefault(path string, missingOK bool) (Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if missingOK && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Config{}, err
}

func (c *Config) normalize() {
	c.Exchange.APIKey = strings.TrimSpace(c.Exchange.APIKey)
	c.Exchange.APISecret = strings.TrimSpace(c.Exchange.APISecret)
	c.Exchange.KeyType = KeyType(strings.ToLower(strings.TrimSpace(string(c.Exchange.KeyType))))
	c.Exchange.Ed25519KeyPath = strings.TrimSpace(c.Exchange.Ed25519KeyPath)
	c.Exchange.RestBaseURL = strings.TrimRight(strings.TrimSpace(c.Exchange.RestBaseURL), "/")
	c.Display.Mode = DisplayMode(strings.ToLower(strings.TrimSpace(string(c.Display.Mode))))
	c.Display.Locale = strings.TrimSpace(c.Display.Locale)
	c.Display.Timezone = strings.TrimSpace(c.Display.Timezone)
	c.Stream.WSBaseURL = strings.TrimRight(strings.TrimSpace(c.Stream.WSBaseURL), "/")
	c.HTTP.Listen = strings.TrimSpace(c.HTTP.Listen)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.File = strings.TrimSpace(c.Log.File)
	if c.Exchange.KeyType == "hmac-sha256" {
		c.Exchange.KeyType = KeyTypeHMAC
	}
}

func (c *Config) applyDefaults() {
	if c.Exchange.KeyType == "" {
		c.Exchange.KeyType = KeyTypeHMAC
	}
	if c.Exchange.RestBaseURL == "" {
		c.Exchange.RestBaseURL = "https://fapi.binance.com"
	}
	if c.Exchange.RecvWindowMs == 0 {
		c.Exchange.RecvWindowMs = 5000
	}
	if c.Exchange.HTTPTimeoutSec == 0 {
		c.Exchange.HTTPTimeoutSec = 15
	}
	if c.Exchange.MaxRequestsPerSec == 0 {
		c.Exchange.MaxRequestsPerSec = 10
	}
	if c.Exchange.TradeHistoryLimit == 0 {
		c.Exchange.TradeHistoryLimit = 50
	}
	if c.Refresh.IntervalSec == 0 {
		c.Refresh.IntervalSec = DefaultRefreshIntervalSec
	}
	if c.Refresh.PageSize == 0 {
		c.Refresh.PageSize = DefaultPageSize
	}
	if c.Display.Mode == "" {
		c.Display.Mode = DisplayAuto
	}
	if c.Display.Locale == "" {
		c.Display.Locale = "zh-CN"
	}
	if c.Display.Timezone == "" {
		c.Display.Timezone = "Local"
	}
	if c.Stream.WSBaseURL == "" {
		c.Stream.WSBaseURL = "wss://fstream.binance.com/ws"
	}
	if c.Stream.KeepaliveMin == 0 {
		c.Stream.KeepaliveMin = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "logs/futuresmon.log"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 20
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 7
	}
}

// Validate checks everything except credentials, which may still be
// entered interactively after loading.
func (c Config) Validate() error {
	if c.Exchange.KeyType != KeyTypeHMAC && c.Exchange.KeyType != KeyTypeEd25519 {
		return fmt.Errorf("exchange key_type must be hmac or ed25519")
	}
	if c.Exchange.KeyType == KeyTypeEd25519 && c.Exchange.Ed25519KeyPath == "" {
		return fmt.Errorf("exchange ed25519_private_key_path is required for ed25519 keys")
	}
	if err := validateURL(c.Exchange.RestBaseURL, "http", "https"); err != nil {
		return fmt.Errorf("exchange rest_base_url %v", err)
	}
	if c.Exchange.RecvWindowMs < 0 || c.Exchange.RecvWindowMs > 60000 {
		return fmt.Errorf("exchange recv_window_ms must be between 0 and 60000")
	}
	if c.Exchange.HTTPTimeoutSec < 1 || c.Exchange.HTTPTimeoutSec > 120 {
		return fmt.Errorf("exchange http_timeout_sec must be between 1 and 120")
	}
	if c.Exchange.MaxRequestsPerSec < 0 || c.Exchange.MaxRequestsPerSec > 100 {
		return fmt.Errorf("exchange max_requests_per_sec must be between 0 and 100")
	}
	if c.Exchange.TradeHistoryLimit < 1 || c.Exchange.TradeHistoryLimit > 1000 {
		return fmt.Errorf("exchange trade_history_limit must be between 1 and 1000")
	}
	if c.Refresh.IntervalSec < MinRefreshIntervalSec || c.Refresh.IntervalSec > MaxRefreshIntervalSec {
		return fmt.Errorf("refresh interval_sec must be between %d and %d", MinRefreshIntervalSec, MaxRefreshIntervalSec)
	}
	if c.Refresh.PageSize < 1 || c.Refresh.PageSize > 100 {
		return fmt.Errorf("refresh page_size must be between 1 and 100")
	}
	switch c.Display.Mode {
	case DisplayAuto, DisplayTUI, DisplayPlain:
	default:
		return fmt.Errorf("display mode must be auto, tui, or plain")
	}
	if _, err := language.Parse(c.Display.Locale); err != nil {
		return fmt.Errorf("display locale %q is not a valid language tag", c.Display.Locale)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("display timezone %v", err)
	}
	if c.Stream.Enabled {
		if err := validateURL(c.Stream.WSBaseURL, "ws", "wss"); err != nil {
			return fmt.Errorf("stream ws_base_url %v", err)
		}
		if c.Stream.KeepaliveMin < 1 || c.Stream.KeepaliveMin > 59 {
			return fmt.Errorf("stream keepalive_min must be between 1 and 59")
		}
	}
	if c.HTTP.Listen != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Listen); err != nil {
			return fmt.Errorf("http listen must be host:port: %w", err)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn, or error")
	}
	if c.Log.MaxSizeMB < 1 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must be positive")
	}
	return nil
}

// Interval is the refresh interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Refresh.IntervalSec) * time.Second
}

// Location resolves the display timezone.
func (c Config) Location() (*time.Location, error) {
	switch c.Display.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Display.Timezone)
}

// NeedsSecret reports whether the key type signs with the API secret.
func (e ExchangeConfig) NeedsSecret() bool {
	return e.KeyType != KeyTypeEd25519
}

// CredentialsReady gates the transition from idle to polling.
func (e ExchangeConfig) CredentialsReady() bool {
	if e.APIKey == "" {
		return false
	}
	if e.NeedsSecret() {
		return e.APISecret != ""
	}
	return e.Ed25519KeyPath != ""
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
