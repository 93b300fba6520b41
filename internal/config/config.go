package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	REST     RESTConfig     `yaml:"rest"`
	WS       WSConfig       `yaml:"ws"`
	Engine   EngineConfig   `yaml:"engine"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Stats    StatsConfig    `yaml:"stats"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type RESTConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Simulated bool          `yaml:"simulated"`
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`
}

type WSConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type EngineConfig struct {
	Currency           string        `yaml:"currency"`
	QuoteCurrency      string        `yaml:"quote_currency"`
	PriceDiff          float64       `yaml:"price_diff"`
	AccelerateAfter    time.Duration `yaml:"accelerate_after"`
	StatusPollInterval time.Duration `yaml:"status_poll_interval"`
	TopUpMargin        bool          `yaml:"top_up_margin"`
}

type LedgerConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	Account    int    `yaml:"account"`
}

type StatsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled != nil && *m.Enabled
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "json"
	}
	if cfg.REST.BaseURL == "" {
		cfg.REST.BaseURL = "https://www.okx.com"
	}
	if cfg.REST.Timeout == 0 {
		cfg.REST.Timeout = 10 * time.Second
	}
	if cfg.REST.RateLimit <= 0 {
		cfg.REST.RateLimit = 10
	}
	if cfg.REST.RateBurst <= 0 {
		cfg.REST.RateBurst = 20
	}
	if cfg.WS.URL == "" {
		cfg.WS.URL = "wss://ws.okx.com:8443/ws/v5/public"
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = 3 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 25 * time.Second
	}
	if cfg.Engine.QuoteCurrency == "" {
		cfg.Engine.QuoteCurrency = "USDT"
	}
	if cfg.Engine.PriceDiff == 0 {
		cfg.Engine.PriceDiff = 0.002
	}
	if cfg.Engine.StatusPollInterval == 0 {
		cfg.Engine.StatusPollInterval = 500 * time.Millisecond
	}
	if cfg.Ledger.SQLitePath == "" {
		cfg.Ledger.SQLitePath = "data/okx-unwind-bot.db"
	}
	if cfg.Ledger.Account == 0 {
		cfg.Ledger.Account = 1
	}
	if cfg.Stats.Schema == "" {
		cfg.Stats.Schema = "public"
	}
	if cfg.Stats.QueueSize <= 0 {
		cfg.Stats.QueueSize = 256
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("OKX_TELEGRAM_TOKEN")); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := strings.TrimSpace(os.Getenv("OKX_TELEGRAM_CHAT_ID")); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
}

func validate(cfg *Config) error {
	if cfg.Log.Encoding != "json" && cfg.Log.Encoding != "console" {
		return errors.New("log.encoding must be json or console")
	}
	if cfg.Engine.Currency == "" {
		return errors.New("engine.currency is required")
	}
	if cfg.Engine.PriceDiff < 0 {
		return errors.New("engine.price_diff must be >= 0")
	}
	if cfg.Engine.AccelerateAfter < 0 {
		return errors.New("engine.accelerate_after must be >= 0")
	}
	if cfg.Engine.StatusPollInterval <= 0 {
		return errors.New("engine.status_poll_interval must be > 0")
	}
	if cfg.Stats.Enabled && strings.TrimSpace(cfg.Stats.DSN) == "" {
		return errors.New("stats.dsn is required when stats are enabled")
	}
	if cfg.Engine.AccelerateAfter > 0 && !cfg.Stats.Enabled {
		return errors.New("engine.accelerate_after requires stats to be enabled")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}

// SpotInstID returns the OKX spot instrument id, e.g. BTC-USDT.
func (e EngineConfig) SpotInstID() string {
	return e.Currency + "-" + e.QuoteCurrency
}

// SwapInstID returns the inverse perpetual instrument id, e.g. BTC-USD-SWAP.
func (e EngineConfig) SwapInstID() string {
	return e.Currency + "-USD-SWAP"
}
