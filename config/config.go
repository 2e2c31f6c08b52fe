package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the static process configuration loaded at startup. Trading
// parameters live in Snapshot and flow through the settings store so the
// dashboard can change them between cycles.
type Config struct {
	Blofin       BlofinConfig       `json:"blofin"`
	Trading      Snapshot           `json:"trading"`
	Notification NotificationConfig `json:"notification"`
	Server       ServerConfig       `json:"server"`
	Redis        RedisConfig        `json:"redis"`
	Logging      LoggingConfig      `json:"logging"`
}

// BlofinConfig holds exchange API credentials
type BlofinConfig struct {
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Passphrase string `json:"passphrase"`
	BaseURL    string `json:"base_url"`
	Demo       bool   `json:"demo"`
}

// Snapshot is the immutable per-cycle view of the trading parameters. The
// worker reads one snapshot at the start of each cycle and never sees
// mid-cycle mutations.
type Snapshot struct {
	Timeframe       string  `json:"timeframe"`
	PositionSize    float64 `json:"position_size"` // USD notional per entry
	Leverage        int     `json:"leverage"`
	Isolated        bool    `json:"isolated"`
	MaxPositions    int     `json:"max_positions"`
	TopCoinsToScan  int     `json:"top_coins_to_scan"`
	SMAPeriod       int     `json:"sma_period"`
	EMAPeriod       int     `json:"ema_period"`
	MinQuoteVolume  float64 `json:"min_quote_volume"`
	ScaleMultiplier float64 `json:"scale_multiplier"`
	QuoteAsset      string  `json:"quote_asset"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

// validTimeframes is the set of candle intervals the exchange supports
var validTimeframes = map[string]bool{
	"1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "4h": true, "1d": true,
}

// ValidTimeframe reports whether tf is a supported candle interval
func ValidTimeframe(tf string) bool {
	return validTimeframes[tf]
}

// DefaultSnapshot returns the default trading parameters
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Timeframe:       "1h",
		PositionSize:    100,
		Leverage:        3,
		Isolated:        true,
		MaxPositions:    3,
		TopCoinsToScan:  10,
		SMAPeriod:       21,
		EMAPeriod:       34,
		MinQuoteVolume:  1_000_000,
		ScaleMultiplier: 1.1,
		QuoteAsset:      "USDT",
	}
}

// Load reads configuration from an optional JSON file, then applies
// environment overrides. A missing file falls back to defaults; a malformed
// one is an error.
func Load(path string) (*Config, error) {
	// .env is optional and only a convenience for local runs
	_ = godotenv.Load()

	cfg := &Config{
		Blofin: BlofinConfig{
			BaseURL: "https://openapi.blofin.com",
		},
		Trading: DefaultSnapshot(),
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	// Demo accounts live on a separate host unless one was set explicitly
	if cfg.Blofin.Demo && cfg.Blofin.BaseURL == "https://openapi.blofin.com" {
		cfg.Blofin.BaseURL = "https://demo-trading-openapi.blofin.com"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BLOFIN_API_KEY"); v != "" {
		c.Blofin.APIKey = v
	}
	if v := os.Getenv("BLOFIN_API_SECRET"); v != "" {
		c.Blofin.APISecret = v
	}
	if v := os.Getenv("BLOFIN_PASSPHRASE"); v != "" {
		c.Blofin.Passphrase = v
	}
	if v := os.Getenv("BLOFIN_DEMO"); v != "" {
		c.Blofin.Demo = v == "true" || v == "1"
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Notification.Telegram.BotToken = v
		c.Notification.Telegram.Enabled = true
		c.Notification.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Notification.Telegram.ChatID = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Notification.Discord.WebhookURL = v
		c.Notification.Discord.Enabled = true
		c.Notification.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		c.Trading.Timeframe = v
	}
	if v := os.Getenv("POSITION_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trading.PositionSize = f
		}
	}
	if v := os.Getenv("LEVERAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Trading.Leverage = n
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
}

// Validate checks the configuration. Failures here are fatal at startup; the
// worker must never start with a broken config.
func (c *Config) Validate() error {
	if c.Blofin.APIKey == "" || c.Blofin.APISecret == "" {
		return fmt.Errorf("missing required configuration: BLOFIN_API_KEY and BLOFIN_API_SECRET must be set")
	}
	return c.Trading.Validate()
}

// Validate checks a trading snapshot for internal consistency
func (s Snapshot) Validate() error {
	if !ValidTimeframe(s.Timeframe) {
		return fmt.Errorf("invalid timeframe: %s", s.Timeframe)
	}
	if s.PositionSize <= 0 {
		return fmt.Errorf("position_size must be positive, got %v", s.PositionSize)
	}
	if s.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive, got %d", s.Leverage)
	}
	if s.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive, got %d", s.MaxPositions)
	}
	if s.TopCoinsToScan <= 0 {
		return fmt.Errorf("top_coins_to_scan must be positive, got %d", s.TopCoinsToScan)
	}
	if s.SMAPeriod <= 0 || s.EMAPeriod <= 0 {
		return fmt.Errorf("sma_period and ema_period must be positive")
	}
	if s.ScaleMultiplier <= 0 {
		return fmt.Errorf("scale_multiplier must be positive, got %v", s.ScaleMultiplier)
	}
	if s.QuoteAsset == "" {
		return fmt.Errorf("quote_asset must be set")
	}
	return nil
}
