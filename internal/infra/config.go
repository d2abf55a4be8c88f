package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings. LoadConfig layers the YAML file on
// top of Default and then applies environment variable overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Trading struct {
		// OrderFee is the flat fee charged on every buy and sell.
		OrderFee decimal.Decimal `yaml:"order_fee"`
		// PennyFloor and RecoveryFactor model a corporate-action-like
		// correction: a quote stuck at the floor is forced back up.
		PennyFloor     decimal.Decimal `yaml:"penny_floor"`
		RecoveryFactor decimal.Decimal `yaml:"recovery_factor"`
		// PriceCeiling and SplitFactor halve a runaway quote, split-style.
		PriceCeiling decimal.Decimal `yaml:"price_ceiling"`
		SplitFactor  decimal.Decimal `yaml:"split_factor"`
		// MaxChangePercent bounds the random-walk move per trade.
		MaxChangePercent float64 `yaml:"max_change_percent"`
		// SeedSymbols are created at startup if missing.
		SeedSymbols []string        `yaml:"seed_symbols"`
		SeedPrice   decimal.Decimal `yaml:"seed_price"`
	} `yaml:"trading"`

	Summary struct {
		// RefreshIntervalSec: 0 recomputes on every call, negative never
		// refreshes, positive is the single-flight refresh window.
		RefreshIntervalSec int `yaml:"refresh_interval_sec"`
	} `yaml:"summary"`

	Queue struct {
		BufferSize      int `yaml:"buffer_size"`
		Workers         int `yaml:"workers"`
		MaxRedeliveries int `yaml:"max_redeliveries"`
	} `yaml:"queue"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns a configuration with working defaults. Tests build on this.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "TradeGo"
	cfg.App.Version = "1.0.0"
	cfg.Database.Path = "data/trade.db"
	cfg.Trading.OrderFee = decimal.NewFromFloat(24.95)
	cfg.Trading.PennyFloor = decimal.NewFromFloat(0.01)
	cfg.Trading.RecoveryFactor = decimal.NewFromInt(600)
	cfg.Trading.PriceCeiling = decimal.NewFromInt(400)
	cfg.Trading.SplitFactor = decimal.NewFromFloat(0.5)
	cfg.Trading.MaxChangePercent = 10
	cfg.Trading.SeedPrice = decimal.NewFromInt(100)
	cfg.Summary.RefreshIntervalSec = 20
	cfg.Queue.BufferSize = 1024
	cfg.Queue.Workers = 4
	cfg.Queue.MaxRedeliveries = 3
	cfg.HTTP.Addr = ":8080"
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Trading.OrderFee.IsNegative() {
		return fmt.Errorf("order fee must not be negative")
	}
	if !c.Trading.PennyFloor.IsPositive() {
		return fmt.Errorf("penny floor must be positive")
	}
	if !c.Trading.PriceCeiling.GreaterThan(c.Trading.PennyFloor) {
		return fmt.Errorf("price ceiling must exceed the penny floor")
	}
	if !c.Trading.RecoveryFactor.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("recovery factor must exceed 1")
	}
	if !c.Trading.SplitFactor.IsPositive() || !c.Trading.SplitFactor.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("split factor must be in (0, 1)")
	}
	if c.Trading.MaxChangePercent <= 0 || c.Trading.MaxChangePercent > 100 {
		return fmt.Errorf("max change percent must be in (0, 100]")
	}
	if c.Queue.BufferSize <= 0 {
		return fmt.Errorf("queue buffer size must be positive")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue workers must be positive")
	}
	if c.Queue.MaxRedeliveries < 0 {
		return fmt.Errorf("max redeliveries must not be negative")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http addr is required")
	}
	return nil
}

// overrideWithEnv applies environment variable overrides when present.
func overrideWithEnv(cfg *Config) {
	if path := os.Getenv("TRADE_DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if addr := os.Getenv("TRADE_HTTP_ADDR"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if level := os.Getenv("TRADE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
