// Package config loads and validates the simulation configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete backtest configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	API      APIConfig      `json:"api" yaml:"api"`
}

// AccountConfig contains the starting ledger state.
type AccountConfig struct {
	ID   string  `json:"id" yaml:"id"`
	Cash float64 `json:"cash" yaml:"cash"`
}

// DataConfig points at the replayed time series.
type DataConfig struct {
	CSVPath    string `json:"csv_path" yaml:"csv_path"`
	Instrument string `json:"instrument" yaml:"instrument"`
}

// StrategyConfig contains strategy selection and parameters.
type StrategyConfig struct {
	Name       string  `json:"name" yaml:"name"`
	Instrument string  `json:"instrument" yaml:"instrument"`
	Field      string  `json:"field,omitempty" yaml:"field,omitempty"`
	Hi         float64 `json:"hi,omitempty" yaml:"hi,omitempty"`
	Lo         float64 `json:"lo,omitempty" yaml:"lo,omitempty"`
	Fast       int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow       int     `json:"slow,omitempty" yaml:"slow,omitempty"`
	Quantity   float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Notional   float64 `json:"notional,omitempty" yaml:"notional,omitempty"`
}

// BrokerConfig contains the execution cost model.
type BrokerConfig struct {
	Commission float64 `json:"commission" yaml:"commission"`
	SlippageBP float64 `json:"slippage_bp" yaml:"slippage_bp"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// APIConfig contains the replay API server parameters.
type APIConfig struct {
	Addr      string  `json:"addr" yaml:"addr"`
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"` // replays per second
	Burst     int     `json:"burst" yaml:"burst"`
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// content; YAML is tried first).
func LoadFromFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(b, cfg); err != nil {
		if jerr := json.Unmarshal(b, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Cash <= 0 {
		return fmt.Errorf("account.cash must be positive")
	}
	if c.Data.CSVPath == "" {
		return fmt.Errorf("data.csv_path is required")
	}
	if c.Data.Instrument == "" {
		return fmt.Errorf("data.instrument is required")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Broker.Commission < 0 {
		return fmt.Errorf("broker.commission must not be negative")
	}
	if c.Broker.SlippageBP < 0 {
		return fmt.Errorf("broker.slippage_bp must not be negative")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:   "SIM-001",
			Cash: 100_000,
		},
		Data: DataConfig{
			Instrument: "SP500",
		},
		Strategy: StrategyConfig{
			Name:       "threshold",
			Instrument: "SP500",
			Field:      "pe",
			Hi:         25,
			Lo:         15,
			Notional:   5_000,
		},
		Broker: BrokerConfig{
			Commission: 0,
			SlippageBP: 0,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		API: APIConfig{
			Addr:      ":8000",
			RateLimit: 1,
			Burst:     2,
		},
	}
}
