// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes the venue the engine quotes against.
type Exchange struct {
	Venue           string  `yaml:"venue"`
	Symbol          string  `yaml:"symbol"`
	StartingBalance float64 `yaml:"starting_balance"`
}

// Pricing groups tunable knobs for a quote model.
type Pricing struct {
	Kind       string  `yaml:"kind"`
	Spread     float64 `yaml:"spread"`
	Quantity   float64 `yaml:"quantity"`
	Leverage   int     `yaml:"leverage"`
	SkewFactor float64 `yaml:"skew_factor"`
}

// Risk encodes guard-rails the gate enforces before a parameter change or quote cycle.
type Risk struct {
	MinSpread     float64 `yaml:"min_spread"`
	MaxSpread     float64 `yaml:"max_spread"`
	MaxSkewFactor float64 `yaml:"max_skew_factor"`
	MaxPosition   float64 `yaml:"max_position"`
}

// Engine tunes the quote cycle cadence and the bounded histories each unit keeps.
type Engine struct {
	RefreshIntervalMs int     `yaml:"refresh_interval_ms"`
	StaleAfterMs      int     `yaml:"stale_after_ms"`
	ToleranceAbs      float64 `yaml:"tolerance_abs"`
	ToleranceRel      float64 `yaml:"tolerance_rel"`
	OrderHistory      int     `yaml:"order_history"`
	ErrorHistory      int     `yaml:"error_history"`
	PnLHistory        int     `yaml:"pnl_history"`
	StageTrail        int     `yaml:"stage_trail"`
}

// Advisor selects the parameter advisor wired into the orchestrator.
type Advisor struct {
	Mode string
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Pricing  Pricing  `yaml:"pricing"`
	Risk     Risk     `yaml:"risk"`
	Engine   Engine   `yaml:"engine"`
	Advisor  Advisor  `yaml:"advisor"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
