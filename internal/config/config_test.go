package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "quoted-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9091" {
		t.Fatalf("unexpected App.MetricsAddr: %s", cfg.App.MetricsAddr)
	}
	if cfg.Exchange.Venue != "paper" {
		t.Fatalf("unexpected venue: %s", cfg.Exchange.Venue)
	}
	if cfg.Exchange.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected symbol: %s", cfg.Exchange.Symbol)
	}
	if cfg.Exchange.StartingBalance != 5000 {
		t.Fatalf("unexpected starting balance: %.2f", cfg.Exchange.StartingBalance)
	}
	if cfg.Pricing.Kind != "funding_skew" {
		t.Fatalf("unexpected pricing kind: %s", cfg.Pricing.Kind)
	}
	if cfg.Pricing.Spread != 0.015 {
		t.Fatalf("unexpected spread: %.4f", cfg.Pricing.Spread)
	}
	if cfg.Pricing.Quantity != 0.02 {
		t.Fatalf("unexpected quantity: %.4f", cfg.Pricing.Quantity)
	}
	if cfg.Pricing.Leverage != 5 {
		t.Fatalf("unexpected leverage: %d", cfg.Pricing.Leverage)
	}
	if cfg.Pricing.SkewFactor != 100 {
		t.Fatalf("unexpected skew factor: %.1f", cfg.Pricing.SkewFactor)
	}
	if cfg.Risk.MinSpread != 0.001 {
		t.Fatalf("unexpected min spread: %.4f", cfg.Risk.MinSpread)
	}
	if cfg.Risk.MaxSpread != 0.05 {
		t.Fatalf("unexpected max spread: %.4f", cfg.Risk.MaxSpread)
	}
	if cfg.Risk.MaxSkewFactor != 500 {
		t.Fatalf("unexpected max skew factor: %.1f", cfg.Risk.MaxSkewFactor)
	}
	if cfg.Risk.MaxPosition != 0.5 {
		t.Fatalf("unexpected max position: %.2f", cfg.Risk.MaxPosition)
	}
	if cfg.Engine.RefreshIntervalMs != 2000 {
		t.Fatalf("unexpected refresh interval: %d", cfg.Engine.RefreshIntervalMs)
	}
	if cfg.Engine.StaleAfterMs != 5000 {
		t.Fatalf("unexpected stale after: %d", cfg.Engine.StaleAfterMs)
	}
	if cfg.Engine.ToleranceAbs != 0.01 {
		t.Fatalf("unexpected tolerance: %.4f", cfg.Engine.ToleranceAbs)
	}
	if cfg.Engine.OrderHistory != 200 {
		t.Fatalf("unexpected order history: %d", cfg.Engine.OrderHistory)
	}
	if cfg.Engine.PnLHistory != 100 {
		t.Fatalf("unexpected pnl history: %d", cfg.Engine.PnLHistory)
	}
	if cfg.Advisor.Mode != "rule_based" {
		t.Fatalf("unexpected advisor mode: %s", cfg.Advisor.Mode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	want := &Config{
		App:      App{Name: "quoted", Env: "dev", LogLevel: "debug"},
		Exchange: Exchange{Venue: "binance_shadow", Symbol: "ETHUSDT", StartingBalance: 1000},
		Pricing:  Pricing{Kind: "fixed", Spread: 0.002, Quantity: 0.1, Leverage: 3},
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Exchange.Symbol != "ETHUSDT" || got.Pricing.Spread != 0.002 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSaveNil(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "config.yaml"), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
