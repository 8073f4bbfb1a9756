// Binary quoted runs the live quote engine: one execution unit on the
// configured venue, driven on a fixed tick by the orchestrator.
package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/advisor"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/config"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/engine"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/exchange"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/metrics"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/pricing"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/reconcile"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/risk"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/sim"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort

	path := os.Getenv("QUOTED_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	log := util.NewLogger("info")
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	params := pricing.Params{
		Spread:     cfg.Pricing.Spread,
		Quantity:   cfg.Pricing.Quantity,
		Leverage:   cfg.Pricing.Leverage,
		SkewFactor: cfg.Pricing.SkewFactor,
	}
	pricer := pricing.Build(cfg.Pricing.Kind, params)
	gate := risk.NewGate(risk.Limits{
		MinSpread:     cfg.Risk.MinSpread,
		MaxSpread:     cfg.Risk.MaxSpread,
		MaxSkewFactor: cfg.Risk.MaxSkewFactor,
		MaxPosition:   cfg.Risk.MaxPosition,
	})

	paper := exchange.NewPaper(cfg.Exchange.Symbol, cfg.Exchange.StartingBalance, log)

	var client exchange.Client
	var walk *sim.Simulator
	switch cfg.Exchange.Venue {
	case "binance_shadow":
		feed := exchange.NewBookFeed(cfg.Exchange.Symbol, log)
		go func() {
			if err := feed.Run(ctx); err != nil {
				log.Error().Err(err).Msg("book feed stopped")
				cancel()
			}
		}()
		client = exchange.NewShadow(feed, paper)
	default:
		// Pure paper mode has no live book; a random walk feeds the venue.
		walk = sim.New(pricing.Build(cfg.Pricing.Kind, params), log)
		paper.SetBook(walk.Snapshot())
		client = paper
	}

	unit := engine.NewUnit(engine.UnitConfig{
		ID:           cfg.App.Name,
		Client:       client,
		Pricer:       pricer,
		Gate:         gate,
		Tolerance:    reconcile.Tolerance{Absolute: cfg.Engine.ToleranceAbs, Relative: cfg.Engine.ToleranceRel},
		StaleAfter:   time.Duration(cfg.Engine.StaleAfterMs) * time.Millisecond,
		OrderHistory: cfg.Engine.OrderHistory,
		ErrorHistory: cfg.Engine.ErrorHistory,
		PnLHistory:   cfg.Engine.PnLHistory,
	}, log)

	var adv advisor.Advisor = advisor.Noop{}
	if cfg.Advisor.Mode == "rule_based" {
		adv = advisor.NewRuleBased(log)
	}

	orch := engine.NewOrchestrator(engine.OrchestratorConfig{
		Advisor:      adv,
		Gate:         gate,
		ErrorHistory: cfg.Engine.ErrorHistory,
		StageTrail:   cfg.Engine.StageTrail,
	}, log)
	if err := orch.Add(unit); err != nil {
		log.Fatal().Err(err).Msg("register unit")
	}

	interval := time.Duration(cfg.Engine.RefreshIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("venue", client.Name()).Str("symbol", cfg.Exchange.Symbol).Msg("quote engine started")
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			if err := orch.Remove(shutdownCtx, cfg.App.Name); err != nil {
				log.Error().Err(err).Msg("shutdown cleanup")
			}
			done()
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			if walk != nil {
				walk.Step()
				paper.SetBook(walk.Snapshot())
			}
			orch.Tick(ctx)
		}
	}
}
