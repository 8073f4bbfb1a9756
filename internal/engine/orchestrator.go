package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/advisor"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/exchange"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/metrics"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/ring"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/risk"
	"github.com/bryanzk/MarketMakerDemo-sub001/internal/sim"
)

const (
	defaultGlobalErrors = 200
	defaultStageTrail   = 50
)

// StageEvent is one entry of the orchestrator's bounded observability trail.
type StageEvent struct {
	Timestamp time.Time
	Stage     string
	Detail    string
}

// EngineStatus is the aggregate view across all registered units.
type EngineStatus struct {
	Units  []UnitStatus
	Errors []ErrorRecord
	Stages []StageEvent
}

// OrchestratorConfig assembles an orchestrator. Nil Advisor disables
// proposals; nil Fallback disables the telemetry simulation; zero history
// bounds fall back to defaults.
type OrchestratorConfig struct {
	Advisor      advisor.Advisor
	Gate         *risk.Gate
	Fallback     *sim.Simulator
	ErrorHistory int
	StageTrail   int
}

// Orchestrator owns the unit registry and drives the global tick. Each tick
// is stateless beyond the registry: a transient failure self-heals on the
// next tick with no explicit retry logic.
type Orchestrator struct {
	mu       sync.Mutex
	units    map[string]*Unit
	order    []string
	adv      advisor.Advisor
	gate     *risk.Gate
	fallback *sim.Simulator
	errors   *ring.Buffer[ErrorRecord]
	stages   *ring.Buffer[StageEvent]
	log      zerolog.Logger
	now      func() time.Time
}

// NewOrchestrator builds an orchestrator with an empty registry.
func NewOrchestrator(cfg OrchestratorConfig, log zerolog.Logger) *Orchestrator {
	if cfg.Advisor == nil {
		cfg.Advisor = advisor.Noop{}
	}
	if cfg.Gate == nil {
		cfg.Gate = risk.NewGate(risk.DefaultLimits())
	}
	if cfg.ErrorHistory <= 0 {
		cfg.ErrorHistory = defaultGlobalErrors
	}
	if cfg.StageTrail <= 0 {
		cfg.StageTrail = defaultStageTrail
	}
	return &Orchestrator{
		units:    make(map[string]*Unit),
		adv:      cfg.Advisor,
		gate:     cfg.Gate,
		fallback: cfg.Fallback,
		errors:   ring.New[ErrorRecord](cfg.ErrorHistory),
		stages:   ring.New[StageEvent](cfg.StageTrail),
		log:      log.With().Str("component", "orchestrator").Logger(),
		now:      time.Now,
	}
}

// Add registers a unit and starts it.
func (o *Orchestrator) Add(u *Unit) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.units[u.ID()]; exists {
		return fmt.Errorf("unit %s already registered", u.ID())
	}
	o.units[u.ID()] = u
	o.order = append(o.order, u.ID())
	u.Start()
	o.log.Info().Str("strategy", u.ID()).Str("model", u.Name()).Msg("unit registered")
	return nil
}

// Remove cancels the unit's tracked orders and discards it.
func (o *Orchestrator) Remove(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	u, ok := o.units[id]
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}
	if err := u.Close(ctx); err != nil {
		return fmt.Errorf("close unit %s: %w", id, err)
	}
	delete(o.units, id)
	for i, uid := range o.order {
		if uid == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	o.log.Info().Str("strategy", id).Msg("unit removed")
	return nil
}

// Start resumes the identified unit.
func (o *Orchestrator) Start(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	u, ok := o.units[id]
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}
	u.Start()
	return nil
}

// Stop pauses the identified unit without cancelling its orders.
func (o *Orchestrator) Stop(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	u, ok := o.units[id]
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}
	u.Stop()
	return nil
}

// SwitchStrategy swaps the identified unit's quote model.
func (o *Orchestrator) SwitchStrategy(id, kind string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	u, ok := o.units[id]
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}
	u.SwitchStrategy(kind)
	return nil
}

// SetSymbol changes the identified unit's instrument.
func (o *Orchestrator) SetSymbol(id, symbol string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	u, ok := o.units[id]
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}
	if !u.SetSymbol(symbol) {
		return fmt.Errorf("venue %s refused symbol %s", u.client.Name(), symbol)
	}
	return nil
}

// Unit returns the identified unit for inspection.
func (o *Orchestrator) Unit(id string) (*Unit, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	u, ok := o.units[id]
	return u, ok
}

// Tick runs one global cycle: every running unit in registration order, the
// telemetry simulation when nothing is live, then the advisory pass. One
// unit's failure never aborts the tick for its siblings.
func (o *Orchestrator) Tick(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ran := 0
	for _, id := range o.order {
		u := o.units[id]
		if !u.Running() {
			continue
		}
		o.runUnit(ctx, u)
		ran++
	}

	switch {
	case ran > 0:
		o.stage("execution", fmt.Sprintf("%d units", ran))
	case o.fallback != nil:
		o.fallback.Step()
		o.stage("simulation", "no active units, telemetry walk")
	default:
		o.stage("idle", "no active units")
	}

	o.advise()
}

// Status returns the aggregate view across units plus the global histories.
func (o *Orchestrator) Status() EngineStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	units := make([]UnitStatus, 0, len(o.order))
	for _, id := range o.order {
		units = append(units, o.units[id].Status())
	}
	return EngineStatus{
		Units:  units,
		Errors: o.errors.Items(),
		Stages: o.stages.Items(),
	}
}

// Orders aggregates every unit's order history in registration order.
func (o *Orchestrator) Orders() []OrderRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []OrderRecord
	for _, id := range o.order {
		out = append(out, o.units[id].OrderHistory()...)
	}
	return out
}

// ActiveOrders aggregates every unit's tracked order ids.
func (o *Orchestrator) ActiveOrders() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, id := range o.order {
		out = append(out, o.units[id].ActiveOrderIDs()...)
	}
	return out
}

// Errors returns the global error history, oldest first.
func (o *Orchestrator) Errors() []ErrorRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errors.Items()
}

// Stages returns the observability trail, oldest first.
func (o *Orchestrator) Stages() []StageEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stages.Items()
}

// runUnit executes one unit's cycle with panic containment at the unit
// boundary. Failures are mirrored into the global error history.
func (o *Orchestrator) runUnit(ctx context.Context, u *Unit) {
	defer func() {
		if r := recover(); r != nil {
			rec := newErrorRecord(exchange.KindUnknown, fmt.Sprintf("cycle panic: %v", r), u.Symbol(), u.ID())
			u.errors.Append(rec)
			o.errors.Append(rec)
			metrics.CyclesTotal.WithLabelValues(u.ID(), "panic").Inc()
			o.log.Error().Str("strategy", u.ID()).Str("trace_id", rec.TraceID).Msgf("cycle panic: %v", r)
		}
	}()
	if err := u.Cycle(ctx); err != nil {
		if hist := u.ErrorHistory(); len(hist) > 0 {
			o.errors.Append(hist[len(hist)-1])
		}
	}
}

// advise requests one proposal per running unit and applies it behind the
// risk gate. A rejection restores the safe defaults and raises an alert
// naming the restored spread; a half-applied change is never left behind.
func (o *Orchestrator) advise() {
	for _, id := range o.order {
		u := o.units[id]
		if !u.Running() {
			continue
		}
		prop := o.adv.Propose(u.Params(), u.AdvisorStats())
		if prop == nil {
			continue
		}
		ok, reason := o.gate.ValidateProposal(*prop)
		if !ok {
			restored := u.ResetParams()
			u.SetAlert(Alert{
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("Proposal rejected: %s", reason),
				Suggestion: fmt.Sprintf("Safe defaults restored (spread %.2f%%)", restored.Spread*100),
			})
			metrics.ProposalsTotal.WithLabelValues(id, "rejected").Inc()
			o.log.Warn().Str("strategy", id).Str("reason", reason).Msg("proposal rejected")
			continue
		}
		params := u.Params()
		params.Spread = prop.Spread
		if prop.SkewFactor != nil {
			params.SkewFactor = *prop.SkewFactor
		}
		u.ApplyParams(params)
		metrics.ProposalsTotal.WithLabelValues(id, "approved").Inc()
		o.log.Info().Str("strategy", id).Float64("spread", params.Spread).Msg("proposal applied")
	}
}

func (o *Orchestrator) stage(name, detail string) {
	o.stages.Append(StageEvent{Timestamp: o.now(), Stage: name, Detail: detail})
}
