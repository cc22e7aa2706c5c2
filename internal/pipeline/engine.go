package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/radio-ops-platform/internal/audit"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/observability/metrics"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

var tracer = otel.Tracer("radio.internal.pipeline")

var (
	// ErrBenefitActivation wraps a failed activation hook; the claim is released so a later pass can retry.
	ErrBenefitActivation = errors.New("pipeline: benefit activation failed")
	errMissingLeads      = errors.New("pipeline: lead store required")
)

// LeadStore is the slice of the lead repository the engine writes to.
type LeadStore interface {
	UpdateStage(ctx context.Context, id string, stage persona.Stage) error
	leads.BenefitGuard
}

// Transition describes what Advance did.
type Transition struct {
	From             persona.Stage
	To               persona.Stage
	Changed          bool
	Regressed        bool
	BenefitActivated bool
}

// Config wires an Engine.
type Config struct {
	Leads     LeadStore
	Activator BenefitActivator
	Audit     audit.Recorder
	Metrics   *metrics.OutreachMetrics
	Logger    *logging.Logger
	Now       func() time.Time
}

// Engine applies transition tables and benefit side effects.
type Engine struct {
	leads     LeadStore
	activator BenefitActivator
	audit     audit.Recorder
	metrics   *metrics.OutreachMetrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Leads == nil {
		return nil, errMissingLeads
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Activator == nil {
		cfg.Activator = NewLogActivator(cfg.Logger)
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		leads:     cfg.Leads,
		activator: cfg.Activator,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}, nil
}

// Advance persists the stage intent maps to, records the change and runs side effects for the
// resulting stage. lead is updated in place.
func (e *Engine) Advance(ctx context.Context, lead *leads.Lead, p *persona.Persona, intent persona.Intent) (Transition, error) {
	ctx, span := tracer.Start(ctx, "pipeline.advance")
	defer span.End()
	span.SetAttributes(attribute.String("lead_id", lead.ID), attribute.String("intent", string(intent)))

	tr := Transition{From: lead.Stage, To: lead.Stage}
	if to, ok := Next(p, lead.Stage, intent); ok {
		if err := e.leads.UpdateStage(ctx, lead.ID, to); err != nil {
			span.RecordError(err)
			return tr, fmt.Errorf("pipeline: update stage: %w", err)
		}
		tr.To = to
		tr.Changed = true
		tr.Regressed = IsRegression(p, tr.From, to)
		lead.Stage = to
		e.recordChange(ctx, lead, p, intent, tr)
	}

	activated, err := e.ApplySideEffects(ctx, lead, p, lead.Stage)
	tr.BenefitActivated = activated
	if err != nil {
		span.RecordError(err)
		return tr, err
	}
	return tr, nil
}

func (e *Engine) recordChange(ctx context.Context, lead *leads.Lead, p *persona.Persona, intent persona.Intent, tr Transition) {
	e.metrics.ObserveTransition(string(p.Family), string(tr.From), string(tr.To))
	if tr.Regressed {
		e.logger.Warn("lead stage moved backwards", "lead_id", lead.ID, "from", tr.From, "to", tr.To, "intent", intent)
	} else {
		e.logger.Info("lead stage changed", "lead_id", lead.ID, "from", tr.From, "to", tr.To, "intent", intent)
	}
	event := audit.Event{
		Type:      audit.EventStageChanged,
		StationID: lead.StationID,
		LeadID:    lead.ID,
		Intent:    string(intent),
	}.WithDetails(audit.Details{FromStage: string(tr.From), ToStage: string(tr.To), Regression: tr.Regressed})
	e.record(ctx, event)
}

// ApplySideEffects grants the persona's benefit once the lead is at or past its stage.
// The claim is taken before the hook runs and released if the hook fails.
func (e *Engine) ApplySideEffects(ctx context.Context, lead *leads.Lead, p *persona.Persona, stage persona.Stage) (bool, error) {
	if !qualifiesForBenefit(p, stage) {
		return false, nil
	}
	benefit := *p.Benefit
	family := string(p.Family)

	has, err := e.leads.HasBenefit(ctx, lead.ID)
	if err != nil {
		return false, fmt.Errorf("pipeline: check benefit: %w", err)
	}
	if has {
		return false, nil
	}
	at := e.now()
	claimed, err := e.leads.ClaimBenefit(ctx, lead.ID, at)
	if err != nil {
		return false, fmt.Errorf("pipeline: claim benefit: %w", err)
	}
	if !claimed {
		return false, nil
	}

	if err := e.activator.Activate(ctx, lead, benefit); err != nil {
		if relErr := e.leads.ReleaseBenefit(ctx, lead.ID); relErr != nil {
			e.logger.Error("failed to release benefit claim", "lead_id", lead.ID, "error", relErr)
		}
		e.metrics.ObserveBenefit(family, benefit.Name, "failed")
		e.logger.Error("benefit activation failed", "lead_id", lead.ID, "benefit", benefit.Name, "error", err)
		e.record(ctx, audit.Event{
			Type:      audit.EventBenefitFailed,
			StationID: lead.StationID,
			LeadID:    lead.ID,
		}.WithDetails(audit.Details{Benefit: benefit.Name, Error: err.Error()}))
		return false, fmt.Errorf("%w: %s: %v", ErrBenefitActivation, benefit.Name, err)
	}

	lead.BenefitActivatedAt = &at
	e.metrics.ObserveBenefit(family, benefit.Name, "activated")
	e.logger.Info("benefit activated", "lead_id", lead.ID, "benefit", benefit.Name, "stage", stage)
	e.record(ctx, audit.Event{
		Type:      audit.EventBenefitActivated,
		StationID: lead.StationID,
		LeadID:    lead.ID,
	}.WithDetails(audit.Details{Benefit: benefit.Name, ToStage: string(stage)}))
	return true, nil
}

func (e *Engine) record(ctx context.Context, event audit.Event) {
	if err := e.audit.Record(ctx, event); err != nil {
		e.logger.Error("failed to record audit event", "event_type", event.Type, "lead_id", event.LeadID, "error", err)
	}
}
