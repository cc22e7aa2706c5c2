// Package agent runs outreach turns for one persona: compose, generate, persist, deliver, advance.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/radio-ops-platform/internal/audit"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/delivery"
	"github.com/wolfman30/radio-ops-platform/internal/intent"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/internal/observability/metrics"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/internal/pipeline"
	"github.com/wolfman30/radio-ops-platform/internal/prompt"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

var tracer = otel.Tracer("radio.internal.agent")

const (
	defaultGenerationTimeout = 30 * time.Second
	defaultDeliveryTimeout   = 15 * time.Second
	stationLookupTimeout     = 2 * time.Second
	defaultRegion            = "US"
)

// Deliverer sends a resolved request over its channel.
type Deliverer interface {
	Send(ctx context.Context, req delivery.Request) delivery.Outcome
	Supports(channel conversation.Channel) bool
}

// Config carries every dependency of an Agent. Persona, Leads, Store, Gateway, Delivery and Engine are required.
type Config struct {
	Persona  *persona.Persona
	Leads    leads.Repository
	Store    conversation.Store
	Locker   conversation.Locker
	Gateway  llm.Gateway
	Composer *prompt.Composer
	Delivery Deliverer
	Engine   *pipeline.Engine
	Audit    audit.Recorder
	Metrics  *metrics.OutreachMetrics
	Logger   *logging.Logger

	StationName       string
	PhoneRegion       string
	HistoryWindow     int
	GenerationTimeout time.Duration
	DeliveryTimeout   time.Duration
	Now               func() time.Time
}

// Agent is the orchestrator for one persona family. It is safe for concurrent use;
// turns for the same (lead, channel) are serialized by the Locker.
type Agent struct {
	persona  *persona.Persona
	leads    leads.Repository
	store    conversation.Store
	locker   conversation.Locker
	gateway  llm.Gateway
	composer *prompt.Composer
	delivery Deliverer
	engine   *pipeline.Engine
	audit    audit.Recorder
	metrics  *metrics.OutreachMetrics
	logger   *logging.Logger

	station           string
	region            string
	historyWindow     int
	generationTimeout time.Duration
	deliveryTimeout   time.Duration
	now               func() time.Time
}

func New(cfg Config) (*Agent, error) {
	switch {
	case cfg.Persona == nil:
		return nil, errors.New("agent: persona required")
	case cfg.Leads == nil:
		return nil, errors.New("agent: lead repository required")
	case cfg.Store == nil:
		return nil, errors.New("agent: conversation store required")
	case cfg.Gateway == nil:
		return nil, errors.New("agent: text generation gateway required")
	case cfg.Delivery == nil:
		return nil, errors.New("agent: delivery gateway required")
	case cfg.Engine == nil:
		return nil, errors.New("agent: stage engine required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Locker == nil {
		cfg.Locker = conversation.NewKeyedMutex()
	}
	if cfg.Composer == nil {
		cfg.Composer = prompt.NewComposer()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.Discard{}
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = defaultRegion
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = conversation.DefaultHistoryWindow
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Agent{
		persona:           cfg.Persona,
		leads:             cfg.Leads,
		store:             cfg.Store,
		locker:            cfg.Locker,
		gateway:           cfg.Gateway,
		composer:          cfg.Composer,
		delivery:          cfg.Delivery,
		engine:            cfg.Engine,
		audit:             cfg.Audit,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger.With("family", string(cfg.Persona.Family)),
		station:           cfg.StationName,
		region:            cfg.PhoneRegion,
		historyWindow:     cfg.HistoryWindow,
		generationTimeout: cfg.GenerationTimeout,
		deliveryTimeout:   cfg.DeliveryTimeout,
		now:               cfg.Now,
	}, nil
}

// Persona returns the persona this agent speaks for.
func (a *Agent) Persona() *persona.Persona { return a.persona }

// Result describes a completed turn. On a DeliveryFailure it is still returned with the failed message.
type Result struct {
	LeadID         string                `json:"lead_id"`
	ConversationID string                `json:"conversation_id"`
	Channel        conversation.Channel  `json:"channel"`
	Intent         persona.Intent        `json:"intent"`
	Inbound        *conversation.Message `json:"inbound,omitempty"`
	Message        *conversation.Message `json:"message,omitempty"`
	Reply          string                `json:"reply,omitempty"`
	Provider       string                `json:"provider,omitempty"`
	LLMProvider    string                `json:"llm_provider,omitempty"`
	TokensUsed     int                   `json:"tokens_used,omitempty"`
	Stage          persona.Stage         `json:"stage"`
	StageChanged   bool                  `json:"stage_changed"`
	BenefitGranted bool                  `json:"benefit_granted"`
}

// SendOutbound composes, generates and delivers an agent-initiated message. An empty intent
// resolves through the lead's stage default.
func (a *Agent) SendOutbound(ctx context.Context, leadID string, in persona.Intent, channel conversation.Channel) (*Result, error) {
	ctx, span := tracer.Start(ctx, "agent.send_outbound")
	defer span.End()
	span.SetAttributes(attribute.String("lead_id", leadID), attribute.String("channel", string(channel)))

	res, err := a.sendOutbound(ctx, leadID, in, channel)
	a.finish(ctx, span, OpSendOutbound, err)
	return res, err
}

func (a *Agent) sendOutbound(ctx context.Context, leadID string, in persona.Intent, channel conversation.Channel) (*Result, error) {
	tf := a.failer(OpSendOutbound, leadID, channel)

	if in != "" && !a.persona.HasIntent(in) {
		return nil, tf.fail(in, fmt.Errorf("%w %q for %s", persona.ErrUnknownIntent, in, a.persona.Family))
	}
	lead, err := a.loadLead(ctx, leadID)
	if err != nil {
		return nil, tf.fail(in, err)
	}
	tf.scope(lead)

	unlock, err := a.locker.Lock(ctx, conversation.Key(leadID, channel))
	if err != nil {
		return nil, tf.fail(in, err)
	}
	defer unlock()

	// Reload under the lock so stage and counters reflect any turn that just finished.
	lead, err = a.loadLead(ctx, leadID)
	if err != nil {
		return nil, tf.fail(in, err)
	}
	if in == "" {
		in = intent.DefaultFor(lead.Stage, a.persona)
	}
	res := &Result{LeadID: lead.ID, Channel: channel, Intent: in, Stage: lead.Stage}
	if err := a.respond(ctx, lead, in, channel, res); err != nil {
		return res, tf.fail(in, err)
	}
	return res, nil
}

// HandleInbound records the counterparty's message, classifies it, replies and advances the stage.
// The inbound message stays persisted even when the reply fails.
func (a *Agent) HandleInbound(ctx context.Context, leadID, text string, channel conversation.Channel) (*Result, error) {
	ctx, span := tracer.Start(ctx, "agent.handle_inbound")
	defer span.End()
	span.SetAttributes(attribute.String("lead_id", leadID), attribute.String("channel", string(channel)))

	res, err := a.handleInbound(ctx, leadID, text, channel)
	a.finish(ctx, span, OpHandleInbound, err)
	return res, err
}

func (a *Agent) handleInbound(ctx context.Context, leadID, text string, channel conversation.Channel) (*Result, error) {
	tf := a.failer(OpHandleInbound, leadID, channel)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tf.fail("", ErrEmptyInbound)
	}
	lead, err := a.loadLead(ctx, leadID)
	if err != nil {
		return nil, tf.fail("", err)
	}
	tf.scope(lead)

	unlock, err := a.locker.Lock(ctx, conversation.Key(leadID, channel))
	if err != nil {
		return nil, tf.fail("", err)
	}
	defer unlock()

	lead, err = a.loadLead(ctx, leadID)
	if err != nil {
		return nil, tf.fail("", err)
	}
	conv, err := a.activeConversation(ctx, lead, channel)
	if err != nil {
		return nil, tf.fail("", err)
	}
	inbound, err := a.store.AppendMessage(ctx, conv.ID, conversation.Turn{
		Role:    conversation.RoleCounterparty,
		Content: text,
	})
	if err != nil {
		return nil, tf.fail("", fmt.Errorf("append inbound: %w", err))
	}
	if err := a.leads.RecordInbound(ctx, lead.ID, a.now()); err != nil {
		a.logger.Warn("failed to record inbound contact", "lead_id", lead.ID, "error", err)
	}

	classified := intent.Classify(text, lead.Stage, a.persona)
	a.logger.Info("inbound classified", "lead_id", lead.ID, "channel", channel, "stage", lead.Stage, "intent", classified)
	a.record(ctx, audit.Event{
		Type:           audit.EventInboundReceived,
		StationID:      lead.StationID,
		LeadID:         lead.ID,
		ConversationID: conv.ID,
		MessageID:      inbound.ID,
		Channel:        string(channel),
		Intent:         string(classified),
	})

	res := &Result{
		LeadID:         lead.ID,
		ConversationID: conv.ID,
		Channel:        channel,
		Intent:         classified,
		Inbound:        inbound,
		Stage:          lead.Stage,
	}
	if err := a.respond(ctx, lead, classified, channel, res); err != nil {
		return res, tf.fail(classified, err)
	}
	return res, nil
}

func (a *Agent) loadLead(ctx context.Context, leadID string) (*leads.Lead, error) {
	lead, err := a.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Family != a.persona.Family {
		return nil, fmt.Errorf("%w: lead is %s, agent is %s", ErrFamilyMismatch, lead.Family, a.persona.Family)
	}
	return lead, nil
}

// activeConversation finds or creates the conversation, alerting on a broken one-active invariant.
func (a *Agent) activeConversation(ctx context.Context, lead *leads.Lead, channel conversation.Channel) (*conversation.Conversation, error) {
	conv, err := a.store.GetOrCreateActive(ctx, lead.ID, channel)
	if errors.Is(err, conversation.ErrDuplicateActiveConversation) {
		a.logger.Error("duplicate active conversations", "lead_id", lead.ID, "channel", channel, "error", err)
		a.record(ctx, audit.Event{
			Type:      audit.EventDuplicateConversation,
			StationID: lead.StationID,
			LeadID:    lead.ID,
			Channel:   string(channel),
		}.WithDetails(audit.Details{Error: err.Error()}))
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get active conversation: %w", err)
	}
	return conv, nil
}

// turnFailure builds the TurnError for one operation. The station is known once the lead loads.
type turnFailure struct {
	op        string
	leadID    string
	stationID string
	channel   conversation.Channel
}

func (a *Agent) failer(op, leadID string, channel conversation.Channel) *turnFailure {
	return &turnFailure{op: op, leadID: leadID, channel: channel}
}

func (f *turnFailure) scope(lead *leads.Lead) {
	if lead != nil {
		f.stationID = lead.StationID
	}
}

func (f *turnFailure) fail(in persona.Intent, err error) error {
	return &TurnError{Op: f.op, LeadID: f.leadID, StationID: f.stationID, Channel: f.channel, Intent: in, Err: err}
}

// finish logs and counts the turn outcome. Specific failures were already audited where they happened;
// everything else gets a generic turn_failed record.
func (a *Agent) finish(ctx context.Context, span trace.Span, op string, err error) {
	family := string(a.persona.Family)
	if err == nil {
		a.metrics.ObserveTurn(family, op, "ok")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	outcome := outcomeOf(err)
	a.metrics.ObserveTurn(family, op, outcome)

	var te *TurnError
	if !errors.As(err, &te) {
		te = &TurnError{Op: op, Err: err}
	}
	a.logger.Error("outreach turn failed",
		"op", op,
		"lead_id", te.LeadID,
		"channel", te.Channel,
		"intent", te.Intent,
		"outcome", outcome,
		"error", err,
	)
	if audited(outcome) {
		return
	}
	a.record(ctx, audit.Event{
		Type:      audit.EventTurnFailed,
		StationID: a.stationFor(ctx, te),
		LeadID:    te.LeadID,
		Channel:   string(te.Channel),
		Intent:    string(te.Intent),
	}.WithDetails(audit.Details{Operation: op, Error: err.Error()}))
}

// stationFor resolves the station for a failure that happened before the lead loaded,
// so the record stays visible to station-scoped queries.
func (a *Agent) stationFor(ctx context.Context, te *TurnError) string {
	if te.StationID != "" || te.LeadID == "" {
		return te.StationID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stationLookupTimeout)
	defer cancel()
	lead, err := a.leads.GetByID(ctx, te.LeadID)
	if err != nil {
		return ""
	}
	return lead.StationID
}

func outcomeOf(err error) string {
	if _, ok := IsDeliveryFailure(err); ok {
		return "delivery_failed"
	}
	if _, ok := llm.IsGenerationFailure(err); ok {
		return "generation_failed"
	}
	switch {
	case errors.Is(err, ErrNoRecipientAddress):
		return "no_recipient"
	case errors.Is(err, conversation.ErrDuplicateActiveConversation):
		return "duplicate_conversation"
	case errors.Is(err, leads.ErrLeadNotFound):
		return "lead_not_found"
	}
	return "error"
}

func audited(outcome string) bool {
	switch outcome {
	case "delivery_failed", "generation_failed", "no_recipient", "duplicate_conversation":
		return true
	}
	return false
}

func (a *Agent) record(ctx context.Context, event audit.Event) {
	if err := a.audit.Record(ctx, event); err != nil {
		a.logger.Error("failed to record audit event", "event_type", event.Type, "lead_id", event.LeadID, "error", err)
	}
}
