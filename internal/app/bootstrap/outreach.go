package bootstrap

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/radio-ops-platform/internal/agent"
	"github.com/wolfman30/radio-ops-platform/internal/audit"
	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/internal/observability/metrics"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/internal/pipeline"
	"github.com/wolfman30/radio-ops-platform/internal/prompt"
	"github.com/wolfman30/radio-ops-platform/internal/sweep"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// OutreachDeps are the already-built collaborators of the outreach engine.
type OutreachDeps struct {
	Storage  *Storage
	Locker   conversation.Locker
	Gateway  llm.Gateway
	Delivery agent.Deliverer
	Registry prometheus.Registerer
	Logger   *logging.Logger
}

// Outreach is the assembled engine: one agent per persona family plus the sweep runner.
type Outreach struct {
	Personas *persona.Registry
	Agents   *agent.Registry
	Engine   *pipeline.Engine
	Runner   *sweep.Runner
	Metrics  *metrics.OutreachMetrics
	Audit    audit.Log
}

// BuildOutreach wires the stage engine, agents and sweep from config.
func BuildOutreach(cfg *appconfig.Config, deps OutreachDeps) (*Outreach, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Storage == nil || deps.Gateway == nil || deps.Delivery == nil {
		return nil, fmt.Errorf("bootstrap: storage, llm gateway and delivery are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	outreachMetrics := metrics.NewOutreachMetrics(deps.Registry)

	engine, err := pipeline.NewEngine(pipeline.Config{
		Leads:     deps.Storage.Leads,
		Activator: buildActivator(cfg, logger),
		Audit:     deps.Storage.Audit,
		Metrics:   outreachMetrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: stage engine: %w", err)
	}

	personas := persona.DefaultRegistry()
	composer := prompt.NewComposer()
	var agents []*agent.Agent
	for _, family := range personas.Families() {
		p, err := personas.Get(family)
		if err != nil {
			return nil, err
		}
		applyGenerationOverrides(p, cfg)
		a, err := agent.New(agent.Config{
			Persona:           p,
			Leads:             deps.Storage.Leads,
			Store:             deps.Storage.Conversations,
			Locker:            deps.Locker,
			Gateway:           deps.Gateway,
			Composer:          composer,
			Delivery:          deps.Delivery,
			Engine:            engine,
			Audit:             deps.Storage.Audit,
			Metrics:           outreachMetrics,
			Logger:            logger,
			StationName:       cfg.StationName,
			PhoneRegion:       cfg.DefaultPhoneRegion,
			HistoryWindow:     cfg.HistoryWindow,
			GenerationTimeout: cfg.GenerationTimeout,
			DeliveryTimeout:   cfg.DeliveryTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %s agent: %w", family, err)
		}
		agents = append(agents, a)
	}
	agentRegistry, err := agent.NewRegistry(deps.Storage.Leads, agents...)
	if err != nil {
		return nil, err
	}

	runner, err := sweep.NewRunner(deps.Storage.Leads, sweep.FromRegistry(agentRegistry), sweep.Config{
		MaxPerRun:     cfg.SweepMaxPerRun,
		Concurrency:   cfg.SweepConcurrency,
		RatePerSecond: cfg.SweepRatePerSecond,
		FollowUpAfter: cfg.SweepFollowUpAfter,
		Channels:      parseChannels(cfg.SweepChannel),
	}, outreachMetrics, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: sweep runner: %w", err)
	}

	logger.Info("outreach engine ready", "families", agentRegistry.Families(), "persistent", deps.Storage.Persistent)
	return &Outreach{
		Personas: personas,
		Agents:   agentRegistry,
		Engine:   engine,
		Runner:   runner,
		Metrics:  outreachMetrics,
		Audit:    deps.Storage.Audit,
	}, nil
}

func buildActivator(cfg *appconfig.Config, logger *logging.Logger) pipeline.BenefitActivator {
	if url := strings.TrimSpace(cfg.BenefitWebhookURL); url != "" {
		logger.Info("benefit activations post to webhook", "url", url)
		return pipeline.NewHTTPActivator(url, cfg.BenefitWebhookSecret)
	}
	return pipeline.NewLogActivator(logger)
}

func applyGenerationOverrides(p *persona.Persona, cfg *appconfig.Config) {
	if cfg.LLMTemperature > 0 {
		p.Temperature = float32(cfg.LLMTemperature)
	}
	if cfg.LLMMaxTokens > 0 && (p.MaxTokens == 0 || cfg.LLMMaxTokens < p.MaxTokens) {
		p.MaxTokens = cfg.LLMMaxTokens
	}
}

// parseChannels reads a comma-separated channel preference list, skipping unknown names.
func parseChannels(raw string) []conversation.Channel {
	var out []conversation.Channel
	for _, part := range strings.Split(raw, ",") {
		if ch, err := conversation.ParseChannel(part); err == nil {
			out = append(out, ch)
		}
	}
	return out
}
