// Package sweep runs the daily automation pass: first contact for new leads and follow-ups for idle ones.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wolfman30/radio-ops-platform/internal/agent"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/observability/metrics"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

const (
	defaultMaxPerRun     = 50
	defaultConcurrency   = 4
	defaultRatePerSecond = 1.0
	defaultFollowUpAfter = 72 * time.Hour
	maxReportErrors      = 20
)

// Outreacher is the agent surface the sweep drives.
type Outreacher interface {
	Persona() *persona.Persona
	SendOutbound(ctx context.Context, leadID string, intent persona.Intent, channel conversation.Channel) (*agent.Result, error)
}

// LeadLister finds sweep candidates.
type LeadLister interface {
	ListForSweep(ctx context.Context, q leads.SweepQuery) ([]*leads.Lead, error)
}

// Config tunes a Runner. Zero values take defaults.
type Config struct {
	MaxPerRun     int
	Concurrency   int
	RatePerSecond float64
	FollowUpAfter time.Duration
	Channels      []conversation.Channel
}

// Report summarises one Run.
type Report struct {
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Considered int                    `json:"considered"`
	Sent       int                    `json:"sent"`
	Failed     int                    `json:"failed"`
	Skipped    int                    `json:"skipped"`
	ByFamily   map[persona.Family]int `json:"by_family"`
	Errors     []string               `json:"errors,omitempty"`
}

type sweepPass struct {
	query  leads.SweepQuery
	intent persona.Intent
}

type job struct {
	agent   Outreacher
	lead    *leads.Lead
	intent  persona.Intent
	channel conversation.Channel
}

// Runner selects due leads per family and sends one outbound turn to each, capped per run.
type Runner struct {
	agents  []Outreacher
	leads   LeadLister
	cfg     Config
	metrics *metrics.OutreachMetrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewRunner(lister LeadLister, agents []Outreacher, cfg Config, m *metrics.OutreachMetrics, logger *logging.Logger) (*Runner, error) {
	if lister == nil {
		return nil, errors.New("sweep: lead lister required")
	}
	if len(agents) == 0 {
		return nil, errors.New("sweep: at least one agent required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxPerRun <= 0 {
		cfg.MaxPerRun = defaultMaxPerRun
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}
	if cfg.FollowUpAfter <= 0 {
		cfg.FollowUpAfter = defaultFollowUpAfter
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []conversation.Channel{conversation.ChannelSMS, conversation.ChannelEmail, conversation.ChannelSocial}
	}
	return &Runner{
		agents:  agents,
		leads:   lister,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// FromRegistry lists the registry's agents in registration order.
func FromRegistry(reg *agent.Registry) []Outreacher {
	var out []Outreacher
	for _, family := range reg.Families() {
		if a, err := reg.Get(family); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// Run performs one sweep. Individual send failures are counted, not returned; the error is
// non-nil only when listing fails or ctx ends.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{StartedAt: r.now(), ByFamily: map[persona.Family]int{}}

	jobs, err := r.collect(ctx, &report)
	if err != nil {
		report.FinishedAt = r.now()
		return report, err
	}

	limiter := rate.NewLimiter(rate.Limit(r.cfg.RatePerSecond), 1)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			_, sendErr := j.agent.SendOutbound(gctx, j.lead.ID, j.intent, j.channel)
			family := j.agent.Persona().Family

			mu.Lock()
			defer mu.Unlock()
			if sendErr != nil {
				report.Failed++
				if len(report.Errors) < maxReportErrors {
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", j.lead.ID, sendErr))
				}
				r.metrics.ObserveSweep(string(family), "failed")
				return nil
			}
			report.Sent++
			report.ByFamily[family]++
			r.metrics.ObserveSweep(string(family), "sent")
			return nil
		})
	}
	err = g.Wait()
	report.FinishedAt = r.now()
	r.logger.Info("outreach sweep finished",
		"considered", report.Considered,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}
	return report, nil
}

// collect builds at most MaxPerRun jobs: entry-stage leads first, then idle contacted leads, family by family.
func (r *Runner) collect(ctx context.Context, report *Report) ([]job, error) {
	var jobs []job
	seen := map[string]bool{}
	idleSince := r.now().Add(-r.cfg.FollowUpAfter)

	for _, a := range r.agents {
		p := a.Persona()
		passes := []sweepPass{
			{leads.SweepQuery{Family: p.Family, Stages: []persona.Stage{p.EntryStage()}}, persona.IntentInitialOutreach},
		}
		if len(p.Stages) > 1 {
			passes = append(passes, sweepPass{
				leads.SweepQuery{Family: p.Family, Stages: []persona.Stage{p.Stages[1]}, IdleSince: &idleSince},
				persona.IntentFollowUp,
			})
		}

		for _, pass := range passes {
			remaining := r.cfg.MaxPerRun - len(jobs)
			if remaining <= 0 {
				return jobs, nil
			}
			pass.query.Limit = remaining
			found, err := r.leads.ListForSweep(ctx, pass.query)
			if err != nil {
				return nil, fmt.Errorf("sweep: list %s leads: %w", p.Family, err)
			}
			for _, lead := range found {
				if seen[lead.ID] || len(jobs) >= r.cfg.MaxPerRun {
					continue
				}
				seen[lead.ID] = true
				report.Considered++
				channel, ok := r.channelFor(lead)
				if !ok {
					report.Skipped++
					r.metrics.ObserveSweep(string(p.Family), "skipped")
					r.logger.Debug("sweep skipped lead without contact", "lead_id", lead.ID)
					continue
				}
				jobs = append(jobs, job{agent: a, lead: lead, intent: pass.intent, channel: channel})
			}
		}
	}
	return jobs, nil
}

// channelFor picks the first configured channel the lead has an address for.
func (r *Runner) channelFor(lead *leads.Lead) (conversation.Channel, bool) {
	for _, ch := range r.cfg.Channels {
		switch {
		case ch == conversation.ChannelSMS && lead.Phone != "":
			return ch, true
		case ch == conversation.ChannelEmail && lead.Email != "":
			return ch, true
		case ch == conversation.ChannelSocial && lead.SocialHandle != "":
			return ch, true
		}
	}
	return "", false
}
