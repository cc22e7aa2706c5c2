package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "radio"

// OutreachMetrics exposes counters/histograms for outreach turns.
type OutreachMetrics struct {
	turnsTotal         *prometheus.CounterVec
	generationLatency  *prometheus.HistogramVec
	generationTokens   *prometheus.CounterVec
	deliveriesTotal    *prometheus.CounterVec
	stageTransitions   *prometheus.CounterVec
	benefitActivations *prometheus.CounterVec
	sweepLeads         *prometheus.CounterVec
}

func NewOutreachMetrics(reg prometheus.Registerer) *OutreachMetrics {
	m := &OutreachMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outreach",
			Name:      "turns_total",
			Help:      "Outreach turns by family, operation and outcome",
		}, []string{"family", "op", "outcome"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outreach",
			Name:      "generation_latency_seconds",
			Help:      "Latency of text generation calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"provider", "status"}),
		generationTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outreach",
			Name:      "generation_tokens_total",
			Help:      "Tokens consumed by text generation",
		}, []string{"provider"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outreach",
			Name:      "deliveries_total",
			Help:      "Delivery attempts by channel, provider and status",
		}, []string{"channel", "provider", "status"}),
		stageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_transitions_total",
			Help:      "Pipeline stage transitions",
		}, []string{"family", "from", "to"}),
		benefitActivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "benefit_activations_total",
			Help:      "Benefit activation attempts",
		}, []string{"family", "benefit", "status"}),
		sweepLeads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "leads_total",
			Help:      "Leads visited by the automation sweep",
		}, []string{"family", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.generationLatency, m.generationTokens, m.deliveriesTotal,
		m.stageTransitions, m.benefitActivations, m.sweepLeads)
	return m
}

func (m *OutreachMetrics) ObserveTurn(family, op, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(family, op, outcome).Inc()
}

func (m *OutreachMetrics) ObserveGeneration(provider string, ok bool, seconds float64, tokens int) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.generationLatency.WithLabelValues(provider, status).Observe(seconds)
	if tokens > 0 {
		m.generationTokens.WithLabelValues(provider).Add(float64(tokens))
	}
}

func (m *OutreachMetrics) ObserveDelivery(channel, provider, status string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(channel, provider, status).Inc()
}

func (m *OutreachMetrics) ObserveTransition(family, from, to string) {
	if m == nil {
		return
	}
	m.stageTransitions.WithLabelValues(family, from, to).Inc()
}

func (m *OutreachMetrics) ObserveBenefit(family, benefit, status string) {
	if m == nil {
		return
	}
	m.benefitActivations.WithLabelValues(family, benefit, status).Inc()
}

func (m *OutreachMetrics) ObserveSweep(family, result string) {
	if m == nil {
		return
	}
	m.sweepLeads.WithLabelValues(family, result).Inc()
}

// Snapshot is a coarse roll-up of the outreach counters.
type Snapshot struct {
	Turns              map[string]float64 `json:"turns"`
	Deliveries         map[string]float64 `json:"deliveries"`
	StageTransitions   float64            `json:"stage_transitions"`
	BenefitActivations float64            `json:"benefit_activations"`
	GenerationCalls    uint64             `json:"generation_calls"`
	GenerationSeconds  float64            `json:"generation_seconds"`
}

// TakeSnapshot reads the outreach families from gatherer. Missing families read as zero.
func TakeSnapshot(gatherer prometheus.Gatherer) Snapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	snap := Snapshot{Turns: map[string]float64{}, Deliveries: map[string]float64{}}
	mfs, err := gatherer.Gather()
	if err != nil {
		return snap
	}
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case "radio_outreach_turns_total":
			sumBy(mf, "outcome", snap.Turns)
		case "radio_outreach_deliveries_total":
			sumBy(mf, "status", snap.Deliveries)
		case "radio_pipeline_stage_transitions_total":
			snap.StageTransitions = sumAll(mf)
		case "radio_pipeline_benefit_activations_total":
			for _, metric := range mf.Metric {
				if labelValue(metric, "status") == "activated" {
					snap.BenefitActivations += metric.GetCounter().GetValue()
				}
			}
		case "radio_outreach_generation_latency_seconds":
			for _, metric := range mf.Metric {
				h := metric.GetHistogram()
				if h == nil {
					continue
				}
				snap.GenerationCalls += h.GetSampleCount()
				snap.GenerationSeconds += h.GetSampleSum()
			}
		}
	}
	return snap
}

func sumBy(mf *dto.MetricFamily, label string, into map[string]float64) {
	for _, metric := range mf.Metric {
		if metric == nil {
			continue
		}
		into[labelValue(metric, label)] += metric.GetCounter().GetValue()
	}
}

func sumAll(mf *dto.MetricFamily) float64 {
	var total float64
	for _, metric := range mf.Metric {
		total += metric.GetCounter().GetValue()
	}
	return total
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
