package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutreachMetricsObserve(t *testing.T) {
	m := NewOutreachMetrics(prometheus.NewRegistry())
	m.ObserveTurn("artist", "outbound", "delivered")
	m.ObserveGeneration("bedrock", true, 0.4, 120)
	m.ObserveDelivery("sms", "telnyx", "delivered")
	m.ObserveTransition("artist", "contacted", "engaged")
	m.ObserveBenefit("artist", "free_airplay", "activated")
	m.ObserveSweep("sponsor", "sent")
}

func TestOutreachMetricsNilSafe(t *testing.T) {
	var m *OutreachMetrics
	m.ObserveTurn("artist", "inbound", "failed")
	m.ObserveGeneration("gemini", false, 1, 0)
	m.ObserveDelivery("email", "ses", "failed")
	m.ObserveTransition("sponsor", "a", "b")
	m.ObserveBenefit("listener_growth", "listener_perks", "failed")
	m.ObserveSweep("artist", "skipped")
}

func TestTakeSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutreachMetrics(reg)
	m.ObserveTurn("artist", "outbound", "delivered")
	m.ObserveTurn("sponsor", "inbound", "delivered")
	m.ObserveTurn("artist", "outbound", "delivery_failed")
	m.ObserveDelivery("sms", "telnyx", "delivered")
	m.ObserveDelivery("email", "ses", "failed")
	m.ObserveTransition("artist", "contacted", "engaged")
	m.ObserveTransition("artist", "engaged", "qualified")
	m.ObserveBenefit("artist", "free_airplay", "activated")
	m.ObserveBenefit("artist", "free_airplay", "failed")
	m.ObserveGeneration("bedrock", true, 0.5, 10)
	m.ObserveGeneration("bedrock", false, 1.5, 0)

	snap := TakeSnapshot(reg)
	if snap.Turns["delivered"] != 2 || snap.Turns["delivery_failed"] != 1 {
		t.Fatalf("unexpected turns: %+v", snap.Turns)
	}
	if snap.Deliveries["delivered"] != 1 || snap.Deliveries["failed"] != 1 {
		t.Fatalf("unexpected deliveries: %+v", snap.Deliveries)
	}
	if snap.StageTransitions != 2 {
		t.Fatalf("expected 2 transitions, got %v", snap.StageTransitions)
	}
	if snap.BenefitActivations != 1 {
		t.Fatalf("expected 1 activation, got %v", snap.BenefitActivations)
	}
	if snap.GenerationCalls != 2 || snap.GenerationSeconds != 2 {
		t.Fatalf("unexpected generation totals: %d %v", snap.GenerationCalls, snap.GenerationSeconds)
	}
}

func TestTakeSnapshotEmptyRegistry(t *testing.T) {
	snap := TakeSnapshot(prometheus.NewRegistry())
	if len(snap.Turns) != 0 || snap.GenerationCalls != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
