package intent

import (
	"testing"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

func TestClassifySponsor(t *testing.T) {
	p := persona.Sponsor()
	tests := []struct {
		name  string
		text  string
		stage persona.Stage
		want  persona.Intent
	}{
		{"price question while engaged", "how much does it cost", persona.StageEngaged, persona.IntentPitchPackages},
		{"agreement while negotiating closes", "yes let's do it", persona.StageNegotiating, persona.IntentCloseDeal},
		{"curly apostrophe agreement", "Yes, let’s do it!", persona.StageNegotiating, persona.IntentCloseDeal},
		{"agreement while interested negotiates", "yes", persona.StageInterested, persona.IntentNegotiate},
		{"objection beats pricing", "too expensive, what other rates?", persona.StageInterested, persona.IntentHandleObjection},
		{"escalation beats everything", "can a real person call me about pricing", persona.StageEngaged, persona.IntentEscalate},
		{"budget talk negotiates from any stage", "what's the budget for three months", persona.StageEngaged, persona.IntentNegotiate},
		{"unmatched falls back to stage default", "we sell bagels on main street", persona.StageContacted, persona.IntentQualifyBusiness},
		{"empty text for first contact", "", persona.StageDiscovery, persona.IntentInitialOutreach},
		{"unknown stage uses fallback", "hello", persona.Stage("mystery"), persona.IntentFollowUp},
		{"no deal is a refusal", "no deal", persona.StageNegotiating, persona.IntentHandleObjection},
		{"negated ok is a refusal", "that's not ok with us", persona.StageNegotiating, persona.IntentHandleObjection},
		{"bare no while interested", "No.", persona.StageInterested, persona.IntentHandleObjection},
		{"not yet while negotiating", "not yet, let me check with my partner", persona.StageNegotiating, persona.IntentHandleObjection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text, tt.stage, p); got != tt.want {
				t.Fatalf("Classify(%q, %s) = %s, want %s", tt.text, tt.stage, got, tt.want)
			}
		})
	}
}

func TestClassifyArtist(t *testing.T) {
	p := persona.Artist()
	tests := []struct {
		text  string
		stage persona.Stage
		want  persona.Intent
	}{
		{"is this really free?", persona.StageContacted, persona.IntentEducate},
		{"yeah sounds good", persona.StageEngaged, persona.IntentQualify},
		{"sure", persona.StageQualified, persona.IntentOnboard},
		{"here's my soundcloud", persona.StageEngaged, persona.IntentOnboard},
		{"I uploaded everything", persona.StageOnboarding, persona.IntentActivate},
		{"this sounds like a scam", persona.StageContacted, persona.IntentHandleObjection},
		{"cool", persona.StageActivated, persona.IntentCheckIn},
		{"nope", persona.StageQualified, persona.IntentHandleObjection},
		{"no", persona.StageContacted, persona.IntentHandleObjection},
		{"nah, not ok", persona.StageOnboarding, persona.IntentHandleObjection},
	}
	for _, tt := range tests {
		if got := Classify(tt.text, tt.stage, p); got != tt.want {
			t.Errorf("Classify(%q, %s) = %s, want %s", tt.text, tt.stage, got, tt.want)
		}
	}
}

func TestClassifyListener(t *testing.T) {
	p := persona.Listener()
	if got := Classify("what perks do subscribers get", persona.StageContacted, p); got != persona.IntentSharePerks {
		t.Fatalf("got %s", got)
	}
	if got := Classify("I'll tell my friends", persona.StageSubscribed, p); got != persona.IntentAskReferral {
		t.Fatalf("got %s", got)
	}
	if got := Classify("ok", persona.StageContacted, p); got != persona.IntentInviteToListen {
		t.Fatalf("got %s", got)
	}
}

func TestPhrasesMatchWholeWordsOnly(t *testing.T) {
	p := persona.Sponsor()
	// "yesterday" must not count as "yes", "costume" must not count as "cost".
	if got := Classify("yesterday we bought a costume", persona.StageNegotiating, p); got != persona.IntentNegotiate {
		t.Fatalf("expected stage default negotiate, got %s", got)
	}
}

func TestNegatedAffirmativeDoesNotCount(t *testing.T) {
	rules := []persona.Rule{
		{Intent: persona.IntentCloseDeal, Phrases: []string{"ok", "deal"}},
	}
	for _, text := range []string{"not ok", "we don't deal with radio", "that's no deal"} {
		if rule, ok := Match(Normalize(text), persona.StageNegotiating, rules); ok {
			t.Errorf("Match(%q) = %s, want no match", text, rule.Intent)
		}
	}
	// A later plain occurrence still counts.
	if _, ok := Match(Normalize("not ok at first, but ok now"), persona.StageNegotiating, rules); !ok {
		t.Fatal("expected the second ok to match")
	}
}

func TestRefusalsNeverReachClosingStages(t *testing.T) {
	cases := []struct {
		p     *persona.Persona
		stage persona.Stage
		text  string
	}{
		{persona.Sponsor(), persona.StageNegotiating, "no deal"},
		{persona.Sponsor(), persona.StageNegotiating, "that's not ok with us"},
		{persona.Artist(), persona.StageQualified, "nope"},
		{persona.Artist(), persona.StageOnboarding, "nah, not ok"},
		{persona.Listener(), persona.StageContacted, "nah"},
	}
	for _, tc := range cases {
		got := Classify(tc.text, tc.stage, tc.p)
		if next, moves := tc.p.Transitions[got]; moves {
			t.Errorf("%s %q at %s -> %s moves the lead to %s", tc.p.Family, tc.text, tc.stage, got, next)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	p := persona.Sponsor()
	first := Classify("how much does it cost", persona.StageEngaged, p)
	for i := 0; i < 100; i++ {
		if got := Classify("how much does it cost", persona.StageEngaged, p); got != first {
			t.Fatalf("iteration %d: got %s, want %s", i, got, first)
		}
	}
}

func TestClassifyNilPersona(t *testing.T) {
	if got := Classify("hi", persona.StageContacted, nil); got != persona.IntentFollowUp {
		t.Fatalf("got %s", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Let’s   DO\tit "); got != "let's do it" {
		t.Fatalf("Normalize = %q", got)
	}
}
