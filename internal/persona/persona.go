// Package persona holds the static voice, vocabulary and funnel definitions of each outreach agent.
// Nothing in here performs I/O; the classifier, prompt composer and stage engine read these tables.
package persona

import (
	"errors"
	"fmt"
	"strings"
)

// Family identifies an acquisition funnel.
type Family string

const (
	FamilyArtist   Family = "artist"
	FamilySponsor  Family = "sponsor"
	FamilyListener Family = "listener_growth"
)

// Intent is the symbolic purpose of the next agent-authored message.
type Intent string

// Intents shared by every family.
const (
	IntentInitialOutreach Intent = "initial_outreach"
	IntentFollowUp        Intent = "follow_up"
	IntentHandleObjection Intent = "handle_objection"
	IntentEscalate        Intent = "escalate_to_human"
)

// Stage is a lead's position in its funnel.
type Stage string

const (
	StageDiscovered  Stage = "discovered"
	StageDiscovery   Stage = "discovery"
	StageContacted   Stage = "contacted"
	StageEngaged     Stage = "engaged"
	StageQualified   Stage = "qualified"
	StageOnboarding  Stage = "onboarding"
	StageActivated   Stage = "activated"
	StageActive      Stage = "active"
	StageInterested  Stage = "interested"
	StageNegotiating Stage = "negotiating"
	StageClosed      Stage = "closed"
	StageSubscribed  Stage = "subscribed"
	StageAmbassador  Stage = "ambassador"
)

var (
	// ErrUnknownFamily is returned when no persona is registered for a family.
	ErrUnknownFamily = errors.New("persona: unknown family")
	// ErrUnknownIntent is returned when an intent is not part of a persona's closed set.
	ErrUnknownIntent = errors.New("persona: unknown intent")
)

// Rule maps phrases to an intent. Stages narrows the rule to leads currently in one of them.
type Rule struct {
	Intent  Intent
	Phrases []string
	Stages  []Stage
}

// AppliesTo reports whether the rule is eligible for a lead in stage.
func (r Rule) AppliesTo(stage Stage) bool {
	if len(r.Stages) == 0 {
		return true
	}
	for _, s := range r.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Package is a priced offering the persona can pitch.
type Package struct {
	Name     string
	Price    string
	Includes string
}

// Benefit is granted once per lead when the lead first reaches Stage.
type Benefit struct {
	Name        string
	Stage       Stage
	Description string
}

// Persona is the full static configuration of one outreach agent.
type Persona struct {
	Family  Family
	Name    string
	Role    string
	Mission string
	Tone    string

	// PriorityTerms is vocabulary the agent leans on in every reply.
	PriorityTerms []string

	// Placeholder replaces a missing lead name; ProfilePlaceholder replaces a missing profile attribute.
	Placeholder        string
	ProfileKey         string
	ProfileLabel       string
	ProfilePlaceholder string

	Stages         []Stage
	Intents        []Intent
	Rules          []Rule
	StageDefaults  map[Stage]Intent
	FallbackIntent Intent
	Transitions    map[Intent]Stage
	Instructions   map[Intent]string
	Subjects       map[Intent]string

	Packages    []Package
	DefaultTier string
	Benefit     *Benefit

	Temperature float32
	MaxTokens   int
}

// HasIntent reports whether intent belongs to the persona's closed set.
func (p *Persona) HasIntent(intent Intent) bool {
	for _, i := range p.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

// HasStage reports whether stage belongs to the persona's funnel.
func (p *Persona) HasStage(stage Stage) bool {
	return p.StageIndex(stage) >= 0
}

// StageIndex returns the funnel position of stage, or -1.
func (p *Persona) StageIndex(stage Stage) int {
	for i, s := range p.Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// EntryStage is the stage newly discovered leads start in.
func (p *Persona) EntryStage() Stage {
	if len(p.Stages) == 0 {
		return ""
	}
	return p.Stages[0]
}

// ParseIntent validates a raw intent string against the persona.
func (p *Persona) ParseIntent(raw string) (Intent, error) {
	intent := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if !p.HasIntent(intent) {
		return "", fmt.Errorf("%w %q for %s", ErrUnknownIntent, raw, p.Family)
	}
	return intent, nil
}

// Subject returns the email subject line template for intent.
func (p *Persona) Subject(intent Intent) string {
	if s, ok := p.Subjects[intent]; ok && s != "" {
		return s
	}
	return p.Subjects[IntentFollowUp]
}

// Validate checks that every table only references the persona's own intents and stages.
func (p *Persona) Validate() error {
	if p.Family == "" {
		return errors.New("persona: family required")
	}
	if len(p.Stages) == 0 || len(p.Intents) == 0 {
		return fmt.Errorf("persona: %s needs stages and intents", p.Family)
	}
	if !p.HasIntent(p.FallbackIntent) {
		return fmt.Errorf("persona: %s fallback intent %q not declared", p.Family, p.FallbackIntent)
	}
	for i, rule := range p.Rules {
		if !p.HasIntent(rule.Intent) {
			return fmt.Errorf("persona: %s rule %d references unknown intent %q", p.Family, i, rule.Intent)
		}
		if len(rule.Phrases) == 0 {
			return fmt.Errorf("persona: %s rule %d has no phrases", p.Family, i)
		}
		for _, s := range rule.Stages {
			if !p.HasStage(s) {
				return fmt.Errorf("persona: %s rule %d references unknown stage %q", p.Family, i, s)
			}
		}
	}
	for stage, intent := range p.StageDefaults {
		if !p.HasStage(stage) || !p.HasIntent(intent) {
			return fmt.Errorf("persona: %s default %q -> %q is invalid", p.Family, stage, intent)
		}
	}
	for intent, stage := range p.Transitions {
		if !p.HasIntent(intent) || !p.HasStage(stage) {
			return fmt.Errorf("persona: %s transition %q -> %q is invalid", p.Family, intent, stage)
		}
	}
	for _, intent := range p.Intents {
		if strings.TrimSpace(p.Instructions[intent]) == "" {
			return fmt.Errorf("persona: %s has no instruction for %q", p.Family, intent)
		}
	}
	if p.Benefit != nil && !p.HasStage(p.Benefit.Stage) {
		return fmt.Errorf("persona: %s benefit stage %q unknown", p.Family, p.Benefit.Stage)
	}
	return nil
}

// Shared vocabulary. Order inside a list does not matter; order of rules does.
var (
	escalationPhrases = []string{
		"real person", "human", "speak to someone", "talk to someone", "speak with someone",
		"call me", "phone call", "manager", "your boss",
	}
	objectionPhrases = []string{
		"not interested", "no thanks", "no thank you", "not now", "maybe later", "too expensive",
		"can't afford", "cant afford", "not sure", "don't think", "dont think", "busy", "stop",
		"unsubscribe", "leave me alone", "no", "nope", "nah", "no deal", "not ok", "not okay",
		"not yet", "not really",
	}
	affirmativePhrases = []string{
		"yes", "yeah", "yep", "sure", "sounds good", "let's do it", "lets do it", "i'm in", "im in",
		"sign me up", "ok", "okay", "absolutely", "definitely", "count me in", "deal",
	}
)

func phrases(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
