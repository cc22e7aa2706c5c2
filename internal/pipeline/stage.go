// Package pipeline moves leads through their persona's funnel and fires the one-time benefit.
package pipeline

import "github.com/wolfman30/radio-ops-platform/internal/persona"

// Next returns the stage intent maps to in the persona's transition table.
// The second result is false when the intent is unmapped or the lead is already there.
// Any mapped intent applies from any stage; there is no forward-only check.
func Next(p *persona.Persona, current persona.Stage, intent persona.Intent) (persona.Stage, bool) {
	if p == nil {
		return current, false
	}
	to, ok := p.Transitions[intent]
	if !ok || to == current {
		return current, false
	}
	return to, true
}

// IsRegression reports whether moving from -> to goes backwards in the funnel.
func IsRegression(p *persona.Persona, from, to persona.Stage) bool {
	fi, ti := p.StageIndex(from), p.StageIndex(to)
	return fi >= 0 && ti >= 0 && ti < fi
}

// qualifiesForBenefit reports whether stage is at or past the persona's benefit stage.
func qualifiesForBenefit(p *persona.Persona, stage persona.Stage) bool {
	if p == nil || p.Benefit == nil {
		return false
	}
	bi := p.StageIndex(p.Benefit.Stage)
	si := p.StageIndex(stage)
	return bi >= 0 && si >= bi
}
