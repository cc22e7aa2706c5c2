// Package intent maps inbound text and the lead's current stage onto a persona intent.
package intent

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

var (
	quoteFolder = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`)
	patterns    sync.Map // phrase -> *regexp.Regexp

	// A phrase directly after one of these words does not count as said.
	negators = map[string]bool{
		"not": true, "no": true, "never": true, "don't": true, "dont": true,
		"isn't": true, "isnt": true, "won't": true, "wont": true,
	}
)

// Classify returns the intent for text given the lead's stage. The first rule whose phrase
// matches wins; otherwise the persona's stage default, then its fallback intent.
// It performs no I/O and always returns an intent.
func Classify(text string, stage persona.Stage, p *persona.Persona) persona.Intent {
	if p == nil {
		return persona.IntentFollowUp
	}
	normalized := Normalize(text)
	if normalized != "" {
		if rule, ok := Match(normalized, stage, p.Rules); ok {
			return rule.Intent
		}
	}
	return DefaultFor(stage, p)
}

// DefaultFor returns the stage default intent, falling back to the persona's fallback.
func DefaultFor(stage persona.Stage, p *persona.Persona) persona.Intent {
	if intent, ok := p.StageDefaults[stage]; ok {
		return intent
	}
	return p.FallbackIntent
}

// Match returns the first rule eligible for stage with a phrase present in normalized text.
// An occurrence directly preceded by a negator ("not ok", "no deal") is skipped.
func Match(normalized string, stage persona.Stage, rules []persona.Rule) (persona.Rule, bool) {
	for _, rule := range rules {
		if !rule.AppliesTo(stage) {
			continue
		}
		for _, phrase := range rule.Phrases {
			if containsPhrase(normalized, phrase) {
				return rule, true
			}
		}
	}
	return persona.Rule{}, false
}

// Normalize lower-cases text, folds typographic quotes and collapses whitespace.
func Normalize(text string) string {
	text = quoteFolder.Replace(strings.ToLower(text))
	return strings.Join(strings.Fields(text), " ")
}

func containsPhrase(normalized, phrase string) bool {
	phrase = Normalize(phrase)
	if phrase == "" || !strings.Contains(normalized, phrase) {
		return false
	}
	re := patternFor(phrase)
	for offset := 0; offset < len(normalized); {
		loc := re.FindStringSubmatchIndex(normalized[offset:])
		if loc == nil {
			return false
		}
		start, end := offset+loc[2], offset+loc[3]
		if !negated(normalized[:start]) {
			return true
		}
		offset = end
	}
	return false
}

// negated reports whether the last word of prefix is a negator.
func negated(prefix string) bool {
	words := strings.Fields(prefix)
	if len(words) == 0 {
		return false
	}
	last := strings.TrimFunc(words[len(words)-1], func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	return negators[last]
}

func patternFor(phrase string) *regexp.Regexp {
	if cached, ok := patterns.Load(phrase); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?:^|[^\p{L}\p{N}'])(` + regexp.QuoteMeta(phrase) + `)($|[^\p{L}\p{N}'])`)
	actual, _ := patterns.LoadOrStore(phrase, re)
	return actual.(*regexp.Regexp)
}
