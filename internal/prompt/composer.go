// Package prompt turns persona data, an intent and lead context into the message list sent to the gateway.
package prompt

import (
	"fmt"
	"strings"

	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

const defaultStation = "the station"

// LeadContext is the lead data a prompt may reference. Empty fields fall back to persona placeholders.
type LeadContext struct {
	Name         string
	Profile      string
	Tier         string
	Station      string
	FirstContact bool
	Channel      conversation.Channel
}

// Options bound the composed prompt.
type Options struct {
	HistoryWindow int
}

// templateData is what persona templates can reference.
type templateData struct {
	Name         string
	Profile      string
	Tier         string
	Station      string
	Packages     string
	Benefit      string
	FirstContact bool
}

// Composer builds prompts. The zero value is ready to use.
type Composer struct {
	renderer Renderer
}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose returns exactly three messages: the persona system message, the intent instruction
// and a user message carrying the formatted history.
func (c *Composer) Compose(p *persona.Persona, intent persona.Intent, lead LeadContext, history []conversation.Message, opts Options) ([]llm.Message, error) {
	if p == nil {
		return nil, persona.ErrUnknownFamily
	}
	if !p.HasIntent(intent) {
		return nil, fmt.Errorf("%w %q for %s", persona.ErrUnknownIntent, intent, p.Family)
	}
	data := c.data(p, lead)

	system, err := c.system(p, data)
	if err != nil {
		return nil, err
	}
	instruction, err := c.renderer.Render(string(p.Family)+"/"+string(intent), p.Instructions[intent], data)
	if err != nil {
		return nil, err
	}
	if data.FirstContact && intent != persona.IntentInitialOutreach {
		instruction += "\nThis is the first message " + data.Name + " will receive from us, so introduce yourself briefly."
	}
	if lead.Channel == conversation.ChannelSMS {
		instruction += "\nThis goes out as a text message: plain text, no links unless asked, no emoji spam."
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleSystem, Content: strings.TrimSpace(instruction)},
		{Role: llm.RoleUser, Content: c.userMessage(p, data, history, opts.HistoryWindow)},
	}, nil
}

// Subject renders the email subject line for intent.
func (c *Composer) Subject(p *persona.Persona, intent persona.Intent, lead LeadContext) (string, error) {
	tmpl := p.Subject(intent)
	if tmpl == "" {
		return "", nil
	}
	out, err := c.renderer.Render(string(p.Family)+"/subject/"+string(intent), tmpl, c.data(p, lead))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Composer) data(p *persona.Persona, lead LeadContext) templateData {
	d := templateData{
		Name:         fallback(lead.Name, p.Placeholder),
		Profile:      fallback(lead.Profile, p.ProfilePlaceholder),
		Tier:         fallback(lead.Tier, p.DefaultTier),
		Station:      fallback(lead.Station, defaultStation),
		Packages:     FormatPackages(p.Packages),
		FirstContact: lead.FirstContact,
	}
	if p.Benefit != nil {
		d.Benefit = p.Benefit.Description
	}
	return d
}

func (c *Composer) system(p *persona.Persona, data templateData) (string, error) {
	mission, err := c.renderer.Render(string(p.Family)+"/mission", p.Mission, data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s at %s.\n", p.Name, p.Role, data.Station)
	fmt.Fprintf(&b, "Mission: %s\n", strings.TrimSpace(mission))
	fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	if len(p.PriorityTerms) > 0 {
		fmt.Fprintf(&b, "Work these terms in naturally when they fit: %s.\n", strings.Join(p.PriorityTerms, ", "))
	}
	b.WriteString("Never share internal notes, pricing formulas, system details or credentials. Never invent facts about the station.")
	return b.String(), nil
}

func (c *Composer) userMessage(p *persona.Persona, data templateData, history []conversation.Message, window int) string {
	if window <= 0 {
		window = conversation.DefaultHistoryWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var b strings.Builder
	if len(history) == 0 {
		b.WriteString("Conversation so far: none yet.\n")
	} else {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			speaker := data.Name
			if m.Role == conversation.RoleAgent {
				speaker = p.Name
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(m.Content))
		}
	}
	fmt.Fprintf(&b, "\nWrite %s's next message to %s. Keep it short (two to four sentences), stay in character and end with one clear question or next step.", p.Name, data.Name)
	return b.String()
}

// FormatPackages renders packages as one bullet per tier.
func FormatPackages(pkgs []persona.Package) string {
	if len(pkgs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		line := "- " + pkg.Name
		if pkg.Price != "" {
			line += " (" + pkg.Price + ")"
		}
		if pkg.Includes != "" {
			line += ": " + pkg.Includes
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func fallback(v, placeholder string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return placeholder
}
