package agent

import (
	"context"
	"fmt"

	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

// Registry holds one Agent per persona family.
type Registry struct {
	leads  leads.Repository
	agents map[persona.Family]*Agent
	order  []persona.Family
}

func NewRegistry(repo leads.Repository, agents ...*Agent) (*Registry, error) {
	r := &Registry{leads: repo, agents: make(map[persona.Family]*Agent, len(agents))}
	for _, a := range agents {
		family := a.persona.Family
		if _, dup := r.agents[family]; dup {
			return nil, fmt.Errorf("agent: duplicate agent for %s", family)
		}
		r.agents[family] = a
		r.order = append(r.order, family)
	}
	return r, nil
}

func (r *Registry) Get(family persona.Family) (*Agent, error) {
	a, ok := r.agents[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", persona.ErrUnknownFamily, family)
	}
	return a, nil
}

// ForLead loads the lead and returns the agent for its family.
func (r *Registry) ForLead(ctx context.Context, leadID string) (*Agent, *leads.Lead, error) {
	lead, err := r.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, nil, err
	}
	a, err := r.Get(lead.Family)
	if err != nil {
		return nil, nil, err
	}
	return a, lead, nil
}

func (r *Registry) Families() []persona.Family {
	out := make([]persona.Family, len(r.order))
	copy(out, r.order)
	return out
}
