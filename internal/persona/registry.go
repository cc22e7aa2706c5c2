package persona

import "fmt"

// Registry resolves personas by family. Build one per process and inject it; it is read-only after construction.
type Registry struct {
	personas map[Family]*Persona
	order    []Family
}

// NewRegistry validates and indexes the given personas.
func NewRegistry(personas ...*Persona) (*Registry, error) {
	r := &Registry{personas: make(map[Family]*Persona, len(personas))}
	for _, p := range personas {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.personas[p.Family]; dup {
			return nil, fmt.Errorf("persona: duplicate family %s", p.Family)
		}
		r.personas[p.Family] = p
		r.order = append(r.order, p.Family)
	}
	return r, nil
}

// DefaultRegistry returns the artist, sponsor and listener growth personas.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Artist(), Sponsor(), Listener())
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the persona for family.
func (r *Registry) Get(family Family) (*Persona, error) {
	p, ok := r.personas[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	return p, nil
}

// Families lists registered families in registration order.
func (r *Registry) Families() []Family {
	out := make([]Family, len(r.order))
	copy(out, r.order)
	return out
}
