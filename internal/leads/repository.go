package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

// Repository defines lead storage as the outreach engine uses it.
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	UpdateStage(ctx context.Context, id string, stage persona.Stage) error
	RecordOutbound(ctx context.Context, id string, at time.Time) error
	RecordInbound(ctx context.Context, id string, at time.Time) error
	ListForSweep(ctx context.Context, q SweepQuery) ([]*Lead, error)

	BenefitGuard
}

// BenefitGuard is the idempotency guard around benefit activation.
type BenefitGuard interface {
	HasBenefit(ctx context.Context, id string) (bool, error)
	// ClaimBenefit marks the benefit activated and reports whether this call won the claim.
	ClaimBenefit(ctx context.Context, id string, at time.Time) (bool, error)
	// ReleaseBenefit undoes a claim whose activation failed.
	ReleaseBenefit(ctx context.Context, id string) error
}

// InMemoryRepository is a Repository backed by a map, for local runs and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create stores a new lead. Validation is the caller's job.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	now := time.Now().UTC()
	lead := &Lead{
		ID:           uuid.New().String(),
		StationID:    req.StationID,
		Family:       req.Family,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		SocialHandle: req.SocialHandle,
		Stage:        req.Stage,
		Profile:      copyProfile(req.Profile),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return clone(lead), nil
}

// Put inserts or replaces a lead as-is.
func (r *InMemoryRepository) Put(lead *Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	r.leads[lead.ID] = clone(lead)
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return clone(lead), nil
}

func (r *InMemoryRepository) UpdateStage(ctx context.Context, id string, stage persona.Stage) error {
	return r.mutate(id, func(l *Lead) { l.Stage = stage })
}

func (r *InMemoryRepository) RecordOutbound(ctx context.Context, id string, at time.Time) error {
	return r.mutate(id, func(l *Lead) {
		l.OutboundCount++
		t := at
		l.LastContactedAt = &t
	})
}

func (r *InMemoryRepository) RecordInbound(ctx context.Context, id string, at time.Time) error {
	return r.mutate(id, func(l *Lead) { l.InboundCount++ })
}

func (r *InMemoryRepository) ListForSweep(ctx context.Context, q SweepQuery) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Lead
	for _, l := range r.leads {
		if l.Family != q.Family || !stageIn(l.Stage, q.Stages) {
			continue
		}
		if q.IdleSince != nil && l.LastContactedAt != nil && !l.LastContactedAt.Before(*q.IdleSince) {
			continue
		}
		out = append(out, clone(l))
	}
	sort.Slice(out, func(i, j int) bool {
		return contactedAt(out[i]).Before(contactedAt(out[j]))
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) HasBenefit(ctx context.Context, id string) (bool, error) {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return lead.BenefitActivatedAt != nil, nil
}

func (r *InMemoryRepository) ClaimBenefit(ctx context.Context, id string, at time.Time) (bool, error) {
	claimed := false
	err := r.mutate(id, func(l *Lead) {
		if l.BenefitActivatedAt == nil {
			t := at
			l.BenefitActivatedAt = &t
			claimed = true
		}
	})
	return claimed, err
}

func (r *InMemoryRepository) ReleaseBenefit(ctx context.Context, id string) error {
	return r.mutate(id, func(l *Lead) { l.BenefitActivatedAt = nil })
}

func (r *InMemoryRepository) mutate(id string, fn func(*Lead)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	fn(lead)
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

func stageIn(stage persona.Stage, stages []persona.Stage) bool {
	if len(stages) == 0 {
		return true
	}
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

// contactedAt orders never-contacted leads first, then the longest idle.
func contactedAt(l *Lead) time.Time {
	if l.LastContactedAt == nil {
		return time.Time{}
	}
	return *l.LastContactedAt
}

func clone(l *Lead) *Lead {
	out := *l
	out.Profile = copyProfile(l.Profile)
	if l.LastContactedAt != nil {
		t := *l.LastContactedAt
		out.LastContactedAt = &t
	}
	if l.BenefitActivatedAt != nil {
		t := *l.BenefitActivatedAt
		out.BenefitActivatedAt = &t
	}
	return &out
}

func copyProfile(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
