package leads

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

// Lead is a party being engaged by an outreach persona.
type Lead struct {
	ID                 string            `json:"id"`
	StationID          string            `json:"station_id"`
	Family             persona.Family    `json:"family"`
	Name               string            `json:"name"`
	Phone              string            `json:"phone,omitempty"`
	Email              string            `json:"email,omitempty"`
	SocialHandle       string            `json:"social_handle,omitempty"`
	Stage              persona.Stage     `json:"stage"`
	Profile            map[string]string `json:"profile,omitempty"`
	LastContactedAt    *time.Time        `json:"last_contacted_at,omitempty"`
	OutboundCount      int               `json:"outbound_count"`
	InboundCount       int               `json:"inbound_count"`
	BenefitActivatedAt *time.Time        `json:"benefit_activated_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ProfileValue returns a trimmed profile attribute.
func (l *Lead) ProfileValue(key string) string {
	if l == nil || l.Profile == nil {
		return ""
	}
	return strings.TrimSpace(l.Profile[key])
}

// CreateLeadRequest is the intake payload for a new lead.
type CreateLeadRequest struct {
	StationID    string            `json:"-" validate:"required"`
	Family       persona.Family    `json:"family" validate:"required,oneof=artist sponsor listener_growth"`
	Name         string            `json:"name" validate:"max=200"`
	Phone        string            `json:"phone" validate:"omitempty,max=32"`
	Email        string            `json:"email" validate:"omitempty,email"`
	SocialHandle string            `json:"social_handle" validate:"omitempty,max=64"`
	Stage        persona.Stage     `json:"stage"`
	Profile      map[string]string `json:"profile"`
}

var validate = validator.New()

// Validate checks the request and fills the entry stage of the family's funnel when none is given.
func (r *CreateLeadRequest) Validate(registry *persona.Registry) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	r.SocialHandle = strings.TrimPrefix(strings.TrimSpace(r.SocialHandle), "@")
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("leads: invalid request: %w", err)
	}
	if r.Phone == "" && r.Email == "" && r.SocialHandle == "" {
		return ErrMissingContact
	}
	if registry == nil {
		return nil
	}
	p, err := registry.Get(r.Family)
	if err != nil {
		return err
	}
	if r.Stage == "" {
		r.Stage = p.EntryStage()
	}
	if !p.HasStage(r.Stage) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidStage, r.Stage, r.Family)
	}
	return nil
}

// SweepQuery selects leads for a batch automation run.
type SweepQuery struct {
	Family persona.Family
	Stages []persona.Stage
	// IdleSince, when set, keeps only leads never contacted or last contacted before it.
	IdleSince *time.Time
	Limit     int
}
