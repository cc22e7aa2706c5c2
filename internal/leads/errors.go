package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")

	// ErrMissingContact is returned when a lead has no phone, email or social handle
	ErrMissingContact = errors.New("leads: at least one of phone, email or social handle is required")

	// ErrInvalidStage is returned when a stage is not part of the lead's funnel
	ErrInvalidStage = errors.New("leads: stage not in funnel")
)
