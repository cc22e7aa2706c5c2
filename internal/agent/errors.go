package agent

import (
	"errors"
	"fmt"

	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/delivery"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

// Operation names used in TurnError and metrics.
const (
	OpSendOutbound    = "send_outbound"
	OpHandleInbound   = "handle_inbound"
	OpRedeliver       = "redeliver"
	OpEndConversation = "end_conversation"
)

var (
	// ErrNoRecipientAddress is returned before any agent message is created.
	ErrNoRecipientAddress = delivery.ErrNoRecipientAddress
	// ErrFamilyMismatch means the lead belongs to another persona's funnel.
	ErrFamilyMismatch = errors.New("agent: lead belongs to another persona family")
	// ErrEmptyInbound rejects inbound turns with no text.
	ErrEmptyInbound = errors.New("agent: inbound text is empty")
	// ErrNotRedeliverable is returned for messages that are not failed agent messages of the active conversation.
	ErrNotRedeliverable = errors.New("agent: message cannot be redelivered")
	// ErrUnsupportedChannel means no sender is registered for the channel.
	ErrUnsupportedChannel = errors.New("agent: channel not supported")
)

// DeliveryFailure reports a send that the channel gateway did not accept.
// The agent message is persisted with status failed.
type DeliveryFailure struct {
	MessageID string
	Provider  string
	Class     delivery.ErrorClass
	Reason    string
}

func (e *DeliveryFailure) Error() string {
	provider := e.Provider
	if provider == "" {
		provider = "unknown provider"
	}
	return fmt.Sprintf("agent: delivery of message %s via %s failed (%s): %s", e.MessageID, provider, e.Class, e.Reason)
}

// TurnError wraps every orchestrator failure with the turn's context.
type TurnError struct {
	Op        string
	LeadID    string
	StationID string
	Channel   conversation.Channel
	Intent    persona.Intent
	Err       error
}

func (e *TurnError) Error() string {
	if e.Intent != "" {
		return fmt.Sprintf("agent: %s lead=%s channel=%s intent=%s: %v", e.Op, e.LeadID, e.Channel, e.Intent, e.Err)
	}
	return fmt.Sprintf("agent: %s lead=%s channel=%s: %v", e.Op, e.LeadID, e.Channel, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// IsDeliveryFailure unwraps err into a *DeliveryFailure.
func IsDeliveryFailure(err error) (*DeliveryFailure, bool) {
	var df *DeliveryFailure
	if errors.As(err, &df) {
		return df, true
	}
	return nil, false
}
