package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

// DefaultHistoryWindow bounds the history handed to the text-generation gateway.
const DefaultHistoryWindow = 20

// Channel is the delivery medium of a conversation.
type Channel string

const (
	ChannelSMS    Channel = "sms"
	ChannelEmail  Channel = "email"
	ChannelSocial Channel = "social"
)

// ParseChannel validates a raw channel name.
func ParseChannel(raw string) (Channel, error) {
	switch ch := Channel(strings.ToLower(strings.TrimSpace(raw))); ch {
	case ChannelSMS, ChannelEmail, ChannelSocial:
		return ch, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownChannel, raw)
}

// Role identifies who authored a message.
type Role string

const (
	RoleAgent        Role = "agent"
	RoleCounterparty Role = "counterparty"
)

// DeliveryStatus tracks a message's send attempt.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

var (
	ErrUnknownChannel              = errors.New("conversation: unknown channel")
	ErrConversationNotFound        = errors.New("conversation: not found")
	ErrConversationInactive        = errors.New("conversation: not active")
	ErrMessageNotFound             = errors.New("conversation: message not found")
	ErrDuplicateActiveConversation = errors.New("conversation: more than one active conversation for lead and channel")
)

// Conversation is the turn log between the station and one lead on one channel.
type Conversation struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Channel   Channel   `json:"channel"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one immutable turn. Only the delivery fields change after insert.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Seq            int64          `json:"seq"`
	Role           Role           `json:"role"`
	Content        string         `json:"content"`
	Intent         persona.Intent `json:"intent,omitempty"`
	Subject        string         `json:"subject,omitempty"`
	Status         DeliveryStatus `json:"status"`
	ExternalID     string         `json:"external_id,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Turn is the input to AppendMessage.
type Turn struct {
	Role    Role
	Content string
	Intent  persona.Intent
	Subject string
	Status  DeliveryStatus
}

// normalize fills the status default: agent turns start pending, inbound turns are already received.
func (t Turn) normalize() (Turn, error) {
	switch t.Role {
	case RoleAgent:
		if t.Status == "" {
			t.Status = StatusPending
		}
	case RoleCounterparty:
		t.Intent = ""
		if t.Status == "" {
			t.Status = StatusDelivered
		}
	default:
		return t, fmt.Errorf("conversation: unknown role %q", t.Role)
	}
	return t, nil
}

// DeliveryUpdate is applied in place to one message after a send attempt.
type DeliveryUpdate struct {
	Status     DeliveryStatus
	ExternalID string
	Error      string
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryWindow
	}
	return limit
}
