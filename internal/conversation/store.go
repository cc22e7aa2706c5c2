package conversation

import "context"

// Store is the durable, append-only conversation log.
type Store interface {
	// GetOrCreateActive atomically returns the active conversation for (leadID, channel), creating it if none exists.
	GetOrCreateActive(ctx context.Context, leadID string, channel Channel) (*Conversation, error)
	// FindActive returns ErrConversationNotFound when no conversation is active.
	FindActive(ctx context.Context, leadID string, channel Channel) (*Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, turn Turn) (*Message, error)
	// RecentHistory returns the most recent limit messages, oldest first.
	RecentHistory(ctx context.Context, conversationID string, limit int) ([]Message, error)
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	UpdateDelivery(ctx context.Context, messageID string, update DeliveryUpdate) error
	Deactivate(ctx context.Context, conversationID string) error
}
