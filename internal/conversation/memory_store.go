package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	active        map[string]string
	messages      map[string][]*Message
	byID          map[string]*Message
	seq           int64
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		active:        make(map[string]string),
		messages:      make(map[string][]*Message),
		byID:          make(map[string]*Message),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) GetOrCreateActive(ctx context.Context, leadID string, channel Channel) (*Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(leadID, channel)
	if id, ok := s.active[key]; ok {
		c := *s.conversations[id]
		return &c, nil
	}
	now := s.now()
	c := &Conversation{
		ID:        uuid.NewString(),
		LeadID:    leadID,
		Channel:   channel,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID] = c
	s.active[key] = c.ID
	out := *c
	return &out, nil
}

func (s *MemoryStore) FindActive(ctx context.Context, leadID string, channel Channel) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[Key(leadID, channel)]
	if !ok {
		return nil, ErrConversationNotFound
	}
	c := *s.conversations[id]
	return &c, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID string, turn Turn) (*Message, error) {
	turn, err := turn.normalize()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	if !c.IsActive {
		return nil, ErrConversationInactive
	}
	s.seq++
	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Seq:            s.seq,
		Role:           turn.Role,
		Content:        turn.Content,
		Intent:         turn.Intent,
		Subject:        turn.Subject,
		Status:         turn.Status,
		CreatedAt:      s.now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	s.byID[msg.ID] = msg
	c.UpdatedAt = msg.CreatedAt
	out := *msg
	return &out, nil
}

func (s *MemoryStore) RecentHistory(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	limit = historyLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrConversationNotFound
	}
	all := s.messages[conversationID]
	start := 0
	if len(all) > limit {
		start = len(all) - limit
	}
	out := make([]Message, 0, len(all)-start)
	for _, m := range all[start:] {
		out = append(out, *m)
	}
	return out, nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[messageID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	out := *m
	return &out, nil
}

func (s *MemoryStore) UpdateDelivery(ctx context.Context, messageID string, update DeliveryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[messageID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	m.Status = update.Status
	m.ExternalID = update.ExternalID
	m.Error = update.Error
	return nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	if c.IsActive {
		c.IsActive = false
		c.UpdatedAt = s.now()
		delete(s.active, Key(c.LeadID, c.Channel))
	}
	return nil
}

// ActiveCount reports how many active conversations exist for (leadID, channel).
func (s *MemoryStore) ActiveCount(leadID string, channel Channel) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.conversations {
		if c.LeadID == leadID && c.Channel == channel && c.IsActive {
			n++
		}
	}
	return n
}
