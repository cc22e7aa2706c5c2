// Package audit records an append-only trail of outreach decisions and failures.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventType names one kind of audit record.
type EventType string

const (
	EventMessageSent           EventType = "outreach.message_sent"
	EventInboundReceived       EventType = "outreach.inbound_received"
	EventDeliveryFailed        EventType = "outreach.delivery_failed"
	EventMessageRedelivered    EventType = "outreach.message_redelivered"
	EventGenerationFailed      EventType = "outreach.generation_failed"
	EventNoRecipientAddress    EventType = "outreach.no_recipient_address"
	EventStageChanged          EventType = "pipeline.stage_changed"
	EventBenefitActivated      EventType = "pipeline.benefit_activated"
	EventBenefitFailed         EventType = "pipeline.benefit_failed"
	EventDuplicateConversation EventType = "conversation.duplicate_active"
	EventConversationEnded     EventType = "conversation.ended"
	EventTurnFailed            EventType = "outreach.turn_failed"
)

// Event is one immutable audit record.
type Event struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"event_type"`
	StationID      string          `json:"station_id,omitempty"`
	LeadID         string          `json:"lead_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Channel        string          `json:"channel,omitempty"`
	Intent         string          `json:"intent,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Details carries event specific fields. Empty fields are dropped.
type Details struct {
	FromStage   string `json:"from_stage,omitempty"`
	ToStage     string `json:"to_stage,omitempty"`
	Benefit     string `json:"benefit,omitempty"`
	Provider    string `json:"provider,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	ErrorClass  string `json:"error_class,omitempty"`
	Error       string `json:"error,omitempty"`
	Operation   string `json:"operation,omitempty"`
	FailureKind string `json:"failure_kind,omitempty"`
	TokensUsed  int    `json:"tokens_used,omitempty"`
	ActiveCount int    `json:"active_count,omitempty"`
	Regression  bool   `json:"regression,omitempty"`
}

// WithDetails returns a copy of e with d marshalled into Details.
func (e Event) WithDetails(d Details) Event {
	raw, err := json.Marshal(d)
	if err == nil && string(raw) != "{}" {
		e.Details = raw
	}
	return e
}

// Recorder appends audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Log records events and reads them back.
type Log interface {
	Recorder
	Query(ctx context.Context, filter Filter) ([]Event, error)
}

// Filter narrows a query. StationID is required.
type Filter struct {
	StationID string
	LeadID    string
	Types     []EventType
	Since     time.Time
	Limit     int
}

// Service stores events in the audit_events table.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Record(ctx context.Context, event Event) error {
	event = stamp(event)
	query := `
		INSERT INTO audit_events (
			id, event_type, station_id, lead_id, conversation_id,
			message_id, channel, intent, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Type,
		nullString(event.StationID),
		nullString(event.LeadID),
		nullString(event.ConversationID),
		nullString(event.MessageID),
		nullString(event.Channel),
		nullString(event.Intent),
		nullJSON(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: record %s: %w", event.Type, err)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, event_type, station_id, lead_id, conversation_id,
			   message_id, channel, intent, details, created_at
		FROM audit_events
		WHERE station_id = $1
	`
	args := []any{filter.StationID}
	argIdx := 2

	if filter.LeadID != "" {
		query += fmt.Sprintf(" AND lead_id = $%d", argIdx)
		args = append(args, filter.LeadID)
		argIdx++
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		query += fmt.Sprintf(" AND event_type = ANY($%d)", argIdx)
		args = append(args, pq.Array(types))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var station, lead, conv, msg, channel, intent sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.Type, &station, &lead, &conv, &msg, &channel, &intent, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.StationID = station.String
		e.LeadID = lead.String
		e.ConversationID = conv.String
		e.MessageID = msg.String
		e.Channel = channel.String
		e.Intent = intent.String
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, nil
}

// MemoryLog keeps events in process. Used by tests and local runs without a database.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Record(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stamp(event))
	return nil
}

// Events returns a copy of everything recorded so far.
func (m *MemoryLog) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// OfType returns recorded events of type t in insertion order.
func (m *MemoryLog) OfType(t EventType) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Query applies filter to the recorded events, newest first.
func (m *MemoryLog) Query(_ context.Context, filter Filter) ([]Event, error) {
	types := make(map[EventType]bool, len(filter.Types))
	for _, t := range filter.Types {
		types[t] = true
	}
	all := m.Events()
	var out []Event
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		switch {
		case e.StationID != filter.StationID:
			continue
		case filter.LeadID != "" && e.LeadID != filter.LeadID:
			continue
		case len(types) > 0 && !types[e.Type]:
			continue
		case !filter.Since.IsZero() && e.CreatedAt.Before(filter.Since):
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, Event) error { return nil }

func stamp(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return event
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
