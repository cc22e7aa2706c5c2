package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

var storeTracer = otel.Tracer("radio.internal.conversation.store")

// PgxPool is the subset of *pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists conversations in Postgres. The partial unique index
// conversations_one_active (lead_id, channel) WHERE is_active backs GetOrCreateActive.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

const selectActiveConversation = `
	SELECT id, lead_id, channel, is_active, created_at, updated_at
	FROM conversations
	WHERE lead_id = $1 AND channel = $2 AND is_active
	ORDER BY created_at
	LIMIT 2
`

func (s *PostgresStore) GetOrCreateActive(ctx context.Context, leadID string, channel Channel) (*Conversation, error) {
	ctx, span := storeTracer.Start(ctx, "conversation.get_or_create_active")
	defer span.End()
	span.SetAttributes(attribute.String("lead_id", leadID), attribute.String("channel", string(channel)))

	c, err := s.selectActive(ctx, leadID, channel)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		span.RecordError(err)
		return nil, err
	}

	id := uuid.NewString()
	var createdAt, updatedAt time.Time
	err = s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, lead_id, channel, is_active)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (lead_id, channel) WHERE is_active DO NOTHING
		RETURNING created_at, updated_at
	`, id, leadID, string(channel)).Scan(&createdAt, &updatedAt)
	switch {
	case err == nil:
		return &Conversation{ID: id, LeadID: leadID, Channel: channel, IsActive: true, CreatedAt: createdAt, UpdatedAt: updatedAt}, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Lost the race to a concurrent insert; the winner's row is now visible.
		return s.selectActive(ctx, leadID, channel)
	default:
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: insert active: %w", err)
	}
}

func (s *PostgresStore) FindActive(ctx context.Context, leadID string, channel Channel) (*Conversation, error) {
	return s.selectActive(ctx, leadID, channel)
}

func (s *PostgresStore) selectActive(ctx context.Context, leadID string, channel Channel) (*Conversation, error) {
	rows, err := s.pool.Query(ctx, selectActiveConversation, leadID, string(channel))
	if err != nil {
		return nil, fmt.Errorf("conversation: select active: %w", err)
	}
	defer rows.Close()

	var found []Conversation
	for rows.Next() {
		var (
			c  Conversation
			ch string
		)
		if err := rows.Scan(&c.ID, &c.LeadID, &ch, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan active: %w", err)
		}
		c.Channel = Channel(ch)
		found = append(found, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate active: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, ErrConversationNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%w: lead %s channel %s", ErrDuplicateActiveConversation, leadID, channel)
	}
}

func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID string, turn Turn) (*Message, error) {
	turn, err := turn.normalize()
	if err != nil {
		return nil, err
	}
	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           turn.Role,
		Content:        turn.Content,
		Intent:         turn.Intent,
		Subject:        turn.Subject,
		Status:         turn.Status,
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, role, content, intent, subject, status)
		SELECT $1, c.id, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7
		FROM conversations c
		WHERE c.id = $2 AND c.is_active
		RETURNING seq, created_at
	`, msg.ID, conversationID, string(turn.Role), turn.Content, string(turn.Intent), turn.Subject, string(turn.Status)).
		Scan(&msg.Seq, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrConversationInactive, conversationID)
		}
		return nil, fmt.Errorf("conversation: append message: %w", err)
	}
	return msg, nil
}

const messageColumns = `id, conversation_id, seq, role, content, COALESCE(intent, ''), COALESCE(subject, ''), status, COALESCE(external_id, ''), COALESCE(error, ''), created_at`

func (s *PostgresStore) RecentHistory(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM (
			SELECT * FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC
	`, conversationID, historyLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("conversation: recent history: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate history: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM conversation_messages WHERE id = $1`, messageID)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) UpdateDelivery(ctx context.Context, messageID string, update DeliveryUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversation_messages
		SET status = $2, external_id = NULLIF($3, ''), error = NULLIF($4, ''), updated_at = now()
		WHERE id = $1
	`, messageID, string(update.Status), update.ExternalID, update.Error)
	if err != nil {
		return fmt.Errorf("conversation: update delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	return nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, conversationID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET is_active = false, updated_at = now()
		WHERE id = $1
	`, conversationID)
	if err != nil {
		return fmt.Errorf("conversation: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var (
		m                    Message
		role, intent, status string
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Seq, &role, &m.Content, &intent, &m.Subject, &status, &m.ExternalID, &m.Error, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("conversation: scan message: %w", err)
	}
	m.Role = Role(role)
	m.Intent = persona.Intent(intent)
	m.Status = DeliveryStatus(status)
	return &m, nil
}
