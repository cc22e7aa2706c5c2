package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

// PgxPool is the subset of *pgxpool.Pool the repository uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const leadColumns = `id, station_id, family, name, phone, email, social_handle, stage, profile,
	last_contacted_at, outbound_count, inbound_count, benefit_activated_at, created_at, updated_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	profile, err := json.Marshal(copyProfile(req.Profile))
	if err != nil {
		return nil, fmt.Errorf("leads: marshal profile: %w", err)
	}

	query := `
		INSERT INTO leads (id, station_id, family, name, phone, email, social_handle, stage, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	lead := &Lead{
		ID:           uuid.NewString(),
		StationID:    req.StationID,
		Family:       req.Family,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		SocialHandle: req.SocialHandle,
		Stage:        req.Stage,
		Profile:      copyProfile(req.Profile),
	}
	if err := r.pool.QueryRow(ctx, query,
		lead.ID,
		req.StationID,
		string(req.Family),
		req.Name,
		req.Phone,
		req.Email,
		req.SocialHandle,
		string(req.Stage),
		profile,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	return lead, nil
}

// GetByID fetches one lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return lead, nil
}

func (r *PostgresRepository) UpdateStage(ctx context.Context, id string, stage persona.Stage) error {
	return r.exec(ctx, "update stage", `UPDATE leads SET stage = $2, updated_at = now() WHERE id = $1`, id, string(stage))
}

func (r *PostgresRepository) RecordOutbound(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "record outbound", `
		UPDATE leads
		SET outbound_count = outbound_count + 1, last_contacted_at = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
}

func (r *PostgresRepository) RecordInbound(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "record inbound", `
		UPDATE leads
		SET inbound_count = inbound_count + 1, last_inbound_at = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
}

func (r *PostgresRepository) ListForSweep(ctx context.Context, q SweepQuery) ([]*Lead, error) {
	stages := make([]string, 0, len(q.Stages))
	for _, s := range q.Stages {
		stages = append(stages, string(s))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE family = $1
		  AND (cardinality($2::text[]) = 0 OR stage = ANY($2))
		  AND ($3::timestamptz IS NULL OR last_contacted_at IS NULL OR last_contacted_at < $3)
		ORDER BY last_contacted_at ASC NULLS FIRST, created_at ASC
		LIMIT $4
	`, string(q.Family), stages, q.IdleSince, limit)
	if err != nil {
		return nil, fmt.Errorf("leads: list for sweep: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: iterate sweep: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) HasBenefit(ctx context.Context, id string) (bool, error) {
	var activated *time.Time
	err := r.pool.QueryRow(ctx, `SELECT benefit_activated_at FROM leads WHERE id = $1`, id).Scan(&activated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrLeadNotFound
		}
		return false, fmt.Errorf("leads: has benefit: %w", err)
	}
	return activated != nil, nil
}

// ClaimBenefit is a compare-and-set on benefit_activated_at.
func (r *PostgresRepository) ClaimBenefit(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET benefit_activated_at = $2, updated_at = now()
		WHERE id = $1 AND benefit_activated_at IS NULL
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("leads: claim benefit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) ReleaseBenefit(ctx context.Context, id string) error {
	return r.exec(ctx, "release benefit", `UPDATE leads SET benefit_activated_at = NULL, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("leads: %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead          Lead
		family, stage string
		profile       []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.StationID,
		&family,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.SocialHandle,
		&stage,
		&profile,
		&lead.LastContactedAt,
		&lead.OutboundCount,
		&lead.InboundCount,
		&lead.BenefitActivatedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("leads: scan failed: %w", err)
	}
	lead.Family = persona.Family(family)
	lead.Stage = persona.Stage(stage)
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &lead.Profile); err != nil {
			return nil, fmt.Errorf("leads: decode profile: %w", err)
		}
	}
	return &lead, nil
}
