package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/wolfman30/radio-ops-platform/internal/audit"
	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// Storage bundles the persistence the outreach engine runs on.
type Storage struct {
	Leads         leads.Repository
	Conversations conversation.Store
	Audit         audit.Log
	Persistent    bool

	pool *pgxpool.Pool
	db   *sql.DB
}

// Close releases database handles. Safe on in-memory storage.
func (s *Storage) Close() {
	if s == nil {
		return
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// BuildStorage connects to Postgres when DATABASE_URL is set and falls back to in-memory stores otherwise.
// Leads and conversations go through pgx; the audit log uses database/sql with lib/pq.
func BuildStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("bootstrap: DATABASE_URL is required in production")
		}
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return &Storage{
			Leads:         leads.NewInMemoryRepository(),
			Conversations: conversation.NewMemoryStore(),
			Audit:         audit.NewMemoryLog(),
		}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)

	logger.Info("connected to postgres")
	return &Storage{
		Leads:         leads.NewPostgresRepository(pool),
		Conversations: conversation.NewPostgresStore(pool),
		Audit:         audit.NewService(db),
		Persistent:    true,
		pool:          pool,
		db:            db,
	}, nil
}
