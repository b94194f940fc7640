// internal/knowledge/postgres.go
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/config"
)

// Static assertion.
var _ schemas.KnowledgeStore = (*PostgresStore)(nil)

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS news_entries (
	id      BIGSERIAL PRIMARY KEY,
	ticker  TEXT NOT NULL,
	signal  TEXT NOT NULL,
	title   TEXT NOT NULL,
	body    TEXT NOT NULL,
	at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertEntry = `
INSERT INTO news_entries (ticker, signal, title, body, at)
VALUES ($1, $2, $3, $4, $5)`

// PostgresStore writes entries to a news_entries table via pgx.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects and ensures the table exists.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("knowledge: connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createEntriesTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("knowledge: ensure news_entries table: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger.Named("postgres")}, nil
}

// Insert writes one entry row.
func (s *PostgresStore) Insert(ctx context.Context, entry schemas.DBEntry) error {
	at := time.Now().UTC()
	if entry.Time != "" {
		if parsed, err := time.Parse(time.RFC3339, entry.Time); err == nil {
			at = parsed
		}
	}
	_, err := s.pool.Exec(ctx, insertEntry,
		entry.Ticker, string(entry.Signal), entry.Title, entry.Body, at)
	if err != nil {
		return fmt.Errorf("knowledge: insert entry: %w", err)
	}
	s.logger.Debug("Entry stored in Postgres.", zap.String("ticker", entry.Ticker))
	return nil
}

// Enabled reports true.
func (s *PostgresStore) Enabled() bool { return true }

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }
