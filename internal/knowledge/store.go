// internal/knowledge/store.go
// Package knowledge ships classified crawl findings to an external store.
// When no backend is configured the store degrades to a logged no-op so the
// crawl itself never depends on external availability.
package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/config"
)

// NewStore selects the backend from config. Missing credentials fall back to
// the disabled store rather than failing startup.
func NewStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (schemas.KnowledgeStore, error) {
	log := logger.Named("knowledge")
	switch cfg.Backend {
	case config.StoreWeaviate:
		if cfg.Weaviate.URL == "" {
			log.Warn("Weaviate backend selected but no URL configured; knowledge store disabled.")
			return NewDisabledStore(log), nil
		}
		return NewWeaviateStore(cfg.Weaviate, log), nil
	case config.StorePostgres:
		if cfg.Postgres.URL == "" {
			log.Warn("Postgres backend selected but no URL configured; knowledge store disabled.")
			return NewDisabledStore(log), nil
		}
		return NewPostgresStore(ctx, cfg.Postgres, log)
	case config.StoreDisabled:
		return NewDisabledStore(log), nil
	default:
		return nil, fmt.Errorf("knowledge: unsupported store backend %q", cfg.Backend)
	}
}

// Static assertion.
var _ schemas.KnowledgeStore = (*DisabledStore)(nil)

// DisabledStore accepts every entry and drops it.
type DisabledStore struct {
	logger *zap.Logger
}

// NewDisabledStore returns the no-op store.
func NewDisabledStore(logger *zap.Logger) *DisabledStore {
	return &DisabledStore{logger: logger}
}

// Insert logs the entry at debug level and discards it.
func (s *DisabledStore) Insert(_ context.Context, entry schemas.DBEntry) error {
	s.logger.Debug("Knowledge store disabled; dropping entry.",
		zap.String("ticker", entry.Ticker), zap.String("title", entry.Title))
	return nil
}

// Enabled reports false.
func (s *DisabledStore) Enabled() bool { return false }

// Close is a no-op.
func (s *DisabledStore) Close() {}
