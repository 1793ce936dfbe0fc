// Package api provides the gRPC rewrite service.
package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solatis/dialkeeper/internal/core/config"
	"github.com/solatis/dialkeeper/internal/core/db"
	"github.com/solatis/dialkeeper/internal/core/metrics"
	"github.com/solatis/dialkeeper/internal/rules"
	"github.com/solatis/dialkeeper/internal/types"
)

// RuleSetStore persists rule set revisions. Implemented by *db.RuleStore.
type RuleSetStore interface {
	SaveRuleSet(ctx context.Context, account string, dir types.Direction, document string, ruleCount int) (db.RuleSet, error)
	LatestRuleSet(ctx context.Context, account string, dir types.Direction) (db.RuleSet, error)
}

// RewriteService implements RewriteServer.
// Thin orchestration layer over the engine and the rule store.
type RewriteService struct {
	engine  *rules.Engine
	store   RuleSetStore
	cfg     *config.ServiceConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRewriteService creates a service instance. m may be nil.
func NewRewriteService(engine *rules.Engine, store RuleSetStore, cfg *config.ServiceConfig, m *metrics.Metrics, logger *slog.Logger) (*RewriteService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RewriteService{
		engine:  engine,
		store:   store,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}, nil
}

// storeContext bounds a storage call by the configured request timeout.
func (s *RewriteService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}
