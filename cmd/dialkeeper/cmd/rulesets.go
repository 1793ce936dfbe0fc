package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solatis/dialkeeper/internal/core/db"
	"github.com/solatis/dialkeeper/internal/core/metrics"
	"github.com/solatis/dialkeeper/internal/rules"
)

// installStoredRuleSets installs the active revision of every stored rule
// set. A revision that no longer compiles is skipped and logged so one bad
// account cannot keep the service down.
func installStoredRuleSets(ctx context.Context, store *db.RuleStore, engine *rules.Engine, m *metrics.Metrics, logger *slog.Logger) (int, error) {
	sets, err := store.LatestRuleSets(ctx)
	if err != nil {
		return 0, err
	}

	installed := 0
	for _, rs := range sets {
		rw, err := compileRuleSet(rs)
		if err != nil {
			logger.Error("skipping stored rule set",
				"account", rs.Account,
				"direction", rs.Direction,
				"revision", rs.RevisionID,
				"error", err)
			continue
		}
		engine.Install(rs.Account, rw)
		m.SetRulesLoaded(rs.Account, rs.Direction, rw.Len())
		installed++
	}
	return installed, nil
}

func compileRuleSet(rs db.RuleSet) (*rules.Rewriter, error) {
	doc, err := rules.ParseDocument(rs.Document)
	if err != nil {
		return nil, err
	}
	rw := rules.NewRewriter(rs.Direction, rs.Account != rules.GlobalAccount)
	if err := rw.Load(doc); err != nil {
		return nil, fmt.Errorf("revision %s: %w", rs.RevisionID, err)
	}
	return rw, nil
}
