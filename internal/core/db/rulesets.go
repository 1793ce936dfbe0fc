package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/dialkeeper/internal/types"
)

// RuleSet is one stored revision of an account's rule document.
// Account is empty for the global rule set.
type RuleSet struct {
	RevisionID types.RevisionID
	Account    string
	Direction  types.Direction
	Document   string
	RuleCount  int
	CreatedAt  time.Time
}

// ruleSetRow is the rule_sets row layout.
type ruleSetRow struct {
	RevisionID string    `db:"revision_id"`
	AccountID  string    `db:"account_id"`
	Direction  string    `db:"direction"`
	Document   string    `db:"document"`
	RuleCount  int       `db:"rule_count"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r ruleSetRow) ruleSet() (RuleSet, error) {
	dir, err := types.ParseDirection(r.Direction)
	if err != nil {
		return RuleSet{}, fmt.Errorf("rule set %s: %w", r.RevisionID, err)
	}
	return RuleSet{
		RevisionID: types.RevisionID(r.RevisionID),
		Account:    r.AccountID,
		Direction:  dir,
		Document:   r.Document,
		RuleCount:  r.RuleCount,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// RuleStore persists rule set revisions. Revisions are append-only; the
// newest revision per account and direction is the active one.
type RuleStore struct {
	queries *Queries
}

// NewRuleStore creates a store over loaded queries.
func NewRuleStore(queries *Queries) *RuleStore {
	return &RuleStore{queries: queries}
}

// SaveRuleSet stores document as a new revision and returns it.
// The document must already have been validated by the caller.
func (s *RuleStore) SaveRuleSet(ctx context.Context, account string, dir types.Direction, document string, ruleCount int) (RuleSet, error) {
	rs := RuleSet{
		RevisionID: types.NewRevisionID(),
		Account:    account,
		Direction:  dir,
		Document:   document,
		RuleCount:  ruleCount,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := s.queries.ExecContext(ctx, "insert-rule-set",
		string(rs.RevisionID), rs.Account, rs.Direction.String(), rs.Document, rs.RuleCount, rs.CreatedAt)
	if err != nil {
		return RuleSet{}, fmt.Errorf("insert rule set: %w", err)
	}
	return rs, nil
}

// LatestRuleSet returns the newest revision for account and dir, or
// types.ErrRuleSetNotFound.
func (s *RuleStore) LatestRuleSet(ctx context.Context, account string, dir types.Direction) (RuleSet, error) {
	var row ruleSetRow
	err := s.queries.GetContext(ctx, "get-latest-rule-set", &row, account, dir.String())
	if errors.Is(err, sql.ErrNoRows) {
		return RuleSet{}, types.ErrRuleSetNotFound
	}
	if err != nil {
		return RuleSet{}, fmt.Errorf("get latest rule set: %w", err)
	}
	return row.ruleSet()
}

// ListRevisions returns up to limit revisions for account and dir, newest
// first. Documents are not loaded.
func (s *RuleStore) ListRevisions(ctx context.Context, account string, dir types.Direction, limit int) ([]RuleSet, error) {
	var rows []ruleSetRow
	if err := s.queries.SelectContext(ctx, "list-rule-set-revisions", &rows, account, dir.String(), limit); err != nil {
		return nil, fmt.Errorf("list rule set revisions: %w", err)
	}

	out := make([]RuleSet, 0, len(rows))
	for _, row := range rows {
		rs, err := row.ruleSet()
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

// LatestRuleSets returns the active revision of every account and
// direction, ordered by account then direction name.
func (s *RuleStore) LatestRuleSets(ctx context.Context) ([]RuleSet, error) {
	var rows []ruleSetRow
	if err := s.queries.SelectContext(ctx, "latest-rule-sets", &rows); err != nil {
		return nil, fmt.Errorf("list latest rule sets: %w", err)
	}

	out := make([]RuleSet, 0, len(rows))
	for _, row := range rows {
		rs, err := row.ruleSet()
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}
