package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/dialkeeper/internal/core/auth"
	"github.com/solatis/dialkeeper/internal/rules"
)

// GetRuleSet returns the caller's active rule document for a direction.
// ETAG-based caching: when if_none_match equals the current etag the
// response carries not_modified and omits the document.
func (s *RewriteService) GetRuleSet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account := auth.AccountIDFromContext(ctx)
	dir, err := directionFrom(req)
	if err != nil {
		return nil, toStatus(err)
	}
	ifNoneMatch, _, err := stringField(req, "if_none_match")
	if err != nil {
		return nil, toStatus(err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	rs, err := s.store.LatestRuleSet(storeCtx, account, dir)
	if err != nil {
		return nil, toStatus(err)
	}

	etag := computeETAG(rs.Document)
	notModified := ifNoneMatch != "" && ifNoneMatch == etag

	m := ruleSetToMap(rs, etag, !notModified)
	m["not_modified"] = notModified
	resp, err := structpb.NewStruct(m)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// PutRuleSet validates a rule document, stores it as a new revision and
// installs it. Nothing is stored or installed when validation fails.
// The stored document is the canonical re-encoding of the accepted rules.
func (s *RewriteService) PutRuleSet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account := auth.AccountIDFromContext(ctx)
	dir, err := directionFrom(req)
	if err != nil {
		return nil, toStatus(err)
	}
	text, err := requireString(req, "document")
	if err != nil {
		return nil, toStatus(err)
	}

	doc, err := rules.ParseDocument(text)
	if err != nil {
		return nil, toStatus(err)
	}
	rw := rules.NewRewriter(dir, account != rules.GlobalAccount)
	if err := rw.LoadStrict(doc); err != nil {
		return nil, toStatus(err)
	}
	canonical, err := rw.Save().EncodeToString()
	if err != nil {
		return nil, toStatus(err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	rs, err := s.store.SaveRuleSet(storeCtx, account, dir, canonical, rw.Len())
	if err != nil {
		s.logger.Error("failed to save rule set", "account", account, "direction", dir, "error", err)
		return nil, toStatus(err)
	}

	s.engine.Install(account, rw)
	s.metrics.SetRulesLoaded(account, dir, rw.Len())
	s.logger.Info("rule set installed",
		"account", account,
		"direction", dir,
		"revision", rs.RevisionID,
		"rules", rs.RuleCount)

	resp, err := structpb.NewStruct(ruleSetToMap(rs, computeETAG(rs.Document), false))
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// computeETAG generates a content-addressable tag: the same document
// always produces the same etag.
func computeETAG(document string) string {
	sum := sha256.Sum256([]byte(document))
	return hex.EncodeToString(sum[:])
}
