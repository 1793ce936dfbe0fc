package api

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/dialkeeper/internal/core/auth"
	"github.com/solatis/dialkeeper/internal/types"
)

// rewriteRequest is the decoded form shared by both rewrite RPCs.
type rewriteRequest struct {
	account string
	address string
	dir     types.Direction
	ctx     types.Context
}

func decodeRewriteRequest(ctx context.Context, req *structpb.Struct) (rewriteRequest, error) {
	var r rewriteRequest
	var err error

	r.account = auth.AccountIDFromContext(ctx)
	if r.address, err = requireString(req, "address"); err != nil {
		return r, err
	}
	if r.dir, err = directionFrom(req); err != nil {
		return r, err
	}
	if r.ctx, err = contextFrom(req); err != nil {
		return r, err
	}
	return r, nil
}

// Rewrite runs one rewrite pass with the caller's rule set and returns
// the projected result.
func (s *RewriteService) Rewrite(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := decodeRewriteRequest(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	result := s.engine.Rewrite(r.account, r.dir, r.address, r.ctx)
	s.metrics.ObserveRewrite(r.dir, len(result.MatchedRules) > 0)

	resp, err := structpb.NewStruct(resultToMap(result))
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// RewriteProgressively returns the number after each matching rule, for
// previewing a rule set.
func (s *RewriteService) RewriteProgressively(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := decodeRewriteRequest(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	steps := s.engine.RewriteProgressively(r.account, r.dir, r.address, r.ctx)
	values := make([]any, len(steps))
	for i, step := range steps {
		values[i] = step
	}

	resp, err := structpb.NewStruct(map[string]any{"steps": values})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}
