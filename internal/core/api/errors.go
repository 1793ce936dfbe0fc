package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/dialkeeper/internal/types"
)

// errInvalidRequest marks a request payload missing or mistyping a field.
var errInvalidRequest = errors.New("invalid request")

// toStatus maps domain and storage errors to gRPC status errors.
// Validation errors map to INVALID_ARGUMENT, a missing rule set to
// NOT_FOUND, context timeouts to DEADLINE_EXCEEDED and everything else,
// which can only come from storage, to UNAVAILABLE.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, types.ErrInvalidDirection),
		errors.Is(err, types.ErrDirectionMismatch),
		errors.Is(err, types.ErrInvalidDocument),
		errors.Is(err, types.ErrDocumentTooLarge),
		errors.Is(err, types.ErrMalformedRule),
		errors.Is(err, types.ErrTooManyRules):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrRuleSetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
