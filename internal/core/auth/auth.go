// Package auth provides HMAC-based API key authentication for gRPC services.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// accountIDKey is the context key for storing the authenticated account ID.
const accountIDKey = contextKey("account_id")

// healthMethodPrefix marks RPCs served without a key so health checks work.
const healthMethodPrefix = "/grpc.health.v1.Health/"

// Queries defines the database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	GetContext(ctx context.Context, name string, dest any, args ...any) error
	ExecContext(ctx context.Context, name string, args ...any) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     time.Now,
	}
}

// Authenticate validates apiKey and returns the account it belongs to.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var row struct {
		APIKeyID   string       `db:"api_key_id"`
		AccountID  string       `db:"account_id"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
	}

	// key_hash is unique, so at most one row matches
	err = a.queries.GetContext(ctx, "get-api-key-by-hash", &row, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyStore, err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// Throttle last_used_at writes to one per minute per key
	if now := a.now().UTC(); shouldUpdateLastUsed(row.LastUsedAt, now) {
		_, _ = a.queries.ExecContext(ctx, "update-last-used", now, row.APIKeyID)
	}

	return row.AccountID, nil
}

// shouldUpdateLastUsed reports whether last_used_at is stale by more than a minute.
func shouldUpdateLastUsed(lastUsed sql.NullTime, now time.Time) bool {
	if !lastUsed.Valid {
		return true
	}
	return now.Sub(lastUsed.Time) > time.Minute
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Health checks pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthMethodPrefix) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		accountID, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			return nil, status.Error(codeFor(err), err.Error())
		}

		return handler(WithAccountID(ctx, accountID), req)
	}
}

// codeFor maps authentication errors to status codes.
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return codes.PermissionDenied
	case errors.Is(err, ErrKeyStore):
		return codes.Unavailable
	default:
		return codes.Unauthenticated
	}
}

// WithAccountID returns ctx carrying accountID.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountIDFromContext extracts the account ID from context.
// Returns empty string if not found.
func AccountIDFromContext(ctx context.Context) string {
	if accountID, ok := ctx.Value(accountIDKey).(string); ok {
		return accountID
	}
	return ""
}
