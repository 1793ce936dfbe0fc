package auth

import "errors"

// Authentication errors. Missing, malformed and unknown keys all surface as
// UNAUTHENTICATED so the response does not confirm whether a key exists;
// a revoked key surfaces as PERMISSION_DENIED.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")

	// ErrKeyStore wraps failures of the key lookup itself.
	ErrKeyStore = errors.New("api key store error")
)
