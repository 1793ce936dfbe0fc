// Package config provides configuration management for DialKeeper services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// ServiceConfig holds configuration for the gRPC rewrite service.
type ServiceConfig struct {
	Host           string
	Port           int
	MaxConnections int
	RequestTimeout time.Duration

	// RulesFile is the global rule document loaded at startup.
	// Empty disables file-based global rules.
	RulesFile     string
	WatchRules    bool
	WatchDebounce time.Duration

	// MetricsAddr is the listen address of the Prometheus endpoint.
	// Empty disables it.
	MetricsAddr string
	DataDir     string
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:           "0.0.0.0",
		Port:           50061,
		MaxConnections: 1000,
		RequestTimeout: 30 * time.Second,
		RulesFile:      "",
		WatchRules:     true,
		WatchDebounce:  500 * time.Millisecond,
		MetricsAddr:    ":9461",
		DataDir:        "./data",
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports DK_HMAC_SECRET (single) and DK_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check DK_HMAC_SECRET and DK_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("DK_HMAC_SECRET"); val != "" {
		if err := add("DK_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation
	for i := 1; ; i++ {
		key := fmt.Sprintf("DK_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecret decodes base64-encoded HMAC secret from environment variable.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}

	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}
