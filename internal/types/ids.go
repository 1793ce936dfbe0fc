package types

import (
	"time"

	"github.com/google/uuid"
)

// NewRuleID generates a UUIDv7 rule identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewRevisionID generates a UUIDv7 rule-set revision identifier.
// Time-ordered IDs keep revisions of one rule set sorted by creation.
func NewRevisionID() RevisionID {
	return RevisionID(uuid.Must(uuid.NewV7()).String())
}

// ParseRuleID validates and converts a string to RuleID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseRuleID(s string) (RuleID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ParseRevisionID validates and converts a string to RevisionID.
func ParseRevisionID(s string) (RevisionID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RevisionID(s), nil
}

// RevisionTime extracts the timestamp embedded in a UUIDv7 revision ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RevisionTime(id RevisionID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
