package access

import (
	"strings"
	"time"
)

// Reasons for validation failure.
const (
	ReasonValid     = ""
	ReasonExpired   = "key_expired"
	ReasonRevoked   = "key_revoked"
	ReasonDisabled  = "key_disabled"
	ReasonBadFormat = "invalid_format"
)

// Validate checks whether c may be used at the given time.
// Returns ReasonValid when usable.
// This is a PURE function.
func Validate(c Credential, now time.Time) string {
	if c.RevokedAt != nil || c.Status == StatusRevoked {
		return ReasonRevoked
	}
	if c.Status == StatusDisabled {
		return ReasonDisabled
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ReasonExpired
	}
	return ReasonValid
}

// ValidateFormat checks if a raw access key has a valid format.
// Returns the lookup prefix used for storage queries.
// This is a PURE function.
func ValidateFormat(rawKey, expectedPrefix string) (prefix string, valid bool) {
	if expectedPrefix == "" {
		expectedPrefix = DefaultKeyPrefix
	}
	if !strings.HasPrefix(rawKey, expectedPrefix) {
		return "", false
	}
	if len(rawKey) < len(expectedPrefix)+64 || len(rawKey) < LookupPrefixLen {
		return "", false
	}
	return rawKey[:LookupPrefixLen], true
}
