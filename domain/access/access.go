// Package access provides access record value types, key generation and
// pure validation functions. This package has NO dependencies on I/O.
package access

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Resolution failures. Both mean the caller is not authorized;
// any other resolver error is a service fault.
var (
	ErrNotFound = errors.New("access record not found")
	ErrRejected = errors.New("access record rejected")
)

// Record statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusRevoked  = "revoked"
)

// DefaultKeyPrefix is prepended to generated keys.
const DefaultKeyPrefix = "ak_"

// LookupPrefixLen is the number of leading key characters stored in clear.
const LookupPrefixLen = 12

// MaxKeyPrefixLen keeps prefix + 64 hex chars within bcrypt's 72-byte input limit.
const MaxKeyPrefixLen = 8

// ErrKeyPrefixTooLong is returned by Generate for prefixes over MaxKeyPrefixLen.
var ErrKeyPrefixTooLong = fmt.Errorf("key prefix longer than %d bytes", MaxKeyPrefixLen)

// Record is the identity attached to an authenticated request (immutable value type).
// ID 0 is the anonymous placeholder.
type Record struct {
	ID            int64             `json:"id"`
	ApplicationID int64             `json:"application_id"`
	Name          string            `json:"name,omitempty"`
	Status        string            `json:"status,omitempty"`
	Permissions   []string          `json:"permissions,omitempty"`
	Variables     map[string]string `json:"variables,omitempty"`
	CreatedAt     time.Time         `json:"created_at,omitzero"`
	LastUsedAt    *time.Time        `json:"last_used_at,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// Anonymous returns the placeholder injected when authentication is skipped.
func Anonymous() Record {
	return Record{}
}

// IsAnonymous reports whether r is the placeholder record.
func (r Record) IsAnonymous() bool {
	return r.ID == 0
}

// HasPermission reports whether r grants perm.
// No permissions means full access.
func (r Record) HasPermission(perm string) bool {
	if len(r.Permissions) == 0 {
		return true
	}
	for _, p := range r.Permissions {
		if p == perm || p == "*" {
			return true
		}
	}
	return false
}

// Credential is a stored access record with its hashed key.
type Credential struct {
	Record
	Prefix    string // first LookupPrefixLen chars of the raw key
	Hash      []byte // bcrypt hash of the raw key
	RevokedAt *time.Time
}

// CreateParams contains parameters for issuing a new access key.
type CreateParams struct {
	ApplicationID int64
	Name          string
	Permissions   []string
	Variables     map[string]string
	ExpiresAt     *time.Time
}

// Generate creates a new raw access key and its stored credential.
// The raw key is prefix + 64 hex chars and is only returned once.
func Generate(prefix string, p CreateParams) (rawKey string, c Credential, err error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if len(prefix) > MaxKeyPrefixLen {
		return "", Credential{}, fmt.Errorf("%w: %q", ErrKeyPrefixTooLong, prefix)
	}
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", Credential{}, fmt.Errorf("generate key: %w", err)
	}
	rawKey = prefix + hex.EncodeToString(randomBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", Credential{}, fmt.Errorf("hash key: %w", err)
	}

	c = Credential{
		Record: Record{
			ApplicationID: p.ApplicationID,
			Name:          p.Name,
			Status:        StatusActive,
			Permissions:   p.Permissions,
			Variables:     p.Variables,
			CreatedAt:     time.Now().UTC(),
			ExpiresAt:     p.ExpiresAt,
		},
		Prefix: rawKey[:LookupPrefixLen],
		Hash:   hash,
	}
	return rawKey, c, nil
}

// Matches reports whether rawKey hashes to c.Hash.
func (c Credential) Matches(rawKey string) bool {
	return bcrypt.CompareHashAndPassword(c.Hash, []byte(rawKey)) == nil
}
