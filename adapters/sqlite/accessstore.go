package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/ports"
)

// AccessStore implements ports.AccessStore using SQLite.
type AccessStore struct {
	db *DB
}

// NewAccessStore creates a new SQLite access store.
func NewAccessStore(db *DB) *AccessStore {
	return &AccessStore{db: db}
}

const accessColumns = `id, application_id, name, status, prefix, hash, permissions, variables,
	created_at, last_used_at, expires_at, revoked_at`

// GetByPrefix retrieves credentials matching a prefix.
func (s *AccessStore) GetByPrefix(ctx context.Context, prefix string) ([]access.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accessColumns+`
		FROM access_records
		WHERE prefix = ?
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []access.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// Create stores a new credential and assigns its ID.
func (s *AccessStore) Create(ctx context.Context, c access.Credential) (access.Credential, error) {
	permissions, err := json.Marshal(nonNilStrings(c.Permissions))
	if err != nil {
		return access.Credential{}, err
	}
	variables, err := json.Marshal(nonNilMap(c.Variables))
	if err != nil {
		return access.Credential{}, err
	}
	if c.Status == "" {
		c.Status = access.StatusActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO access_records (application_id, name, status, prefix, hash, permissions, variables,
			created_at, last_used_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ApplicationID, c.Name, c.Status, c.Prefix, c.Hash, string(permissions), string(variables),
		c.CreatedAt.UTC(), nullTime(c.LastUsedAt), nullTime(c.ExpiresAt), nullTime(c.RevokedAt))
	if err != nil {
		return access.Credential{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return access.Credential{}, err
	}
	c.ID = id
	return c, nil
}

// Revoke marks a credential as revoked.
func (s *AccessStore) Revoke(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE access_records SET revoked_at = ?, status = ? WHERE id = ?
	`, at.UTC(), access.StatusRevoked, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return access.ErrNotFound
	}
	return nil
}

// List returns the records of an application, or all when applicationID is 0.
func (s *AccessStore) List(ctx context.Context, applicationID int64) ([]access.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accessColumns+`
		FROM access_records
		WHERE ? = 0 OR application_id = ?
		ORDER BY id
	`, applicationID, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []access.Record
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, c.Record)
	}
	return records, rows.Err()
}

// UpdateLastUsed updates the last used timestamp.
func (s *AccessStore) UpdateLastUsed(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE access_records SET last_used_at = ? WHERE id = ?
	`, at.UTC(), id)
	return err
}

func scanCredential(rows *sql.Rows) (access.Credential, error) {
	var c access.Credential
	var permissions, variables string
	var lastUsed, expiresAt, revokedAt sql.NullTime

	err := rows.Scan(
		&c.ID, &c.ApplicationID, &c.Name, &c.Status, &c.Prefix, &c.Hash, &permissions, &variables,
		&c.CreatedAt, &lastUsed, &expiresAt, &revokedAt,
	)
	if err != nil {
		return access.Credential{}, err
	}

	if permissions != "" && permissions != "[]" {
		if err := json.Unmarshal([]byte(permissions), &c.Permissions); err != nil {
			return access.Credential{}, err
		}
	}
	if variables != "" && variables != "{}" {
		if err := json.Unmarshal([]byte(variables), &c.Variables); err != nil {
			return access.Credential{}, err
		}
	}
	if lastUsed.Valid {
		c.LastUsedAt = &lastUsed.Time
	}
	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	if revokedAt.Valid {
		c.RevokedAt = &revokedAt.Time
	}
	return c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

var _ ports.AccessStore = (*AccessStore)(nil)
