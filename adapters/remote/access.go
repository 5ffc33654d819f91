package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/ports"
)

// AccessResolver validates access keys against an external service.
//
// API Contract:
//
//	POST /access/resolve
//	Request:  {"access_key": "ak_..."}
//	Response: {"id": 12, "application_id": 3, "name": "...", "permissions": [...]}
//	404 when the key is unknown, 403 when it is disabled, revoked or expired.
type AccessResolver struct {
	client *Client
}

// NewAccessResolver creates a remote access resolver.
func NewAccessResolver(client *Client) *AccessResolver {
	return &AccessResolver{client: client}
}

type resolveRequest struct {
	AccessKey string `json:"access_key"`
}

// RemoteAccessRecord is the wire format for access records.
type RemoteAccessRecord struct {
	ID            int64             `json:"id"`
	ApplicationID int64             `json:"application_id"`
	Name          string            `json:"name,omitempty"`
	Status        string            `json:"status,omitempty"`
	Permissions   []string          `json:"permissions,omitempty"`
	Variables     map[string]string `json:"variables,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// Resolve implements ports.AccessKeyResolver.
func (r *AccessResolver) Resolve(ctx context.Context, accessKey string) (access.Record, error) {
	var resp RemoteAccessRecord
	err := r.client.Request(ctx, http.MethodPost, "/access/resolve", resolveRequest{AccessKey: accessKey}, &resp)
	switch {
	case IsNotFound(err):
		return access.Record{}, access.ErrNotFound
	case IsStatus(err, http.StatusForbidden), IsStatus(err, http.StatusUnauthorized):
		return access.Record{}, access.ErrRejected
	case err != nil:
		return access.Record{}, fmt.Errorf("resolve access key: %w", err)
	}

	if resp.ID == 0 {
		// ID 0 is reserved for anonymous callers.
		return access.Record{}, fmt.Errorf("resolve access key: remote returned record without id")
	}
	return access.Record{
		ID:            resp.ID,
		ApplicationID: resp.ApplicationID,
		Name:          resp.Name,
		Status:        resp.Status,
		Permissions:   resp.Permissions,
		Variables:     resp.Variables,
		CreatedAt:     resp.CreatedAt,
		ExpiresAt:     resp.ExpiresAt,
	}, nil
}

var _ ports.AccessKeyResolver = (*AccessResolver)(nil)
