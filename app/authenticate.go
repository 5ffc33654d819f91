package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/ports"
)

// Authentication outcomes. ErrUnauthorized is a caller fault;
// ErrAuthService means the resolver itself failed.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrAuthService  = errors.New("access validation service failed")
)

// Reasons reported with authentication failures.
const (
	AuthReasonMissing  = "missing_credential"
	AuthReasonNotFound = "not_found"
	AuthReasonRejected = "rejected"
	AuthReasonService  = "service_error"
)

// Authenticator extracts a credential from a request and resolves it.
type Authenticator struct {
	resolver ports.AccessKeyResolver
}

// NewAuthenticator creates an authenticator backed by resolver.
func NewAuthenticator(resolver ports.AccessKeyResolver) *Authenticator {
	return &Authenticator{resolver: resolver}
}

// Credential returns the access key carried by req: the access_key
// parameter when present, else the basic-auth password.
func Credential(req dispatch.Request) (string, bool) {
	if key, ok := req.AccessKey(); ok {
		return key, true
	}
	if req.BasicAuth != nil && req.BasicAuth.Password != "" {
		return req.BasicAuth.Password, true
	}
	return "", false
}

// Authenticate resolves the caller of req.
// Errors wrap ErrUnauthorized or ErrAuthService.
func (a *Authenticator) Authenticate(ctx context.Context, req dispatch.Request) (access.Record, error) {
	key, ok := Credential(req)
	if !ok {
		return access.Record{}, fmt.Errorf("%w: no access key", ErrUnauthorized)
	}
	if a.resolver == nil {
		return access.Record{}, fmt.Errorf("%w: no resolver configured", ErrAuthService)
	}

	rec, err := a.resolver.Resolve(ctx, key)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, access.ErrNotFound), errors.Is(err, access.ErrRejected):
		return access.Record{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	default:
		return access.Record{}, fmt.Errorf("%w: %w", ErrAuthService, err)
	}
}

// AuthFailureReason classifies an error returned by Authenticate.
func AuthFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrAuthService):
		return AuthReasonService
	case errors.Is(err, access.ErrRejected):
		return AuthReasonRejected
	case errors.Is(err, access.ErrNotFound):
		return AuthReasonNotFound
	default:
		return AuthReasonMissing
	}
}
