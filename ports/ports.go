// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/domain/usage"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Access Ports
// -----------------------------------------------------------------------------

// AccessKeyResolver resolves a raw access key to the caller's access record.
// Returns access.ErrNotFound or access.ErrRejected when the key is not usable;
// any other error is a service fault.
type AccessKeyResolver interface {
	Resolve(ctx context.Context, accessKey string) (access.Record, error)
}

// AccessStore persists access credentials.
type AccessStore interface {
	// GetByPrefix retrieves credentials matching a lookup prefix.
	GetByPrefix(ctx context.Context, prefix string) ([]access.Credential, error)

	// Create stores a new credential and returns it with its assigned ID.
	Create(ctx context.Context, c access.Credential) (access.Credential, error)

	// Revoke marks a credential as revoked.
	Revoke(ctx context.Context, id int64, at time.Time) error

	// List returns the records of an application, or all when applicationID is 0.
	List(ctx context.Context, applicationID int64) ([]access.Record, error)

	// UpdateLastUsed updates the last used timestamp.
	UpdateLastUsed(ctx context.Context, id int64, at time.Time) error
}

// -----------------------------------------------------------------------------
// Request Log Ports
// -----------------------------------------------------------------------------

// RequestLog accepts completed-request records. Record must not block on I/O
// for long; failures are reported but never affect the response.
type RequestLog interface {
	Record(ctx context.Context, r usage.Record) error

	// Close flushes pending records and releases resources.
	Close() error
}

// RequestSink writes request records in batches.
type RequestSink interface {
	RecordBatch(ctx context.Context, records []usage.Record) error
}

// RequestStore persists request records and answers queries over them.
type RequestStore interface {
	RequestSink

	// Recent returns the newest records, optionally for one application.
	Recent(ctx context.Context, applicationID int64, limit int) ([]usage.Record, error)

	// Summary aggregates records in [start, end), optionally for one application.
	Summary(ctx context.Context, applicationID int64, start, end time.Time) (usage.Summary, error)
}
