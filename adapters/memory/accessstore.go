// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/ports"
)

// AccessStore is an in-memory implementation of ports.AccessStore.
type AccessStore struct {
	mu     sync.RWMutex
	creds  map[int64]access.Credential
	nextID int64
}

// NewAccessStore creates a new in-memory access store.
func NewAccessStore() *AccessStore {
	return &AccessStore{creds: make(map[int64]access.Credential)}
}

// GetByPrefix retrieves credentials matching a prefix.
func (s *AccessStore) GetByPrefix(ctx context.Context, prefix string) ([]access.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []access.Credential
	for _, c := range s.creds {
		if c.Prefix == prefix {
			result = append(result, c)
		}
	}
	return result, nil
}

// Create stores a new credential.
func (s *AccessStore) Create(ctx context.Context, c access.Credential) (access.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c.ID = s.nextID
	s.creds[c.ID] = c
	return c, nil
}

// Revoke marks a credential as revoked.
func (s *AccessStore) Revoke(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[id]
	if !ok {
		return access.ErrNotFound
	}
	c.RevokedAt = &at
	c.Status = access.StatusRevoked
	s.creds[id] = c
	return nil
}

// List returns the records of an application, or all when applicationID is 0.
func (s *AccessStore) List(ctx context.Context, applicationID int64) ([]access.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []access.Record
	for _, c := range s.creds {
		if applicationID == 0 || c.ApplicationID == applicationID {
			result = append(result, c.Record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateLastUsed updates the last used timestamp.
func (s *AccessStore) UpdateLastUsed(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.creds[id]; ok {
		c.LastUsedAt = &at
		s.creds[id] = c
	}
	return nil
}

var _ ports.AccessStore = (*AccessStore)(nil)

// StaticResolver resolves keys from a fixed map. Err, when set, is
// returned for every lookup.
type StaticResolver struct {
	mu      sync.Mutex
	records map[string]access.Record
	calls   int
	Err     error
}

// NewStaticResolver creates a resolver over records keyed by raw access key.
func NewStaticResolver(records map[string]access.Record) *StaticResolver {
	if records == nil {
		records = make(map[string]access.Record)
	}
	return &StaticResolver{records: records}
}

// Resolve implements ports.AccessKeyResolver.
func (r *StaticResolver) Resolve(ctx context.Context, accessKey string) (access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.Err != nil {
		return access.Record{}, r.Err
	}
	rec, ok := r.records[accessKey]
	if !ok {
		return access.Record{}, access.ErrNotFound
	}
	return rec, nil
}

// Calls returns the number of Resolve calls.
func (r *StaticResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var _ ports.AccessKeyResolver = (*StaticResolver)(nil)
