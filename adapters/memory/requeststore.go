package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artpar/modgate/domain/usage"
	"github.com/artpar/modgate/ports"
)

// RequestStore is an in-memory implementation of ports.RequestStore.
type RequestStore struct {
	mu      sync.RWMutex
	records []usage.Record
}

// NewRequestStore creates a new in-memory request store.
func NewRequestStore() *RequestStore {
	return &RequestStore{}
}

// RecordBatch stores multiple records.
func (s *RequestStore) RecordBatch(ctx context.Context, records []usage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

// Recent returns the newest records first.
func (s *RequestStore) Recent(ctx context.Context, applicationID int64, limit int) ([]usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []usage.Record
	for _, r := range s.records {
		if applicationID == 0 || r.ApplicationID == applicationID {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Summary aggregates records in [start, end).
func (s *RequestStore) Summary(ctx context.Context, applicationID int64, start, end time.Time) (usage.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []usage.Record
	for _, r := range s.records {
		if applicationID != 0 && r.ApplicationID != applicationID {
			continue
		}
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		matched = append(matched, r)
	}
	summary := usage.Aggregate(matched, start, end)
	summary.ApplicationID = applicationID
	return summary, nil
}

// All returns every stored record in insertion order.
func (s *RequestStore) All() []usage.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]usage.Record, len(s.records))
	copy(out, s.records)
	return out
}

var _ ports.RequestStore = (*RequestStore)(nil)

// RequestLog collects records synchronously. Err, when set, is returned
// from every Record call after the record is captured.
type RequestLog struct {
	mu      sync.Mutex
	records []usage.Record
	closed  bool
	Err     error
}

// NewRequestLog creates an in-memory request log.
func NewRequestLog() *RequestLog {
	return &RequestLog{}
}

// Record implements ports.RequestLog.
func (l *RequestLog) Record(ctx context.Context, r usage.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return l.Err
}

// Close implements ports.RequestLog.
func (l *RequestLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Records returns captured records.
func (l *RequestLog) Records() []usage.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]usage.Record, len(l.records))
	copy(out, l.records)
	return out
}

// Closed reports whether Close was called.
func (l *RequestLog) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

var _ ports.RequestLog = (*RequestLog)(nil)
