package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/modgate/domain/usage"
	"github.com/rs/zerolog"
)

// mockSink implements ports.RequestSink for testing.
type mockSink struct {
	mu      sync.Mutex
	batches [][]usage.Record
	err     error
}

func (m *mockSink) RecordBatch(ctx context.Context, records []usage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := make([]usage.Record, len(records))
	copy(cp, records)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *mockSink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestNewBatchRecorder_Defaults(t *testing.T) {
	r := NewBatchRecorder(&mockSink{}, BatchConfig{}, zerolog.Nop())
	defer r.Close()

	if r.cfg.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", r.cfg.BatchSize)
	}
	if r.cfg.FlushInterval != 10*time.Second {
		t.Errorf("FlushInterval = %v", r.cfg.FlushInterval)
	}
	if r.cfg.MaxBuffer != 10000 {
		t.Errorf("MaxBuffer = %d", r.cfg.MaxBuffer)
	}
}

func TestBatchRecorder_BatchFlush(t *testing.T) {
	sink := &mockSink{}
	r := NewBatchRecorder(sink, BatchConfig{BatchSize: 5, FlushInterval: time.Hour}, zerolog.Nop())

	for i := 0; i < 5; i++ {
		if err := r.Record(context.Background(), usage.Record{Path: "ping"}); err != nil {
			t.Fatal(err)
		}
	}
	r.mu.Lock()
	queued := len(r.buffer)
	r.mu.Unlock()
	if queued != 0 {
		t.Errorf("queued = %d after full batch", queued)
	}

	r.Close()
	if sink.total() != 5 {
		t.Errorf("recorded %d, want 5", sink.total())
	}
}

func TestBatchRecorder_CloseFlushesRemainder(t *testing.T) {
	sink := &mockSink{}
	r := NewBatchRecorder(sink, BatchConfig{BatchSize: 100, FlushInterval: time.Hour}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		r.Record(context.Background(), usage.Record{})
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if sink.total() != 3 {
		t.Errorf("recorded %d, want 3", sink.total())
	}

	// second Close is a no-op
	if err := r.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestBatchRecorder_FlushLoop(t *testing.T) {
	sink := &mockSink{}
	r := NewBatchRecorder(sink, BatchConfig{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, zerolog.Nop())
	defer r.Close()

	r.Record(context.Background(), usage.Record{})

	deadline := time.Now().Add(2 * time.Second)
	for sink.total() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.total() != 1 {
		t.Errorf("recorded %d, want 1", sink.total())
	}
}

// blockingSink holds every write until release is closed.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
	written int
}

func (b *blockingSink) RecordBatch(ctx context.Context, records []usage.Record) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	b.written += len(records)
	b.mu.Unlock()
	return nil
}

func (b *blockingSink) stats() (calls, written int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls, b.written
}

func TestBatchRecorder_Full(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	r := NewBatchRecorder(sink, BatchConfig{BatchSize: 2, FlushInterval: time.Hour, MaxBuffer: 4}, zerolog.Nop())

	accepted, full := 0, 0
	for i := 0; i < 1000; i++ {
		switch err := r.Record(context.Background(), usage.Record{}); {
		case err == nil:
			accepted++
		case errors.Is(err, ErrRequestLogFull):
			full++
		default:
			t.Fatalf("Record() = %v", err)
		}
	}

	if accepted != 4 || full != 996 {
		t.Errorf("accepted=%d full=%d, want 4 and 996", accepted, full)
	}
	if got := r.Pending(); got != 4 {
		t.Errorf("Pending() = %d, want 4", got)
	}

	// writes are capped at MaxBuffer/BatchSize batches
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls, _ := sink.stats(); calls == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if calls, _ := sink.stats(); calls != 2 {
		t.Errorf("sink writes = %d, want 2", calls)
	}

	close(sink.release)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if _, written := sink.stats(); written != 4 {
		t.Errorf("written = %d, want 4", written)
	}
	if got := r.Pending(); got != 0 {
		t.Errorf("Pending() after Close = %d", got)
	}

	// capacity frees up once the sink drains
	r2 := NewBatchRecorder(&mockSink{}, BatchConfig{BatchSize: 2, FlushInterval: time.Hour, MaxBuffer: 2}, zerolog.Nop())
	defer r2.Close()
	for i := 0; i < 10; i++ {
		if err := r2.Record(context.Background(), usage.Record{}); err != nil {
			deadline := time.Now().Add(2 * time.Second)
			for r2.Pending() > 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			if err := r2.Record(context.Background(), usage.Record{}); err != nil {
				t.Fatalf("Record() after drain = %v", err)
			}
		}
	}
}

func TestBatchRecorder_OnFlush(t *testing.T) {
	sink := &mockSink{err: errors.New("down")}

	var mu sync.Mutex
	var gotErr error
	var gotN int
	r := NewBatchRecorder(sink, BatchConfig{
		Name:          "test",
		BatchSize:     10,
		FlushInterval: time.Hour,
		OnFlush: func(name string, n int, err error) {
			mu.Lock()
			defer mu.Unlock()
			gotN, gotErr = n, err
		},
	}, zerolog.Nop())

	r.Record(context.Background(), usage.Record{})
	if err := r.Close(); err == nil {
		t.Error("Close() should report the sink error")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotN != 1 || gotErr == nil {
		t.Errorf("OnFlush got n=%d err=%v", gotN, gotErr)
	}
}
