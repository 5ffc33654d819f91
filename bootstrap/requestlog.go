package bootstrap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/artpar/modgate/domain/usage"
	"github.com/artpar/modgate/ports"
	"github.com/rs/zerolog"
)

// ErrRequestLogFull is returned when the buffer is at capacity and a record is dropped.
var ErrRequestLogFull = errors.New("request log buffer full")

// BatchConfig configures a BatchRecorder.
type BatchConfig struct {
	Name          string // sink label for logs and metrics
	BatchSize     int
	FlushInterval time.Duration
	MaxBuffer     int // queued plus unwritten records; beyond it Record drops

	// OnFlush, when set, is called after every write to the sink.
	OnFlush func(sink string, records int, err error)
}

// BatchRecorder buffers request records and writes them in batches to a sink.
type BatchRecorder struct {
	sink   ports.RequestSink
	cfg    BatchConfig
	logger zerolog.Logger

	mu       sync.Mutex
	buffer   []usage.Record
	inFlight int // records handed to writes that have not returned

	stopCh    chan struct{}
	loopWG    sync.WaitGroup
	writeWG   sync.WaitGroup
	closeOnce sync.Once
}

// NewBatchRecorder creates a recorder and starts its flush loop.
func NewBatchRecorder(sink ports.RequestSink, cfg BatchConfig, logger zerolog.Logger) *BatchRecorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	switch {
	case cfg.MaxBuffer <= 0:
		cfg.MaxBuffer = cfg.BatchSize * 100
	case cfg.MaxBuffer < cfg.BatchSize:
		cfg.MaxBuffer = cfg.BatchSize
	}

	r := &BatchRecorder{
		sink:   sink,
		cfg:    cfg,
		logger: logger.With().Str("sink", cfg.Name).Logger(),
		buffer: make([]usage.Record, 0, cfg.BatchSize),
		stopCh: make(chan struct{}),
	}

	r.loopWG.Add(1)
	go r.flushLoop()

	return r
}

// Record queues a request record. It returns ErrRequestLogFull when
// MaxBuffer records are already queued or being written.
func (r *BatchRecorder) Record(ctx context.Context, rec usage.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buffer)+r.inFlight >= r.cfg.MaxBuffer {
		return ErrRequestLogFull
	}
	r.buffer = append(r.buffer, rec)

	if len(r.buffer) >= r.cfg.BatchSize {
		r.flushLocked()
	}
	return nil
}

// Flush hands queued records to the sink without waiting for the write.
func (r *BatchRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
}

// Pending returns the number of records queued or being written.
func (r *BatchRecorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer) + r.inFlight
}

func (r *BatchRecorder) flushLocked() {
	if len(r.buffer) == 0 {
		return
	}

	records := make([]usage.Record, len(r.buffer))
	copy(records, r.buffer)
	r.buffer = r.buffer[:0]
	r.inFlight += len(records)

	r.writeWG.Add(1)
	go func() {
		defer r.writeWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.write(ctx, records)

		r.mu.Lock()
		r.inFlight -= len(records)
		r.mu.Unlock()
	}()
}

func (r *BatchRecorder) write(ctx context.Context, records []usage.Record) error {
	err := r.sink.RecordBatch(ctx, records)
	if err != nil {
		r.logger.Warn().Err(err).Int("records", len(records)).Msg("failed to write request records")
	}
	if r.cfg.OnFlush != nil {
		r.cfg.OnFlush(r.cfg.Name, len(records), err)
	}
	return err
}

func (r *BatchRecorder) flushLoop() {
	defer r.loopWG.Done()
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Flush()
		case <-r.stopCh:
			return
		}
	}
}

// Close stops the flush loop, waits for in-flight writes and
// writes any remaining records.
func (r *BatchRecorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stopCh)
		r.loopWG.Wait()
		r.writeWG.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r.mu.Lock()
		defer r.mu.Unlock()

		if len(r.buffer) > 0 {
			err = r.write(ctx, r.buffer)
			r.buffer = nil
		}
	})
	return err
}

var _ ports.RequestLog = (*BatchRecorder)(nil)
