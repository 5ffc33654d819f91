// Package redis provides a Redis Streams request sink.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/artpar/modgate/domain/usage"
	"github.com/artpar/modgate/ports"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultStream is the stream records are appended to.
const DefaultStream = "modgate:requests"

// Config configures the Redis request sink.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64 // approximate stream cap; 0 keeps everything

	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// RequestSink appends request records to a Redis stream, one entry per
// record, so downstream consumers can read them with XREAD or consumer groups.
type RequestSink struct {
	client *goredis.Client
	stream string
	maxLen int64
}

// NewRequestSink connects to Redis and verifies the connection.
func NewRequestSink(ctx context.Context, cfg Config) (*RequestSink, error) {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return &RequestSink{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}, nil
}

// RecordBatch implements ports.RequestSink.
func (s *RequestSink) RecordBatch(ctx context.Context, records []usage.Record) error {
	if len(records) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, r := range records {
		args := &goredis.XAddArgs{
			Stream: s.stream,
			Values: fields(r),
		}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append %d records to %s: %w", len(records), s.stream, err)
	}
	return nil
}

// Ping checks the connection.
func (s *RequestSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RequestSink) Close() error {
	return s.client.Close()
}

func fields(r usage.Record) map[string]any {
	return map[string]any{
		"id":                    r.ID,
		"application_id":        strconv.FormatInt(r.ApplicationID, 10),
		"access_record_id":      strconv.FormatInt(r.AccessRecordID, 10),
		"path":                  usage.FullPath(r.Version, r.Path),
		"version":               r.Version,
		"response_content_type": r.ResponseContentType,
		"response_length":       strconv.FormatInt(r.ResponseLength, 10),
		"response_code":         strconv.Itoa(r.ResponseCode),
		"response_time_ms":      strconv.FormatFloat(float64(r.ResponseTime)/float64(time.Millisecond), 'f', 3, 64),
		"user_agent":            r.UserAgent,
		"remote_ip":             r.RemoteIP,
		"timestamp":             r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

var _ ports.RequestSink = (*RequestSink)(nil)
