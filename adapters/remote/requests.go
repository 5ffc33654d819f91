package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/artpar/modgate/domain/usage"
	"github.com/artpar/modgate/ports"
)

// RequestSink sends request records to an external logging service.
//
// API Contract:
//
//	POST /requests/batch
//	Request:  {"records": [...]}
//	Response: {"received": 5}
type RequestSink struct {
	client *Client
}

// NewRequestSink creates a remote request sink.
func NewRequestSink(client *Client) *RequestSink {
	return &RequestSink{client: client}
}

// RemoteRequestRecord is the wire format for request records.
type RemoteRequestRecord struct {
	ID                  string    `json:"id"`
	ApplicationID       int64     `json:"application_id"`
	AccessRecordID      int64     `json:"access_record_id"`
	Path                string    `json:"path"`
	Version             string    `json:"version"`
	ResponseContentType string    `json:"response_content_type"`
	ResponseLength      int64     `json:"response_length"`
	ResponseTime        float64   `json:"response_time"` // seconds
	ResponseCode        int       `json:"response_code"`
	UserAgent           string    `json:"user_agent,omitempty"`
	RemoteIP            string    `json:"remote_ip,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

type batchRequest struct {
	Records []RemoteRequestRecord `json:"records"`
}

type batchResponse struct {
	Received int `json:"received"`
}

// RecordBatch implements ports.RequestSink.
func (s *RequestSink) RecordBatch(ctx context.Context, records []usage.Record) error {
	if len(records) == 0 {
		return nil
	}
	req := batchRequest{Records: make([]RemoteRequestRecord, len(records))}
	for i, r := range records {
		req.Records[i] = toRemote(r)
	}
	var resp batchResponse
	return s.client.Request(ctx, http.MethodPost, "/requests/batch", req, &resp)
}

func toRemote(r usage.Record) RemoteRequestRecord {
	return RemoteRequestRecord{
		ID:                  r.ID,
		ApplicationID:       r.ApplicationID,
		AccessRecordID:      r.AccessRecordID,
		Path:                usage.FullPath(r.Version, r.Path),
		Version:             r.Version,
		ResponseContentType: r.ResponseContentType,
		ResponseLength:      r.ResponseLength,
		ResponseTime:        r.ResponseTime.Seconds(),
		ResponseCode:        r.ResponseCode,
		UserAgent:           r.UserAgent,
		RemoteIP:            r.RemoteIP,
		Timestamp:           r.Timestamp,
	}
}

var _ ports.RequestSink = (*RequestSink)(nil)
