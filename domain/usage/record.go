// Package usage provides the request log record and aggregation functions.
// All functions are pure - no side effects.
package usage

import (
	"strings"
	"time"
)

// Record describes one completed module execution (immutable value type).
type Record struct {
	ID                  string        `json:"id"`
	ApplicationID       int64         `json:"application_id"`
	AccessRecordID      int64         `json:"access_record_id"`
	Version             string        `json:"version"`
	Path                string        `json:"path"`
	ResponseContentType string        `json:"response_content_type"`
	ResponseLength      int64         `json:"response_length"`
	ResponseCode        int           `json:"response_code"`
	ResponseTime        time.Duration `json:"response_time_ns"`
	UserAgent           string        `json:"user_agent,omitempty"`
	RemoteIP            string        `json:"remote_ip,omitempty"`
	Timestamp           time.Time     `json:"timestamp"`
}

// FullPath returns "/version/path" as the request addressed it after normalization.
func FullPath(version, path string) string {
	return "/" + strings.Trim(version, "/") + "/" + strings.Trim(path, "/")
}

// ResponseTimeMs returns the response time in whole milliseconds.
func (r Record) ResponseTimeMs() int64 {
	return r.ResponseTime.Milliseconds()
}

// IsError reports whether the module reported an error status.
func (r Record) IsError() bool {
	return r.ResponseCode >= 400
}
