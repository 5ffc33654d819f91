package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/artpar/modgate/domain/usage"
	"github.com/artpar/modgate/ports"
)

// RequestStore implements ports.RequestStore using SQLite.
type RequestStore struct {
	db *DB
}

// NewRequestStore creates a new SQLite request store.
func NewRequestStore(db *DB) *RequestStore {
	return &RequestStore{db: db}
}

// RecordBatch stores multiple records in one transaction.
func (s *RequestStore) RecordBatch(ctx context.Context, records []usage.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO request_records (
			id, application_id, access_record_id, version, path, response_content_type,
			response_length, response_code, response_time_us, user_agent, remote_ip, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.ID, r.ApplicationID, r.AccessRecordID, r.Version, r.Path, r.ResponseContentType,
			r.ResponseLength, r.ResponseCode, r.ResponseTime.Microseconds(), r.UserAgent, r.RemoteIP,
			r.Timestamp.UTC(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Recent returns the newest records first.
func (s *RequestStore) Recent(ctx context.Context, applicationID int64, limit int) ([]usage.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, access_record_id, version, path, response_content_type,
			response_length, response_code, response_time_us, user_agent, remote_ip, timestamp
		FROM request_records
		WHERE ? = 0 OR application_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, applicationID, applicationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []usage.Record
	for rows.Next() {
		var r usage.Record
		var micros int64
		if err := rows.Scan(
			&r.ID, &r.ApplicationID, &r.AccessRecordID, &r.Version, &r.Path, &r.ResponseContentType,
			&r.ResponseLength, &r.ResponseCode, &micros, &r.UserAgent, &r.RemoteIP, &r.Timestamp,
		); err != nil {
			return nil, err
		}
		r.ResponseTime = time.Duration(micros) * time.Microsecond
		records = append(records, r)
	}
	return records, rows.Err()
}

// Summary aggregates records in [start, end).
func (s *RequestStore) Summary(ctx context.Context, applicationID int64, start, end time.Time) (usage.Summary, error) {
	startStr := start.UTC().Format("2006-01-02 15:04:05")
	endStr := end.UTC().Format("2006-01-02 15:04:05")
	filter := `(? = 0 OR application_id = ?) AND datetime(timestamp) >= datetime(?) AND datetime(timestamp) < datetime(?)`

	summary := usage.Summary{
		ApplicationID: applicationID,
		PeriodStart:   start,
		PeriodEnd:     end,
		ByPath:        make(map[string]int64),
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN response_code >= 400 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(response_length), 0),
			CAST(COALESCE(AVG(response_time_us), 0) / 1000 AS INTEGER)
		FROM request_records
		WHERE `+filter, applicationID, applicationID, startStr, endStr)
	if err := row.Scan(&summary.RequestCount, &summary.ErrorCount, &summary.BytesOut, &summary.AvgLatencyMs); err != nil {
		if err == sql.ErrNoRows {
			return summary, nil
		}
		return usage.Summary{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT '/' || version || '/' || path, COUNT(*)
		FROM request_records
		WHERE `+filter+`
		GROUP BY version, path
	`, applicationID, applicationID, startStr, endStr)
	if err != nil {
		return usage.Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var n int64
		if err := rows.Scan(&path, &n); err != nil {
			return usage.Summary{}, err
		}
		summary.ByPath[path] = n
	}
	return summary, rows.Err()
}

var _ ports.RequestStore = (*RequestStore)(nil)
