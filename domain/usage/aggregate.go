package usage

import "time"

// Summary aggregates request records over a period.
type Summary struct {
	ApplicationID int64
	PeriodStart   time.Time
	PeriodEnd     time.Time
	RequestCount  int64
	ErrorCount    int64
	BytesOut      int64
	AvgLatencyMs  int64
	ByPath        map[string]int64
}

// Aggregate combines records into a summary.
// This is a PURE function.
func Aggregate(records []Record, periodStart, periodEnd time.Time) Summary {
	s := Summary{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		ByPath:      make(map[string]int64),
	}
	if len(records) == 0 {
		return s
	}

	var totalLatency int64
	for _, r := range records {
		if s.ApplicationID == 0 {
			s.ApplicationID = r.ApplicationID
		}
		s.RequestCount++
		s.BytesOut += r.ResponseLength
		totalLatency += r.ResponseTimeMs()
		if r.IsError() {
			s.ErrorCount++
		}
		s.ByPath[FullPath(r.Version, r.Path)]++
	}
	s.AvgLatencyMs = totalLatency / s.RequestCount
	return s
}

// MergeSummaries combines multiple summaries.
// This is a PURE function.
func MergeSummaries(summaries ...Summary) Summary {
	if len(summaries) == 0 {
		return Summary{}
	}

	result := summaries[0]
	byPath := make(map[string]int64, len(result.ByPath))
	for k, v := range result.ByPath {
		byPath[k] = v
	}
	result.ByPath = byPath

	for _, s := range summaries[1:] {
		total := result.RequestCount + s.RequestCount
		if total > 0 {
			result.AvgLatencyMs = (result.AvgLatencyMs*result.RequestCount + s.AvgLatencyMs*s.RequestCount) / total
		}
		result.RequestCount = total
		result.ErrorCount += s.ErrorCount
		result.BytesOut += s.BytesOut
		for k, v := range s.ByPath {
			result.ByPath[k] += v
		}
		if s.PeriodStart.Before(result.PeriodStart) {
			result.PeriodStart = s.PeriodStart
		}
		if s.PeriodEnd.After(result.PeriodEnd) {
			result.PeriodEnd = s.PeriodEnd
		}
	}
	return result
}
