package utils

import "time"

// NowUTC returns the current wall-clock time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// NowMillis returns the current wall clock as milliseconds since epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// FileTimestamp formats a time the way output filenames expect it.
func FileTimestamp(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}
