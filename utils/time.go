// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"time"
)

// Layouts for the denormalized period keys stored on login events and used by reports.
const (
	MonthLayout = "2006-01"
	DateLayout  = "2006-01-02"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// UTCNowAddPtr returns a pointer to the current UTC time plus the given duration
func UTCNowAddPtr(d time.Duration) *time.Time {
	now := UTCNowAdd(d)
	return &now
}

// UTCNowFormat returns the current UTC time formatted according to the given layout
func UTCNowFormat(layout string) string {
	return UTCNow().Format(layout)
}

// MonthKey returns the calendar-month key ("YYYY-MM") of t in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// DateKey returns the calendar-date key ("YYYY-MM-DD") of t in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// MonthBounds parses a "YYYY-MM" key and returns the half-open UTC interval
// [start, end) covering that calendar month.
func MonthBounds(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(MonthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// ParseDate parses a "YYYY-MM-DD" value as a UTC calendar date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// TimeToUTC converts a time to UTC if it's not already
func TimeToUTC(t time.Time) time.Time {
	return t.UTC()
}

// TimeToUTCPtr converts a time pointer to UTC if it's not already
func TimeToUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := TimeToUTC(*t)
	return &utc
}
