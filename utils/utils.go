// Package utils provides utility functions for the application.
package utils

import (
	"strings"
	"time"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// MaskUserID hides all but the last four characters of a user identifier,
// e.g. for notification bodies and audit lines.
func MaskUserID(userID string) string {
	if len(userID) <= 4 {
		return strings.Repeat("*", len(userID))
	}
	return strings.Repeat("*", len(userID)-4) + userID[len(userID)-4:]
}

// FirstToken returns the first whitespace-delimited token of s, or fallback
// when s contains none. Used to derive a branch label from a free-text address.
func FirstToken(s, fallback string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0]
}

// InitialPassword derives the one-time password handed to a freshly
// provisioned user from their date of birth.
func InitialPassword(dateOfBirth time.Time) string {
	return "Test@" + dateOfBirth.Format("02012006")
}

// SplitFullName splits a display name into first and last parts. Everything
// after the first token becomes the last name.
func SplitFullName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
