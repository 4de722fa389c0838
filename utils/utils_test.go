package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstToken(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		expected string
	}{
		{
			name:     "plain address",
			input:    "Downtown 42 Elm Street",
			fallback: "Unknown",
			expected: "Downtown",
		},
		{
			name:     "leading whitespace",
			input:    "   Midtown 4th Ave",
			fallback: "Unknown",
			expected: "Midtown",
		},
		{
			name:     "tabs and newlines",
			input:    "\t\nUptown\tStation Rd",
			fallback: "Unknown",
			expected: "Uptown",
		},
		{
			name:     "single token",
			input:    "Harbor",
			fallback: "Unknown",
			expected: "Harbor",
		},
		{
			name:     "empty string falls back",
			input:    "",
			fallback: "Unknown",
			expected: "Unknown",
		},
		{
			name:     "whitespace only falls back",
			input:    "   \t  ",
			fallback: "Unknown",
			expected: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FirstToken(tt.input, tt.fallback))
		})
	}
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedFirst string
		expectedLast  string
	}{
		{
			name:          "first and last",
			input:         "John Doe",
			expectedFirst: "John",
			expectedLast:  "Doe",
		},
		{
			name:          "middle names join the last name",
			input:         "Anna Maria van Berg",
			expectedFirst: "Anna",
			expectedLast:  "Maria van Berg",
		},
		{
			name:          "single name",
			input:         "Cher",
			expectedFirst: "Cher",
			expectedLast:  "",
		},
		{
			name:          "empty",
			input:         "",
			expectedFirst: "",
			expectedLast:  "",
		},
		{
			name:          "surrounding whitespace",
			input:         "  John   Doe  ",
			expectedFirst: "John",
			expectedLast:  "Doe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitFullName(tt.input)
			assert.Equal(t, tt.expectedFirst, first)
			assert.Equal(t, tt.expectedLast, last)
		})
	}
}

func TestInitialPassword(t *testing.T) {
	dob := time.Date(1990, 4, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Test@17041990", InitialPassword(dob))

	// Day and month are zero-padded
	dob = time.Date(2001, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Test@05012001", InitialPassword(dob))
}

func TestMaskUserID(t *testing.T) {
	assert.Equal(t, "*******0021", MaskUserID("56125810021"))
	assert.Equal(t, "****", MaskUserID("1234"))
	assert.Equal(t, "**", MaskUserID("12"))
	assert.Equal(t, "", MaskUserID(""))
}

func TestMonthBounds(t *testing.T) {
	t.Run("MidYear", func(t *testing.T) {
		start, end, err := MonthBounds("2025-11")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("DecemberRollsOver", func(t *testing.T) {
		start, end, err := MonthBounds("2025-12")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, month := range []string{"", "2025", "2025-13", "11-2025", "2025/11", "not-a-month"} {
			_, _, err := MonthBounds(month)
			assert.Error(t, err, "month %q should be rejected", month)
		}
	})
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("1990-04-17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 4, 17, 0, 0, 0, 0, time.UTC), d)

	for _, date := range []string{"", "17-04-1990", "1990-13-01", "1990-02-30"} {
		_, err := ParseDate(date)
		assert.Error(t, err, "date %q should be rejected", date)
	}
}

func TestPeriodKeys(t *testing.T) {
	at := time.Date(2025, 8, 22, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "2025-08", MonthKey(at))
	assert.Equal(t, "2025-08-22", DateKey(at))

	// Keys are derived from the UTC view of the instant
	zone := time.FixedZone("UTC-10", -10*3600)
	late := time.Date(2025, 8, 31, 20, 0, 0, 0, zone)
	assert.Equal(t, "2025-09", MonthKey(late))
	assert.Equal(t, "2025-09-01", DateKey(late))
}

func TestToPtr(t *testing.T) {
	s := ToPtr("value")
	require.NotNil(t, s)
	assert.Equal(t, "value", *s)

	n := ToPtr(42)
	require.NotNil(t, n)
	assert.Equal(t, 42, *n)
}

func TestIsTrue(t *testing.T) {
	assert.False(t, IsTrue(nil))
	assert.False(t, IsTrue(ToPtr(false)))
	assert.True(t, IsTrue(ToPtr(true)))
}
