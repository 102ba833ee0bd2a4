package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"09:00", "09:00-09:30"},
		{"09:30", "09:30-10:00"},
		// Minute is kept in the start; the end snaps to the next hour.
		{"09:15", "09:15-10:00"},
		{"23:00", "23:00-23:30"},
		{"23:30", "23:30-00:00"},
		{"23:45", "23:45-00:00"},
		{"00:00", "00:00-00:30"},
		{"9:00", "09:00-09:30"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, ValidRange(got))
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, input := range []string{"", "09", "09:60", "24:00", "-1:00", "ab:cd", "09:00:00"} {
		t.Run(input, func(t *testing.T) {
			_, err := Normalize(input)
			assert.Error(t, err)
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		d, err := ParseDate("01-06-24")
		require.NoError(t, err)
		assert.Equal(t, "01-06-24", FormatDate(d))
	})

	t.Run("ImpossibleCalendarDate", func(t *testing.T) {
		_, err := ParseDate("31-02-24")
		assert.Error(t, err)
	})

	t.Run("WrongLayout", func(t *testing.T) {
		_, err := ParseDate("2024-06-01")
		assert.Error(t, err)
	})
}

func TestHalfHourRanges(t *testing.T) {
	t.Run("TwoHours", func(t *testing.T) {
		got, err := HalfHourRanges(Clock{Hour: 9}, Clock{Hour: 11})
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00-09:30", "09:30-10:00", "10:00-10:30", "10:30-11:00"}, got)
	})

	t.Run("HalfHourBoundaries", func(t *testing.T) {
		got, err := HalfHourRanges(Clock{Hour: 9, Minute: 30}, Clock{Hour: 10, Minute: 30})
		require.NoError(t, err)
		assert.Equal(t, []string{"09:30-10:00", "10:00-10:30"}, got)
	})

	t.Run("WrapsMidnight", func(t *testing.T) {
		got, err := HalfHourRanges(Clock{Hour: 23}, Clock{Hour: 24 % 24})
		assert.Error(t, err)
		assert.Nil(t, got)
	})

	t.Run("EmptyWindow", func(t *testing.T) {
		_, err := HalfHourRanges(Clock{Hour: 11}, Clock{Hour: 9})
		assert.Error(t, err)
	})

	t.Run("OffGridStart", func(t *testing.T) {
		_, err := HalfHourRanges(Clock{Hour: 9, Minute: 15}, Clock{Hour: 11})
		assert.Error(t, err)
	})
}
