package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, h int) time.Time {
	return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC)
}

func TestEngine_HasOccurrenceInRange(t *testing.T) {
	engine := NewEngine()

	// Base event: daily meeting from 9-10 AM starting Jan 1, 2024
	masterStart := day(1, 9)
	masterEnd := day(1, 10)

	tests := []struct {
		name       string
		recurrence RecurrenceInfo
		rangeStart time.Time
		rangeEnd   time.Time
		expected   bool
	}{
		{
			name:       "Non-recurring event in range",
			rangeStart: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			rangeEnd:   day(2, 0),
			expected:   true,
		},
		{
			name:       "Non-recurring event out of range",
			rangeStart: day(2, 0),
			rangeEnd:   day(3, 0),
			expected:   false,
		},
		{
			name:       "Event ending at range start",
			rangeStart: day(1, 10),
			rangeEnd:   day(1, 12),
			expected:   false,
		},
		{
			name:       "Event starting at range end",
			rangeStart: day(1, 0),
			rangeEnd:   day(1, 9),
			expected:   false,
		},
		{
			name:       "Occurrences touching both range ends",
			recurrence: RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=7"},
			rangeStart: day(2, 10),
			rangeEnd:   day(3, 9),
			expected:   false,
		},
		{
			name:       "Daily recurring event with occurrence in range",
			recurrence: RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=7"},
			rangeStart: day(3, 0),
			rangeEnd:   day(4, 0),
			expected:   true,
		},
		{
			name:       "Daily recurring event with no occurrence in range",
			recurrence: RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=3"},
			rangeStart: day(10, 0),
			rangeEnd:   day(11, 0),
			expected:   false,
		},
		{
			name:       "Occurrence running into the range",
			recurrence: RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=7"},
			rangeStart: time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC),
			rangeEnd:   day(3, 12),
			expected:   true,
		},
		{
			name: "Only occurrence in range is excluded",
			recurrence: RecurrenceInfo{
				RRULE:  "FREQ=DAILY;COUNT=7",
				EXDATE: []time.Time{day(3, 9)},
			},
			rangeStart: day(3, 0),
			rangeEnd:   day(3, 23),
			expected:   false,
		},
		{
			name: "Date-only EXDATE excludes the whole day",
			recurrence: RecurrenceInfo{
				RRULE:  "FREQ=DAILY;COUNT=7",
				EXDATE: []time.Time{day(4, 0)},
			},
			rangeStart: day(4, 0),
			rangeEnd:   day(4, 23),
			expected:   false,
		},
		{
			name: "Excluded master start",
			recurrence: RecurrenceInfo{
				RRULE:  "FREQ=WEEKLY;COUNT=2",
				EXDATE: []time.Time{day(1, 9)},
			},
			rangeStart: day(1, 0),
			rangeEnd:   day(1, 23),
			expected:   false,
		},
		{
			name:       "RDATE in range",
			recurrence: RecurrenceInfo{RDATE: []time.Time{day(20, 9)}},
			rangeStart: day(20, 0),
			rangeEnd:   day(21, 0),
			expected:   true,
		},
		{
			name: "Excluded RDATE",
			recurrence: RecurrenceInfo{
				RDATE:  []time.Time{day(20, 9)},
				EXDATE: []time.Time{day(20, 9)},
			},
			rangeStart: day(20, 0),
			rangeEnd:   day(21, 0),
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.HasOccurrenceInRange(
				masterStart, masterEnd,
				tt.recurrence,
				tt.rangeStart, tt.rangeEnd,
			)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		expected   bool
	}{
		{name: "inside", start: day(2, 9), end: day(2, 10), expected: true},
		{name: "covers range", start: day(1, 0), end: day(4, 0), expected: true},
		{name: "ends at range start", start: day(1, 23), end: day(2, 0), expected: false},
		{name: "starts at range end", start: day(3, 0), end: day(3, 1), expected: false},
		{name: "instant at range start", start: day(2, 0), end: day(2, 0), expected: true},
		{name: "instant at range end", start: day(3, 0), end: day(3, 0), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, overlaps(tt.start, tt.end, day(2, 0), day(3, 0)))
		})
	}
}

func TestEngine_LargeRange(t *testing.T) {
	engine := NewEngineWithConfig(EngineConfig{
		LargeRangeLimit:         30 * 24 * time.Hour,
		MaxExpansionOccurrences: 10,
	})
	masterStart := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)

	// Yearly event whose only in-range occurrence lies past the limited window
	found, err := engine.HasOccurrenceInRange(
		masterStart, masterStart.Add(time.Hour),
		RecurrenceInfo{RRULE: "FREQ=YEARLY;COUNT=10"},
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestEngine_InvalidRRule(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)

	_, err := engine.HasOccurrenceInRange(
		day(1, 9), day(1, 10),
		RecurrenceInfo{RRULE: "FREQ=SOMETIMES"},
		day(5, 0), day(6, 0),
	)
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	occurrences, err := Expand(day(1, 9), "FREQ=DAILY;COUNT=5", day(2, 0), day(4, 9))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2, 9), day(3, 9), day(4, 9)}, occurrences)
}
