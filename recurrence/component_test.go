package recurrence

import (
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(start, end time.Time, rrule string) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, "series-1")
	comp.Props.SetText(ical.PropSummary, "Daily sync")
	comp.Props.SetDateTime(ical.PropDateTimeStart, start)
	comp.Props.SetDateTime(ical.PropDateTimeEnd, end)
	if rrule != "" {
		comp.Props.SetText(ical.PropRecurrenceRule, rrule)
	}
	return comp
}

func TestExtractRecurrenceInfo(t *testing.T) {
	comp := newEvent(day(1, 9), day(1, 10), "FREQ=DAILY;COUNT=5")

	exdate := ical.NewProp(ical.PropExceptionDates)
	exdate.Value = "20240102T090000Z,20240103T090000Z"
	comp.Props.Add(exdate)

	dateOnly := ical.NewProp(ical.PropExceptionDates)
	dateOnly.Value = "20240104"
	dateOnly.Params.Set(ical.ParamValue, "DATE")
	comp.Props.Add(dateOnly)

	rdate := ical.NewProp(ical.PropRecurrenceDates)
	rdate.Value = "20240110T150000"
	rdate.Params.Set(ical.ParamTimezoneID, "UTC")
	comp.Props.Add(rdate)

	info := ExtractRecurrenceInfo(comp)
	assert.Equal(t, "FREQ=DAILY;COUNT=5", info.RRULE)
	assert.Equal(t, []time.Time{day(2, 9), day(3, 9), day(4, 0)}, info.EXDATE)
	assert.Equal(t, []time.Time{day(10, 15)}, info.RDATE)
	assert.Nil(t, info.RecurrenceID)
	assert.True(t, info.IsRecurring())

	empty := ExtractRecurrenceInfo(ical.NewComponent(ical.CompEvent))
	assert.Empty(t, empty.RRULE)
	assert.False(t, empty.IsRecurring())
}

func TestExtractTimeInfo(t *testing.T) {
	t.Run("start and end", func(t *testing.T) {
		start, end, ok := ExtractTimeInfo(newEvent(day(1, 9), day(1, 10), ""))
		require.True(t, ok)
		assert.Equal(t, day(1, 9), start)
		assert.Equal(t, day(1, 10), end)
	})

	t.Run("duration", func(t *testing.T) {
		comp := ical.NewComponent(ical.CompEvent)
		comp.Props.SetDateTime(ical.PropDateTimeStart, day(1, 9))
		comp.Props.SetText(ical.PropDuration, "PT90M")

		start, end, ok := ExtractTimeInfo(comp)
		require.True(t, ok)
		assert.Equal(t, day(1, 9), start)
		assert.Equal(t, day(1, 9).Add(90*time.Minute), end)
	})

	t.Run("all day without end", func(t *testing.T) {
		comp := ical.NewComponent(ical.CompEvent)
		prop := ical.NewProp(ical.PropDateTimeStart)
		prop.Value = "20240105"
		prop.Params.Set(ical.ParamValue, "DATE")
		comp.Props.Set(prop)

		start, end, ok := ExtractTimeInfo(comp)
		require.True(t, ok)
		assert.Equal(t, day(5, 0), start)
		assert.Equal(t, day(6, 0), end)
	})

	t.Run("timed event at midnight", func(t *testing.T) {
		comp := ical.NewComponent(ical.CompEvent)
		comp.Props.SetDateTime(ical.PropDateTimeStart, day(6, 0))
		comp.Props.SetDateTime(ical.PropDateTimeEnd, day(6, 1))

		start, end, ok := ExtractTimeInfo(comp)
		require.True(t, ok)
		assert.Equal(t, day(6, 0), start)
		assert.Equal(t, day(6, 1), end)
	})

	t.Run("todo due only", func(t *testing.T) {
		comp := ical.NewComponent(ical.CompToDo)
		comp.Props.SetDateTime(ical.PropDue, day(7, 17))

		start, end, ok := ExtractTimeInfo(comp)
		require.True(t, ok)
		assert.Equal(t, day(7, 17), start)
		assert.Equal(t, day(7, 17), end)
	})

	t.Run("no times", func(t *testing.T) {
		_, _, ok := ExtractTimeInfo(ical.NewComponent(ical.CompToDo))
		assert.False(t, ok)
	})
}

func TestExcludeOccurrence(t *testing.T) {
	master := newEvent(day(1, 9), day(1, 10), "FREQ=DAILY;COUNT=5")
	ExcludeOccurrence(master, day(3, 9))
	ExcludeOccurrence(master, day(4, 9))

	info := ExtractRecurrenceInfo(master)
	assert.Equal(t, []time.Time{day(3, 9), day(4, 9)}, info.EXDATE)

	found, err := NewEngine().HasOccurrenceInRange(day(1, 9), day(1, 10), info, day(3, 0), day(4, 23))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTruncateBefore(t *testing.T) {
	t.Run("count rule", func(t *testing.T) {
		master := newEvent(day(1, 9), day(1, 10), "FREQ=DAILY;COUNT=10")
		rdate := ical.NewProp(ical.PropRecurrenceDates)
		rdate.Value = "20240102T150000Z,20240120T150000Z"
		master.Props.Add(rdate)

		remaining, err := TruncateBefore(master, day(5, 9))
		require.NoError(t, err)
		assert.True(t, remaining)

		info := ExtractRecurrenceInfo(master)
		assert.NotContains(t, info.RRULE, "COUNT")
		assert.Contains(t, info.RRULE, "UNTIL=")
		assert.Equal(t, []time.Time{day(2, 15)}, info.RDATE)

		occurrences, err := Expand(day(1, 9), info.RRULE, day(1, 0), day(31, 0))
		require.NoError(t, err)
		assert.Equal(t, []time.Time{day(1, 9), day(2, 9), day(3, 9), day(4, 9)}, occurrences)
	})

	t.Run("at series start", func(t *testing.T) {
		master := newEvent(day(1, 9), day(1, 10), "FREQ=DAILY")
		remaining, err := TruncateBefore(master, day(1, 9))
		require.NoError(t, err)
		assert.False(t, remaining)
	})

	t.Run("no start", func(t *testing.T) {
		master := ical.NewComponent(ical.CompEvent)
		master.Props.SetText(ical.PropRecurrenceRule, "FREQ=DAILY")
		_, err := TruncateBefore(master, day(3, 9))
		assert.Error(t, err)
	})
}

func TestSplitSeries(t *testing.T) {
	master := newEvent(day(1, 9), day(1, 10), "FREQ=DAILY;COUNT=10")
	ExcludeOccurrence(master, day(2, 9))

	edited := newEvent(day(5, 11), day(5, 12), "")
	edited.Props.SetText(ical.PropSummary, "Daily sync (moved)")
	edited.Props.SetDateTime(ical.PropRecurrenceID, day(5, 9))

	next, err := SplitSeries(master, edited, day(5, 9), "series-2")
	require.NoError(t, err)

	assert.Equal(t, "series-2", propValue(next, ical.PropUID))
	assert.Equal(t, "Daily sync (moved)", propValue(next, ical.PropSummary))
	assert.Nil(t, next.Props.Get(ical.PropRecurrenceID))
	assert.Nil(t, next.Props.Get(ical.PropExceptionDates))

	// Four occurrences stay with the old series, six move to the new one
	info := ExtractRecurrenceInfo(next)
	occurrences, err := Expand(day(5, 11), info.RRULE, day(1, 0), day(31, 0))
	require.NoError(t, err)
	assert.Len(t, occurrences, 6)
	assert.Equal(t, day(5, 11), occurrences[0])

	// The edited component is left untouched
	assert.Equal(t, "series-1", propValue(edited, ical.PropUID))
}

func TestSplitSeries_NoRule(t *testing.T) {
	master := newEvent(day(1, 9), day(1, 10), "")
	edited := newEvent(day(1, 9), day(1, 10), "FREQ=DAILY")

	next, err := SplitSeries(master, edited, day(1, 9), "single")
	require.NoError(t, err)
	assert.Nil(t, next.Props.Get(ical.PropRecurrenceRule))
}

func TestClone(t *testing.T) {
	orig := newEvent(day(1, 9), day(1, 10), "FREQ=DAILY")
	orig.Props.Get(ical.PropDateTimeStart).Params.Set(ical.ParamTimezoneID, "UTC")
	orig.Children = append(orig.Children, ical.NewComponent(ical.CompAlarm))

	c := Clone(orig)
	c.Props.SetText(ical.PropSummary, "changed")
	c.Props.Get(ical.PropDateTimeStart).Params.Set(ical.ParamTimezoneID, "Europe/Paris")

	assert.Equal(t, "Daily sync", propValue(orig, ical.PropSummary))
	assert.Equal(t, "UTC", orig.Props.Get(ical.PropDateTimeStart).Params.Get(ical.ParamTimezoneID))
	assert.Len(t, c.Children, 1)
	assert.NotSame(t, orig.Children[0], c.Children[0])
}

func propValue(comp *ical.Component, name string) string {
	if p := comp.Props.Get(name); p != nil {
		return p.Value
	}
	return ""
}
