package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentRoundTrip(t *testing.T) {
	start := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, "ev-1")
	event.Props.SetText(ical.PropSummary, "Planning, part 2")
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(time.Hour))
	event.Props.SetText(ical.PropRecurrenceRule, "FREQ=WEEKLY;COUNT=4")

	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, "todo-1")
	todo.Props.SetText(ical.PropSummary, "Book rooms")
	todo.Props.SetDateTime(ical.PropDue, start.Add(-24*time.Hour))
	todo.Props.SetText(ical.PropStatus, "NEEDS-ACTION")

	for _, comp := range []*ical.Component{event, todo} {
		t.Run(comp.Name, func(t *testing.T) {
			text, err := EncodeComponent(comp)
			require.NoError(t, err)
			assert.Contains(t, text, "PRODID:"+productID)
			assert.Contains(t, text, "DTSTAMP:")

			decoded, err := DecodeComponent(text)
			require.NoError(t, err)
			assert.Equal(t, comp.Name, decoded.Name)
			for _, name := range []string{ical.PropUID, ical.PropSummary, ical.PropRecurrenceRule, ical.PropStatus} {
				want, _ := comp.Props.Text(name)
				got, _ := decoded.Props.Text(name)
				assert.Equal(t, want, got, name)
			}
		})
	}

	got, err := DecodeComponent(mustEncode(t, event))
	require.NoError(t, err)
	dtstart, err := got.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, start, dtstart)
}

func TestDecode_MultipleCalendars(t *testing.T) {
	a := ical.NewComponent(ical.CompEvent)
	a.Props.SetText(ical.PropUID, "a")
	a.Props.SetDateTime(ical.PropDateTimeStart, time.Now().UTC())
	b := ical.NewComponent(ical.CompToDo)
	b.Props.SetText(ical.PropUID, "b")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, a))
	require.NoError(t, Encode(&buf, b, nil))

	comps, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, ical.CompEvent, comps[0].Name)
	assert.Equal(t, ical.CompToDo, comps[1].Name)
}

func TestDecodeComponent_Errors(t *testing.T) {
	_, err := DecodeComponent("not a calendar")
	assert.Error(t, err)

	_, err = DecodeComponent("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\nEND:VCALENDAR\r\n")
	assert.Error(t, err)

	one := ical.NewComponent(ical.CompEvent)
	one.Props.SetText(ical.PropUID, "one")
	one.Props.SetDateTime(ical.PropDateTimeStart, time.Now().UTC())
	two := ical.NewComponent(ical.CompEvent)
	two.Props.SetText(ical.PropUID, "two")
	two.Props.SetDateTime(ical.PropDateTimeStart, time.Now().UTC())
	_, err = DecodeComponent(mustEncode(t, one, two))
	assert.ErrorContains(t, err, "multiple components")
}

func mustEncode(t *testing.T, comps ...*ical.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, Encode(&sb, comps...))
	return sb.String()
}
