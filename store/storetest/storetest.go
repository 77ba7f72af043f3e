// Package storetest holds behaviour checks shared by every store.Store
// implementation in this module.
package storetest

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cyp0633/calgate/store"
	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store is a store.Store that can also be populated by the host.
type Store interface {
	store.Store
	AddCalendar(cal store.Calendar) (store.Calendar, error)
	Pending() int
}

// Factory returns an empty store whose permission prompts are answered by prompter.
type Factory func(t *testing.T, prompter store.Prompter) Store

const (
	workCal = "work"
	homeCal = "home"
	todoCal = "todo"
)

// Run runs every check against stores made by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("RequestAccess", func(t *testing.T) { testRequestAccess(t, newStore) })
	t.Run("Calendars", func(t *testing.T) { testCalendars(t, newStore) })
	t.Run("EventSearch", func(t *testing.T) { testEventSearch(t, newStore) })
	t.Run("RangeBoundaries", func(t *testing.T) { testRangeBoundaries(t, newStore) })
	t.Run("EventSave", func(t *testing.T) { testEventSave(t, newStore) })
	t.Run("OccurrenceThisEvent", func(t *testing.T) { testOccurrenceThisEvent(t, newStore) })
	t.Run("OccurrenceFutureEvents", func(t *testing.T) { testOccurrenceFutureEvents(t, newStore) })
	t.Run("EpochOccurrence", func(t *testing.T) { testEpochOccurrence(t, newStore) })
	t.Run("RemoveEvent", func(t *testing.T) { testRemoveEvent(t, newStore) })
	t.Run("StagedWrites", func(t *testing.T) { testStagedWrites(t, newStore) })
	t.Run("ReminderSearch", func(t *testing.T) { testReminderSearch(t, newStore) })
	t.Run("RemoveReminder", func(t *testing.T) { testRemoveReminder(t, newStore) })
	t.Run("SharedUID", func(t *testing.T) { testSharedUID(t, newStore) })
}

// Day returns 2024-01-d at hour h UTC.
func Day(d, h int) time.Time {
	return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC)
}

// Recorder collects published notifications.
type Recorder struct {
	mu    sync.Mutex
	notes []store.Notification
}

// Record subscribes the recorder to s.
func Record(t *testing.T, s store.Store) *Recorder {
	r := &Recorder{}
	t.Cleanup(s.Subscribe(func(n store.Notification) {
		r.mu.Lock()
		r.notes = append(r.notes, n)
		r.mu.Unlock()
	}))
	return r
}

// Notes returns a copy of what was recorded so far.
func (r *Recorder) Notes() []store.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Notification(nil), r.notes...)
}

// Populated returns a store with calendars work and home for events and todo
// for reminders.
func Populated(t *testing.T, newStore Factory) Store {
	t.Helper()
	s := newStore(t, store.AutoGrant)
	for _, cal := range []store.Calendar{
		{ID: workCal, Title: "Work", Kind: store.KindEvent},
		{ID: homeCal, Title: "Home", Kind: store.KindEvent},
		{ID: todoCal, Title: "Todo", Kind: store.KindReminder},
	} {
		_, err := s.AddCalendar(cal)
		require.NoError(t, err)
	}
	return s
}

// Search runs an event query over [from, until) in every calendar.
func Search(t *testing.T, s store.Store, from, until time.Time) []*store.Event {
	t.Helper()
	events, err := s.Events(s.EventPredicate(from, until, nil))
	require.NoError(t, err)
	return events
}

// Fetch runs a reminder query and waits for its result.
func Fetch(t *testing.T, s store.Store, p store.Predicate) []*store.Reminder {
	t.Helper()
	type result struct {
		rs  []*store.Reminder
		err error
	}
	ch := make(chan result, 1)
	s.FetchReminders(p, func(rs []*store.Reminder, err error) { ch <- result{rs, err} })

	select {
	case res := <-ch:
		require.NoError(t, res.err)
		return res.rs
	case <-time.After(2 * time.Second):
		t.Fatal("FetchReminders never completed")
		return nil
	}
}

func summaries(events []*store.Event) []string {
	var out []string
	for _, ev := range events {
		out = append(out, ev.Summary())
	}
	return out
}

func dailySeries(uid string, count int) *store.Event {
	ev := store.NewEvent(workCal, "Daily sync", Day(1, 9), Day(1, 10))
	ev.Component.Props.SetText(ical.PropUID, uid)
	ev.Component.Props.SetText(ical.PropRecurrenceRule, "FREQ=DAILY;COUNT="+strconv.Itoa(count))
	return ev
}

// occurrence returns an edited copy of the series occurrence starting on day d
func occurrence(uid string, d int, summary string) *store.Event {
	ev := store.NewEvent(workCal, summary, Day(d, 14), Day(d, 15))
	ev.Component.Props.SetText(ical.PropUID, uid)
	ev.Component.Props.SetDateTime(ical.PropRecurrenceID, Day(d, 9))
	return ev
}

func testRequestAccess(t *testing.T, newStore Factory) {
	tests := []struct {
		name       string
		prompter   store.Prompter
		wantGrant  bool
		wantErr    bool
		wantStatus store.AuthorizationStatus
	}{
		{name: "granted", prompter: store.AutoGrant, wantGrant: true, wantStatus: store.StatusAuthorized},
		{name: "refused", prompter: store.AutoDeny, wantGrant: false, wantStatus: store.StatusDenied},
		{
			name:       "prompt failed",
			prompter:   func(store.EntityKind) (bool, error) { return false, errors.New("no UI") },
			wantErr:    true,
			wantStatus: store.StatusNotDetermined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, tt.prompter)
			rec := Record(t, s)
			assert.Equal(t, store.StatusNotDetermined, s.AuthorizationStatus(store.KindReminder))

			type answer struct {
				granted bool
				err     error
			}
			ch := make(chan answer, 2)
			s.RequestAccess(store.KindReminder, func(granted bool, err error) { ch <- answer{granted, err} })

			var got answer
			select {
			case got = <-ch:
			case <-time.After(2 * time.Second):
				t.Fatal("RequestAccess never completed")
			}
			assert.Equal(t, tt.wantGrant, got.granted)
			assert.Equal(t, tt.wantErr, got.err != nil)
			assert.Equal(t, tt.wantStatus, s.AuthorizationStatus(store.KindReminder))
			assert.Equal(t, store.StatusNotDetermined, s.AuthorizationStatus(store.KindEvent))

			if tt.wantErr {
				assert.Empty(t, rec.Notes())
				return
			}
			notes := rec.Notes()
			require.Len(t, notes, 1)
			assert.Equal(t, store.ChangeAuthorization, notes[0].Change)
			assert.Equal(t, store.KindReminder, notes[0].Kind)
		})
	}
}

func testCalendars(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)

	events := s.Calendars(store.KindEvent)
	require.Len(t, events, 2)
	assert.Equal(t, homeCal, events[0].ID)
	assert.Equal(t, workCal, events[1].ID)

	reminders := s.Calendars(store.KindReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, "Todo", reminders[0].Title)

	generated, err := s.AddCalendar(store.Calendar{Title: "Generated", Kind: store.KindReminder})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
	assert.Len(t, s.Calendars(store.KindReminder), 2)

	renamed, err := s.AddCalendar(store.Calendar{ID: workCal, Title: "Office", Kind: store.KindEvent})
	require.NoError(t, err)
	assert.Equal(t, workCal, renamed.ID)
	assert.Equal(t, "Office", s.Calendars(store.KindEvent)[1].Title)

	_, err = s.AddCalendar(store.Calendar{ID: "bad", Kind: store.EntityKind(7)})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func testEventSearch(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)

	meeting := store.NewEvent(workCal, "Planning", Day(2, 10), Day(2, 11))
	dinner := store.NewEvent(homeCal, "Dinner", Day(2, 19), Day(2, 21))
	later := store.NewEvent(workCal, "Retro", Day(9, 10), Day(9, 11))
	for _, ev := range []*store.Event{dinner, later, meeting} {
		require.NoError(t, s.SaveEvent(ev, store.SpanThisEvent, true))
	}

	assert.Equal(t, []string{"Planning", "Dinner"}, summaries(Search(t, s, Day(2, 0), Day(2, 23))))
	assert.Empty(t, Search(t, s, Day(4, 0), Day(5, 0)))

	home, err := s.Events(s.EventPredicate(Day(1, 0), Day(10, 0), []store.Calendar{{ID: homeCal, Kind: store.KindEvent}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dinner"}, summaries(home))

	none, err := s.Events(s.EventPredicate(Day(1, 0), Day(10, 0), []store.Calendar{}))
	require.NoError(t, err)
	assert.Empty(t, none)

	// An event running into the range is found
	assert.Equal(t, []string{"Dinner"}, summaries(Search(t, s, Day(2, 20), Day(2, 23))))

	_, err = s.Events(s.ReminderPredicate(nil, nil, nil))
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	// Results are copies
	found := Search(t, s, Day(9, 0), Day(9, 23))
	require.Len(t, found, 1)
	found[0].Component.Props.SetText(ical.PropSummary, "mutated")
	assert.Equal(t, []string{"Retro"}, summaries(Search(t, s, Day(9, 0), Day(9, 23))))
}

func testRangeBoundaries(t *testing.T, newStore Factory) {
	t.Run("single events", func(t *testing.T) {
		s := Populated(t, newStore)
		events := []*store.Event{
			store.NewEvent(workCal, "Ends at from", Day(4, 23), Day(5, 0)),
			store.NewEvent(workCal, "Midnight deadline", Day(5, 0), Day(5, 0)),
			store.NewEvent(workCal, "Lunch", Day(5, 12), Day(5, 13)),
			store.NewEvent(workCal, "Starts at until", Day(6, 0), Day(6, 1)),
		}
		for _, ev := range events {
			require.NoError(t, s.SaveEvent(ev, store.SpanThisEvent, true))
		}

		assert.Equal(t, []string{"Midnight deadline", "Lunch"}, summaries(Search(t, s, Day(5, 0), Day(6, 0))))
	})

	t.Run("series", func(t *testing.T) {
		s := Populated(t, newStore)
		require.NoError(t, s.SaveEvent(dailySeries("series", 5), store.SpanThisEvent, true))

		// Day 2 ends at 10:00 and day 3 starts at 09:00
		assert.Empty(t, Search(t, s, Day(2, 10), Day(3, 9)))
		assert.Len(t, Search(t, s, Day(2, 10), Day(3, 10)), 1)
	})
}

func testEventSave(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)
	rec := Record(t, s)

	ev := store.NewEvent(workCal, "Interview", Day(3, 13), Day(3, 14))
	ev.Component.Props.Del(ical.PropUID)
	require.NoError(t, s.SaveEvent(ev, store.SpanThisEvent, true))
	uid := ev.UID()
	assert.NotEmpty(t, uid, "missing UID is generated on the caller's event")

	notes := rec.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, store.ChangeSaved, notes[0].Change)
	assert.Equal(t, store.KindEvent, notes[0].Kind)
	assert.Equal(t, workCal, notes[0].CalendarID)
	assert.Equal(t, uid, notes[0].UID)

	// Saving again with the same UID replaces the event
	ev.Component.Props.SetText(ical.PropSummary, "Interview (final round)")
	require.NoError(t, s.SaveEvent(ev, store.SpanFutureEvents, true))
	found := Search(t, s, Day(3, 0), Day(3, 23))
	assert.Equal(t, []string{"Interview (final round)"}, summaries(found))

	tests := []struct {
		name    string
		ev      *store.Event
		wantErr error
	}{
		{name: "nil event", ev: nil, wantErr: store.ErrInvalidInput},
		{name: "nil component", ev: &store.Event{CalendarID: workCal}, wantErr: store.ErrInvalidInput},
		{name: "todo component", ev: &store.Event{CalendarID: workCal, Component: ical.NewComponent(ical.CompToDo)}, wantErr: store.ErrInvalidInput},
		{name: "no calendar", ev: store.NewEvent("", "x", Day(1, 1), Day(1, 2)), wantErr: store.ErrInvalidInput},
		{name: "unknown calendar", ev: store.NewEvent("nope", "x", Day(1, 1), Day(1, 2)), wantErr: store.ErrCalendarNotFound},
		{name: "reminder calendar", ev: store.NewEvent(todoCal, "x", Day(1, 1), Day(1, 2)), wantErr: store.ErrCalendarNotFound},
		{name: "occurrence of unknown series", ev: occurrence("ghost", 2, "x"), wantErr: store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.SaveEvent(tt.ev, store.SpanThisEvent, true), tt.wantErr)
		})
	}
	assert.Len(t, rec.Notes(), 2)
}

func testOccurrenceThisEvent(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)
	require.NoError(t, s.SaveEvent(dailySeries("series", 5), store.SpanThisEvent, true))

	require.NoError(t, s.SaveEvent(occurrence("series", 3, "Moved sync"), store.SpanThisEvent, true))

	// Day 3 shows only the override; the rest of the series is untouched
	day3 := Search(t, s, Day(3, 0), Day(3, 23))
	require.Len(t, day3, 1)
	assert.Equal(t, "Moved sync", day3[0].Summary())
	recID, ok := day3[0].RecurrenceID()
	assert.True(t, ok)
	assert.Equal(t, Day(3, 9), recID)

	assert.Equal(t, []string{"Daily sync"}, summaries(Search(t, s, Day(4, 0), Day(4, 23))))
	assert.Equal(t, []string{"Daily sync", "Moved sync"}, summaries(Search(t, s, Day(1, 0), Day(5, 23))))

	// Editing the override again replaces it
	require.NoError(t, s.SaveEvent(occurrence("series", 3, "Moved again"), store.SpanThisEvent, true))
	assert.Equal(t, []string{"Moved again"}, summaries(Search(t, s, Day(3, 0), Day(3, 23))))

	// Removing a single occurrence excludes it from the series
	require.NoError(t, s.RemoveEvent(occurrence("series", 4, ""), store.SpanThisEvent, true))
	assert.Empty(t, Search(t, s, Day(4, 0), Day(4, 23)))
	assert.Equal(t, []string{"Daily sync"}, summaries(Search(t, s, Day(5, 0), Day(5, 23))))

	require.NoError(t, s.RemoveEvent(occurrence("series", 3, ""), store.SpanThisEvent, true))
	assert.Empty(t, Search(t, s, Day(3, 0), Day(4, 23)))
}

func testOccurrenceFutureEvents(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)
	require.NoError(t, s.SaveEvent(dailySeries("series", 5), store.SpanThisEvent, true))
	require.NoError(t, s.SaveEvent(occurrence("series", 4, "Day 4 only"), store.SpanThisEvent, true))
	rec := Record(t, s)

	require.NoError(t, s.SaveEvent(occurrence("series", 3, "Afternoon sync"), store.SpanFutureEvents, true))

	notes := rec.Notes()
	require.Len(t, notes, 1)
	newUID := notes[0].UID
	assert.NotEqual(t, "series", newUID)

	before := Search(t, s, Day(1, 0), Day(2, 23))
	require.Len(t, before, 1)
	assert.Equal(t, "series", before[0].UID())

	// The old series ends before day 3 and takes its overrides along
	after := Search(t, s, Day(3, 0), Day(10, 0))
	require.Len(t, after, 1)
	assert.Equal(t, newUID, after[0].UID())
	assert.Equal(t, "Afternoon sync", after[0].Summary())
	_, isOccurrence := after[0].RecurrenceID()
	assert.False(t, isOccurrence)

	// The new series carries the remaining three occurrences
	assert.NotEmpty(t, Search(t, s, Day(5, 14), Day(5, 15)))
	assert.Empty(t, Search(t, s, Day(6, 0), Day(6, 23)))
}

func testEpochOccurrence(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)
	epoch := time.Unix(0, 0).UTC()

	master := store.NewEvent(workCal, "Nightly", epoch, epoch.Add(time.Hour))
	master.Component.Props.SetText(ical.PropUID, "nightly")
	master.Component.Props.SetText(ical.PropRecurrenceRule, "FREQ=DAILY;COUNT=3")
	require.NoError(t, s.SaveEvent(master, store.SpanThisEvent, true))

	moved := store.NewEvent(workCal, "Moved", epoch.Add(12*time.Hour), epoch.Add(13*time.Hour))
	moved.Component.Props.SetText(ical.PropUID, "nightly")
	moved.Component.Props.SetDateTime(ical.PropRecurrenceID, epoch)
	require.NoError(t, s.SaveEvent(moved, store.SpanThisEvent, true))

	found := Search(t, s, epoch, epoch.Add(72*time.Hour))
	require.Equal(t, []string{"Nightly", "Moved"}, summaries(found))
	_, isOccurrence := found[1].RecurrenceID()
	assert.True(t, isOccurrence)
}

func testRemoveEvent(t *testing.T, newStore Factory) {
	t.Run("future occurrences", func(t *testing.T) {
		s := Populated(t, newStore)
		require.NoError(t, s.SaveEvent(dailySeries("series", 5), store.SpanThisEvent, true))

		require.NoError(t, s.RemoveEvent(occurrence("series", 3, ""), store.SpanFutureEvents, true))
		assert.Len(t, Search(t, s, Day(1, 0), Day(2, 23)), 1)
		assert.Empty(t, Search(t, s, Day(3, 0), Day(10, 0)))
	})

	t.Run("future from first occurrence", func(t *testing.T) {
		s := Populated(t, newStore)
		require.NoError(t, s.SaveEvent(dailySeries("series", 5), store.SpanThisEvent, true))

		require.NoError(t, s.RemoveEvent(occurrence("series", 1, ""), store.SpanFutureEvents, true))
		assert.Empty(t, Search(t, s, Day(1, 0), Day(10, 0)))
		assert.ErrorIs(t, s.RemoveEvent(dailySeries("series", 5), store.SpanThisEvent, true), store.ErrNotFound)
	})

	t.Run("series master", func(t *testing.T) {
		s := Populated(t, newStore)
		require.NoError(t, s.SaveEvent(dailySeries("series", 5), store.SpanThisEvent, true))
		require.NoError(t, s.SaveEvent(occurrence("series", 2, "Override"), store.SpanThisEvent, true))
		rec := Record(t, s)

		require.NoError(t, s.RemoveEvent(dailySeries("series", 5), store.SpanThisEvent, true))
		assert.Empty(t, Search(t, s, Day(1, 0), Day(10, 0)))

		notes := rec.Notes()
		require.Len(t, notes, 1)
		assert.Equal(t, store.ChangeRemoved, notes[0].Change)
		assert.Equal(t, workCal, notes[0].CalendarID)
	})

	t.Run("unknown", func(t *testing.T) {
		s := Populated(t, newStore)
		assert.ErrorIs(t, s.RemoveEvent(store.NewEvent(workCal, "x", Day(1, 1), Day(1, 2)), store.SpanThisEvent, true), store.ErrNotFound)
		assert.ErrorIs(t, s.RemoveEvent(nil, store.SpanThisEvent, true), store.ErrInvalidInput)
	})
}

func testStagedWrites(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)
	rec := Record(t, s)

	require.NoError(t, s.Commit(), "nothing staged")

	first := store.NewEvent(workCal, "First", Day(2, 9), Day(2, 10))
	second := store.NewReminder(todoCal, "Second", Day(2, 12))
	require.NoError(t, s.SaveEvent(first, store.SpanThisEvent, false))
	require.NoError(t, s.SaveReminder(second, false))

	assert.Equal(t, 2, s.Pending())
	assert.Empty(t, Search(t, s, Day(2, 0), Day(2, 23)))
	assert.Empty(t, rec.Notes())

	require.NoError(t, s.Commit())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, []string{"First"}, summaries(Search(t, s, Day(2, 0), Day(2, 23))))
	assert.Len(t, Fetch(t, s, s.ReminderPredicate(nil, nil, nil)), 1)

	notes := rec.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, first.UID(), notes[0].UID)
	assert.Equal(t, second.UID(), notes[1].UID)

	// Validation happens when the write is staged
	assert.ErrorIs(t, s.SaveEvent(nil, store.SpanThisEvent, false), store.ErrInvalidInput)
	assert.Equal(t, 0, s.Pending())
}

func testReminderSearch(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)
	_, err := s.AddCalendar(store.Calendar{ID: "errands", Title: "Errands", Kind: store.KindReminder})
	require.NoError(t, err)

	rent := store.NewReminder(todoCal, "Pay rent", Day(1, 9))
	taxes := store.NewReminder(todoCal, "File taxes", Day(3, 9))
	taxes.Component.Props.SetText(ical.PropStatus, "COMPLETED")
	someday := store.NewReminder(todoCal, "Learn piano", time.Time{})
	milk := store.NewReminder("errands", "Buy milk", Day(2, 18))
	for _, r := range []*store.Reminder{taxes, someday, rent, milk} {
		require.NoError(t, s.SaveReminder(r, true))
	}

	names := func(rs []*store.Reminder) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Summary())
		}
		return out
	}
	from, until := Day(1, 0), Day(3, 0)
	todo := []store.Calendar{{ID: todoCal, Kind: store.KindReminder}}

	assert.ElementsMatch(t,
		[]string{"Pay rent", "File taxes", "Learn piano", "Buy milk"},
		names(Fetch(t, s, s.ReminderPredicate(nil, nil, nil))))

	assert.Equal(t, []string{"Pay rent", "Buy milk"}, names(Fetch(t, s, s.ReminderPredicate(&from, &until, nil))))
	assert.Equal(t, []string{"Pay rent", "Buy milk", "File taxes"}, names(Fetch(t, s, s.ReminderPredicate(nil, ptr(Day(4, 0)), nil))))
	assert.Equal(t, []string{"File taxes"}, names(Fetch(t, s, s.ReminderPredicate(ptr(Day(2, 19)), nil, nil))))
	assert.Equal(t, []string{"Pay rent"}, names(Fetch(t, s, s.ReminderPredicate(&from, &until, todo))))

	incomplete := s.ReminderPredicate(nil, nil, todo)
	incomplete.Completion = store.CompletionIncomplete
	assert.ElementsMatch(t, []string{"Pay rent", "Learn piano"}, names(Fetch(t, s, incomplete)))

	completed := s.ReminderPredicate(nil, nil, nil)
	completed.Completion = store.CompletionCompleted
	assert.Equal(t, []string{"File taxes"}, names(Fetch(t, s, completed)))

	// Nothing matching is reported as nil
	assert.Nil(t, Fetch(t, s, s.ReminderPredicate(ptr(Day(20, 0)), nil, nil)))
	assert.Nil(t, Fetch(t, s, s.ReminderPredicate(nil, nil, []store.Calendar{})))

	err = s.SaveReminder(store.NewReminder(workCal, "wrong calendar", Day(1, 1)), true)
	assert.ErrorIs(t, err, store.ErrCalendarNotFound)
	err = s.SaveReminder(&store.Reminder{CalendarID: todoCal, Component: ical.NewComponent(ical.CompEvent)}, true)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	assert.ErrorIs(t, s.SaveReminder(nil, true), store.ErrInvalidInput)
}

func testRemoveReminder(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)
	r := store.NewReminder(todoCal, "Call plumber", Day(5, 9))
	require.NoError(t, s.SaveReminder(r, true))
	rec := Record(t, s)

	require.NoError(t, s.RemoveReminder(r, true))
	assert.Nil(t, Fetch(t, s, s.ReminderPredicate(nil, nil, nil)))

	notes := rec.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, store.ChangeRemoved, notes[0].Change)
	assert.Equal(t, store.KindReminder, notes[0].Kind)
	assert.Equal(t, todoCal, notes[0].CalendarID)
	assert.Equal(t, r.UID(), notes[0].UID)

	assert.ErrorIs(t, s.RemoveReminder(r, true), store.ErrNotFound)
	assert.ErrorIs(t, s.RemoveReminder(nil, true), store.ErrInvalidInput)
}

func testSharedUID(t *testing.T, newStore Factory) {
	s := Populated(t, newStore)

	ev := store.NewEvent(workCal, "Standup", Day(5, 9), Day(5, 10))
	ev.Component.Props.SetText(ical.PropUID, "shared")
	r := store.NewReminder(todoCal, "Follow up", Day(5, 12))
	r.Component.Props.SetText(ical.PropUID, "shared")

	require.NoError(t, s.SaveEvent(ev, store.SpanThisEvent, true))
	require.NoError(t, s.SaveReminder(r, true))

	events := Search(t, s, Day(5, 0), Day(6, 0))
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Summary())
	reminders := Fetch(t, s, s.ReminderPredicate(nil, nil, nil))
	require.Len(t, reminders, 1)
	assert.Equal(t, "Follow up", reminders[0].Summary())

	require.NoError(t, s.RemoveReminder(r, true))
	assert.Len(t, Search(t, s, Day(5, 0), Day(6, 0)), 1)

	require.NoError(t, s.SaveReminder(r, true))
	require.NoError(t, s.RemoveEvent(ev, store.SpanThisEvent, true))
	assert.Empty(t, Search(t, s, Day(5, 0), Day(6, 0)))
	assert.Len(t, Fetch(t, s, s.ReminderPredicate(nil, nil, nil)), 1)
}

func ptr(t time.Time) *time.Time {
	return &t
}
