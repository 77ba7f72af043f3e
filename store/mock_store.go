package store

import (
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing. Asynchronous calls
// (RequestAccess, FetchReminders) invoke their callback synchronously with the
// configured return values.
type MockStore struct {
	mock.Mock
	Broadcaster
}

func (m *MockStore) AuthorizationStatus(kind EntityKind) AuthorizationStatus {
	args := m.Called(kind)
	return args.Get(0).(AuthorizationStatus)
}

func (m *MockStore) RequestAccess(kind EntityKind, done func(granted bool, err error)) {
	args := m.Called(kind)
	done(args.Bool(0), args.Error(1))
}

func (m *MockStore) Calendars(kind EntityKind) []Calendar {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]Calendar)
}

func (m *MockStore) EventPredicate(from, until time.Time, calendars []Calendar) Predicate {
	args := m.Called(from, until, calendars)
	return args.Get(0).(Predicate)
}

func (m *MockStore) ReminderPredicate(from, until *time.Time, calendars []Calendar) Predicate {
	args := m.Called(from, until, calendars)
	return args.Get(0).(Predicate)
}

func (m *MockStore) Events(p Predicate) ([]*Event, error) {
	args := m.Called(p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStore) FetchReminders(p Predicate, done func([]*Reminder, error)) {
	args := m.Called(p)
	if args.Get(0) == nil {
		done(nil, args.Error(1))
		return
	}
	done(args.Get(0).([]*Reminder), args.Error(1))
}

func (m *MockStore) SaveEvent(ev *Event, span Span, commit bool) error {
	return m.Called(ev, span, commit).Error(0)
}

func (m *MockStore) RemoveEvent(ev *Event, span Span, commit bool) error {
	return m.Called(ev, span, commit).Error(0)
}

func (m *MockStore) SaveReminder(r *Reminder, commit bool) error {
	return m.Called(r, commit).Error(0)
}

func (m *MockStore) RemoveReminder(r *Reminder, commit bool) error {
	return m.Called(r, commit).Error(0)
}

func (m *MockStore) Commit() error {
	return m.Called().Error(0)
}

// --- Helper methods for creating test data ---

// NewMockCalendar creates a test Calendar
func NewMockCalendar(id, title string, kind EntityKind) Calendar {
	return Calendar{
		ID:    id,
		Title: title,
		Color: "#FF9500",
		Kind:  kind,
	}
}

// NewMockEvent creates a test VEVENT with a fixed UID
func NewMockEvent(calendarID, uid, summary string, start, end time.Time) *Event {
	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)
	return &Event{CalendarID: calendarID, Component: event}
}

// NewMockReminder creates a test VTODO with a fixed UID
func NewMockReminder(calendarID, uid, summary string, due time.Time) *Reminder {
	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, uid)
	todo.Props.SetText(ical.PropSummary, summary)
	todo.Props.SetDateTime(ical.PropDue, due)
	return &Reminder{CalendarID: calendarID, Component: todo}
}

// --- Convenience methods for setting up common test scenarios ---

// SetupAuthorization makes AuthorizationStatus report status for kind.
func (m *MockStore) SetupAuthorization(kind EntityKind, status AuthorizationStatus) {
	m.ExpectedCalls = removeMatchingCalls(m.ExpectedCalls, "AuthorizationStatus", kind)
	m.On("AuthorizationStatus", kind).Return(status)
}

// Helper to remove existing mock calls that match a method and first argument
func removeMatchingCalls(calls []*mock.Call, method string, firstArg interface{}) []*mock.Call {
	result := make([]*mock.Call, 0, len(calls))
	for _, call := range calls {
		if call.Method == method && len(call.Arguments) > 0 && call.Arguments[0] == firstArg {
			continue
		}
		result = append(result, call)
	}
	return result
}
