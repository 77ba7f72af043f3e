package store

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// EntityKind selects the store sub-API and the authorization domain of a call.
type EntityKind int

const (
	KindEvent EntityKind = iota
	KindReminder
)

// String provides a human-readable representation of the EntityKind.
func (k EntityKind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindReminder:
		return "reminder"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}

// Component returns the iCalendar component name holding entities of this kind.
func (k EntityKind) Component() string {
	if k == KindReminder {
		return ical.CompToDo
	}
	return ical.CompEvent
}

// AuthorizationStatus is the host-tracked permission state for an entity kind.
type AuthorizationStatus int

const (
	StatusNotDetermined AuthorizationStatus = iota
	StatusRestricted
	StatusDenied
	StatusAuthorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case StatusNotDetermined:
		return "not_determined"
	case StatusRestricted:
		return "restricted"
	case StatusDenied:
		return "denied"
	case StatusAuthorized:
		return "authorized"
	default:
		return fmt.Sprintf("AuthorizationStatus(%d)", int(s))
	}
}

// ParseAuthorizationStatus is the inverse of AuthorizationStatus.String.
func ParseAuthorizationStatus(s string) (AuthorizationStatus, error) {
	for _, st := range []AuthorizationStatus{StatusNotDetermined, StatusRestricted, StatusDenied, StatusAuthorized} {
		if st.String() == s {
			return st, nil
		}
	}
	return StatusNotDetermined, fmt.Errorf("%w: authorization status %q", ErrInvalidInput, s)
}

// Span is the scope of a recurring-event mutation.
type Span int

const (
	// SpanThisEvent affects a single occurrence.
	SpanThisEvent Span = iota
	// SpanFutureEvents affects the occurrence and every later one.
	SpanFutureEvents
)

func (s Span) String() string {
	if s == SpanFutureEvents {
		return "future_events"
	}
	return "this_event"
}

// Calendar is a container of events or reminders. Its contents are not
// interpreted by the gateway.
type Calendar struct {
	ID    string
	Title string
	// 6-character HEX string with # prefix
	Color string
	Kind  EntityKind
}

// ValidateCalendar checks that cal holds a known entity kind.
func ValidateCalendar(cal Calendar) error {
	if cal.Kind != KindEvent && cal.Kind != KindReminder {
		return fmt.Errorf("%w: calendar kind %s", ErrInvalidInput, cal.Kind)
	}
	return nil
}

// Event wraps a VEVENT component stored in a calendar.
type Event struct {
	CalendarID string
	Component  *ical.Component
}

// NewEvent creates an event in calendarID with a fresh UID.
func NewEvent(calendarID, summary string, start, end time.Time) *Event {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, uuid.New().String())
	comp.Props.SetText(ical.PropSummary, summary)
	comp.Props.SetDateTime(ical.PropDateTimeStart, start)
	comp.Props.SetDateTime(ical.PropDateTimeEnd, end)
	return &Event{CalendarID: calendarID, Component: comp}
}

func (e *Event) UID() string { return propText(e.Component, ical.PropUID) }

func (e *Event) Summary() string { return propText(e.Component, ical.PropSummary) }

func (e *Event) Start() (time.Time, error) {
	return e.Component.Props.DateTime(ical.PropDateTimeStart, time.UTC)
}

// RecurrenceID returns the original start of the occurrence this event
// represents, if it is an occurrence of a recurring series.
func (e *Event) RecurrenceID() (time.Time, bool) {
	return RecurrenceID(e.Component)
}

// Reminder wraps a VTODO component stored in a calendar.
type Reminder struct {
	CalendarID string
	Component  *ical.Component
}

// NewReminder creates a reminder in calendarID with a fresh UID. A zero due
// time leaves DUE unset.
func NewReminder(calendarID, summary string, due time.Time) *Reminder {
	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, uuid.New().String())
	comp.Props.SetText(ical.PropSummary, summary)
	if !due.IsZero() {
		comp.Props.SetDateTime(ical.PropDue, due)
	}
	return &Reminder{CalendarID: calendarID, Component: comp}
}

func (r *Reminder) UID() string { return propText(r.Component, ical.PropUID) }

func (r *Reminder) Summary() string { return propText(r.Component, ical.PropSummary) }

// Due returns the due date and whether one is set.
func (r *Reminder) Due() (time.Time, bool) {
	due, err := r.Component.Props.DateTime(ical.PropDue, time.UTC)
	if err != nil || due.IsZero() {
		return time.Time{}, false
	}
	return due, true
}

// Completed reports whether the reminder's STATUS is COMPLETED or it carries a COMPLETED timestamp.
func (r *Reminder) Completed() bool {
	if propText(r.Component, ical.PropStatus) == "COMPLETED" {
		return true
	}
	return r.Component.Props.Get(ical.PropCompleted) != nil
}

// CompletionFilter restricts reminder queries by completion state.
type CompletionFilter int

const (
	CompletionAny CompletionFilter = iota
	CompletionIncomplete
	CompletionCompleted
)

// Match reports whether a reminder with the given state passes the filter.
func (f CompletionFilter) Match(completed bool) bool {
	switch f {
	case CompletionIncomplete:
		return !completed
	case CompletionCompleted:
		return completed
	default:
		return true
	}
}

// Predicate is a store query. It is built by the store and handed back to it
// unchanged.
type Predicate struct {
	Kind        EntityKind
	Start       *time.Time
	End         *time.Time
	CalendarIDs []string // nil means every calendar of Kind
	Completion  CompletionFilter
}

// InCalendar reports whether calendarID is selected by the predicate.
func (p Predicate) InCalendar(calendarID string) bool {
	if p.CalendarIDs == nil {
		return true
	}
	for _, id := range p.CalendarIDs {
		if id == calendarID {
			return true
		}
	}
	return false
}

// CalendarIDs collects the IDs of calendars, preserving nil.
func CalendarIDs(calendars []Calendar) []string {
	if calendars == nil {
		return nil
	}
	ids := make([]string, 0, len(calendars))
	for _, c := range calendars {
		ids = append(ids, c.ID)
	}
	return ids
}

// ChangeType describes what a Notification reports.
type ChangeType int

const (
	ChangeSaved ChangeType = iota
	ChangeRemoved
	ChangeAuthorization
)

func (c ChangeType) String() string {
	switch c {
	case ChangeSaved:
		return "saved"
	case ChangeRemoved:
		return "removed"
	case ChangeAuthorization:
		return "authorization"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(c))
	}
}

// Notification is a store change event. The gateway forwards it verbatim.
type Notification struct {
	ID         uuid.UUID
	Kind       EntityKind
	Change     ChangeType
	CalendarID string
	UID        string
	At         time.Time
}

// RecurrenceID reads the RECURRENCE-ID of comp.
func RecurrenceID(comp *ical.Component) (time.Time, bool) {
	if comp == nil || comp.Props.Get(ical.PropRecurrenceID) == nil {
		return time.Time{}, false
	}
	t, err := comp.Props.DateTime(ical.PropRecurrenceID, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func propText(comp *ical.Component, name string) string {
	if comp == nil {
		return ""
	}
	v, err := comp.Props.Text(name)
	if err != nil {
		return ""
	}
	return v
}
