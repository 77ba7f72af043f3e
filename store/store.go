package store

import (
	"errors"
	"time"
)

// Store connects a host calendar/reminder backend with the gateway. Implementations
// own all entities and must be safe for concurrent use. Please use the error types provided.
type Store interface {
	// AuthorizationStatus reports the host's current permission state for kind.
	AuthorizationStatus(kind EntityKind) AuthorizationStatus
	// RequestAccess asks the host for access to kind. It may prompt the user and
	// calls done exactly once, possibly on another goroutine.
	RequestAccess(kind EntityKind, done func(granted bool, err error))
	// Calendars lists the calendars holding entities of kind.
	Calendars(kind EntityKind) []Calendar
	// EventPredicate builds a query matching events overlapping [from, until) in calendars.
	// A nil calendars slice means every event calendar.
	EventPredicate(from, until time.Time, calendars []Calendar) Predicate
	// ReminderPredicate builds a query matching reminders due in [from, until).
	// Nil bounds are open.
	ReminderPredicate(from, until *time.Time, calendars []Calendar) Predicate
	// Events runs an event query synchronously.
	Events(p Predicate) ([]*Event, error)
	// FetchReminders runs a reminder query and calls done exactly once, usually
	// from another goroutine. A nil slice means nothing matched.
	FetchReminders(p Predicate, done func([]*Reminder, error))
	// SaveEvent creates or updates an event. span selects which occurrences of a
	// recurring series are affected. If commit is false the write is staged
	// until Commit.
	SaveEvent(ev *Event, span Span, commit bool) error
	// RemoveEvent deletes an event or some of its occurrences.
	RemoveEvent(ev *Event, span Span, commit bool) error
	// SaveReminder creates or updates a reminder.
	SaveReminder(r *Reminder, commit bool) error
	// RemoveReminder deletes a reminder.
	RemoveReminder(r *Reminder, commit bool) error
	// Commit applies every staged write.
	Commit() error
	// Subscribe registers fn for change notifications. The returned cancel
	// func stops delivery and may be called more than once.
	Subscribe(fn func(Notification)) (cancel func())
}

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("entity not found")
	// ErrCalendarNotFound is returned when an entity references an unknown calendar
	ErrCalendarNotFound = errors.New("calendar not found")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrStorageUnavailable is returned when the storage backend is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)
