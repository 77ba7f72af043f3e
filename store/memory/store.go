// memory based implementation of store.Store for tests and demos
package memory

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/calgate/recurrence"
	"github.com/cyp0633/calgate/store"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// series is a recurring (or single) event with its per-occurrence overrides
type series struct {
	calendarID string
	master     *ical.Component
	overrides  map[int64]*ical.Component // key: RECURRENCE-ID unix seconds
}

// Store implements store.Store using in-memory maps
type Store struct {
	store.Broadcaster

	mu        sync.RWMutex
	auth      map[store.EntityKind]store.AuthorizationStatus
	calendars map[string]store.Calendar
	events    map[string]*series         // key: UID
	reminders map[string]*store.Reminder // key: UID
	staged    []write

	prompter store.Prompter
	engine   *recurrence.Engine
	logger   *slog.Logger
}

// write is a mutation applied with mu held; it returns the notification to publish
type write func() (store.Notification, error)

// Option configures a Store
type Option func(*Store)

// WithPrompter sets the permission prompt used by RequestAccess.
func WithPrompter(p store.Prompter) Option {
	return func(s *Store) { s.prompter = p }
}

// WithAuthorization sets the initial status for kind.
func WithAuthorization(kind store.EntityKind, status store.AuthorizationStatus) Option {
	return func(s *Store) { s.auth[kind] = status }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithEngine replaces the recurrence engine used for event queries.
func WithEngine(e *recurrence.Engine) Option {
	return func(s *Store) { s.engine = e }
}

// New creates a new in-memory store. Both kinds start NotDetermined.
func New(opts ...Option) *Store {
	s := &Store{
		auth:      make(map[store.EntityKind]store.AuthorizationStatus),
		calendars: make(map[string]store.Calendar),
		events:    make(map[string]*series),
		reminders: make(map[string]*store.Reminder),
		prompter:  store.AutoGrant,
		engine:    recurrence.NewEngine(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorization

func (s *Store) AuthorizationStatus(kind store.EntityKind) store.AuthorizationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth[kind]
}

// SetAuthorizationStatus changes the status for kind, as a user editing
// system settings would.
func (s *Store) SetAuthorizationStatus(kind store.EntityKind, status store.AuthorizationStatus) {
	s.mu.Lock()
	s.auth[kind] = status
	s.mu.Unlock()
	s.Publish(store.Notification{Kind: kind, Change: store.ChangeAuthorization})
}

// RequestAccess runs the prompter on its own goroutine and records the answer.
func (s *Store) RequestAccess(kind store.EntityKind, done func(granted bool, err error)) {
	go func() {
		granted, err := s.prompter(kind)
		if err != nil {
			s.logger.Error("access prompt failed", "kind", kind, "error", err)
			done(false, err)
			return
		}

		status := store.StatusDenied
		if granted {
			status = store.StatusAuthorized
		}
		s.logger.Info("access prompt answered", "kind", kind, "status", status)
		s.SetAuthorizationStatus(kind, status)
		done(granted, nil)
	}()
}

// Calendar operations

// AddCalendar creates or replaces a calendar. A missing ID is generated.
func (s *Store) AddCalendar(cal store.Calendar) (store.Calendar, error) {
	if err := store.ValidateCalendar(cal); err != nil {
		return store.Calendar{}, err
	}
	if cal.ID == "" {
		cal.ID = uuid.New().String()
	}
	s.mu.Lock()
	s.calendars[cal.ID] = cal
	s.mu.Unlock()
	return cal, nil
}

func (s *Store) Calendars(kind store.EntityKind) []store.Calendar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var calendars []store.Calendar
	for _, cal := range s.calendars {
		if cal.Kind == kind {
			calendars = append(calendars, cal)
		}
	}
	sort.Slice(calendars, func(i, j int) bool { return calendars[i].ID < calendars[j].ID })
	return calendars
}

// Queries

func (s *Store) EventPredicate(from, until time.Time, calendars []store.Calendar) store.Predicate {
	return store.Predicate{
		Kind:        store.KindEvent,
		Start:       &from,
		End:         &until,
		CalendarIDs: store.CalendarIDs(calendars),
	}
}

func (s *Store) ReminderPredicate(from, until *time.Time, calendars []store.Calendar) store.Predicate {
	return store.Predicate{
		Kind:        store.KindReminder,
		Start:       from,
		End:         until,
		CalendarIDs: store.CalendarIDs(calendars),
	}
}

// Events returns series masters with an occurrence in range and overrides
// falling in range, ordered by start.
func (s *Store) Events(p store.Predicate) ([]*store.Event, error) {
	if p.Kind != store.KindEvent || p.Start == nil || p.End == nil {
		return nil, fmt.Errorf("%w: event predicate needs a closed time range", store.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*store.Event
	for _, ser := range s.events {
		if !p.InCalendar(ser.calendarID) {
			continue
		}
		ok, err := s.matchSeries(ser, *p.Start, *p.End)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, &store.Event{CalendarID: ser.calendarID, Component: recurrence.Clone(ser.master)})
		}
		for _, override := range ser.overrides {
			start, end, _ := recurrence.ExtractTimeInfo(override)
			ok, err := s.engine.HasOccurrenceInRange(start, end, recurrence.RecurrenceInfo{}, *p.Start, *p.End)
			if err != nil {
				return nil, err
			}
			if ok {
				events = append(events, &store.Event{CalendarID: ser.calendarID, Component: recurrence.Clone(override)})
			}
		}
	}

	store.SortEvents(events)
	s.logger.Debug("event query", "calendars", p.CalendarIDs, "matched", len(events))
	return events, nil
}

func (s *Store) matchSeries(ser *series, from, until time.Time) (bool, error) {
	start, end, ok := recurrence.ExtractTimeInfo(ser.master)
	if !ok {
		return false, nil
	}
	info := recurrence.ExtractRecurrenceInfo(ser.master)
	// Overridden occurrences are reported through their override
	for key := range ser.overrides {
		info.EXDATE = append(info.EXDATE, time.Unix(key, 0).UTC())
	}
	return s.engine.HasOccurrenceInRange(start, end, info, from, until)
}

// FetchReminders filters reminders on its own goroutine. Nothing matching is reported as nil.
func (s *Store) FetchReminders(p store.Predicate, done func([]*store.Reminder, error)) {
	go func() {
		s.mu.RLock()
		var out []*store.Reminder
		for _, r := range s.reminders {
			if p.InCalendar(r.CalendarID) && matchReminder(r, p) {
				out = append(out, &store.Reminder{CalendarID: r.CalendarID, Component: recurrence.Clone(r.Component)})
			}
		}
		s.mu.RUnlock()

		store.SortReminders(out)
		s.logger.Debug("reminder query", "calendars", p.CalendarIDs, "matched", len(out))
		done(out, nil)
	}()
}

// Writes

func (s *Store) SaveEvent(ev *store.Event, span store.Span, commit bool) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", store.ErrInvalidInput)
	}
	if err := store.ValidateEntity(ev.CalendarID, ev.Component, store.KindEvent); err != nil {
		return err
	}
	store.EnsureUID(ev.Component)
	comp := recurrence.Clone(ev.Component)
	calendarID := ev.CalendarID
	return s.apply(commit, func() (store.Notification, error) {
		return s.saveEvent(calendarID, comp, span)
	})
}

func (s *Store) RemoveEvent(ev *store.Event, span store.Span, commit bool) error {
	if ev == nil || ev.Component == nil {
		return fmt.Errorf("%w: nil event", store.ErrInvalidInput)
	}
	comp := recurrence.Clone(ev.Component)
	return s.apply(commit, func() (store.Notification, error) {
		return s.removeEvent(comp, span)
	})
}

func (s *Store) SaveReminder(r *store.Reminder, commit bool) error {
	if r == nil {
		return fmt.Errorf("%w: nil reminder", store.ErrInvalidInput)
	}
	if err := store.ValidateEntity(r.CalendarID, r.Component, store.KindReminder); err != nil {
		return err
	}
	store.EnsureUID(r.Component)
	saved := &store.Reminder{CalendarID: r.CalendarID, Component: recurrence.Clone(r.Component)}
	return s.apply(commit, func() (store.Notification, error) {
		if err := s.checkCalendar(saved.CalendarID, store.KindReminder); err != nil {
			return store.Notification{}, err
		}
		s.reminders[saved.UID()] = saved
		return store.Notification{Kind: store.KindReminder, Change: store.ChangeSaved, CalendarID: saved.CalendarID, UID: saved.UID()}, nil
	})
}

func (s *Store) RemoveReminder(r *store.Reminder, commit bool) error {
	if r == nil || r.Component == nil {
		return fmt.Errorf("%w: nil reminder", store.ErrInvalidInput)
	}
	uid := r.UID()
	return s.apply(commit, func() (store.Notification, error) {
		existing, ok := s.reminders[uid]
		if !ok {
			return store.Notification{}, fmt.Errorf("reminder %q: %w", uid, store.ErrNotFound)
		}
		delete(s.reminders, uid)
		return store.Notification{Kind: store.KindReminder, Change: store.ChangeRemoved, CalendarID: existing.CalendarID, UID: uid}, nil
	})
}

// Commit applies staged writes in order. It stops at the first failing write;
// writes before it stay applied and the rest are discarded.
func (s *Store) Commit() error {
	s.mu.Lock()
	staged := s.staged
	s.staged = nil
	var notes []store.Notification
	var err error
	for _, w := range staged {
		var n store.Notification
		if n, err = w(); err != nil {
			break
		}
		notes = append(notes, n)
	}
	s.mu.Unlock()

	for _, n := range notes {
		s.Publish(n)
	}
	return err
}

// Pending returns the number of staged writes.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.staged)
}

func (s *Store) apply(commit bool, w write) error {
	if !commit {
		s.mu.Lock()
		s.staged = append(s.staged, w)
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	n, err := w()
	s.mu.Unlock()
	if err != nil {
		s.logger.Debug("write rejected", "error", err)
		return err
	}
	s.logger.Debug("write applied", "kind", n.Kind, "change", n.Change, "uid", n.UID)
	s.Publish(n)
	return nil
}

func (s *Store) saveEvent(calendarID string, comp *ical.Component, span store.Span) (store.Notification, error) {
	if err := s.checkCalendar(calendarID, store.KindEvent); err != nil {
		return store.Notification{}, err
	}
	uid, _ := comp.Props.Text(ical.PropUID)
	note := store.Notification{Kind: store.KindEvent, Change: store.ChangeSaved, CalendarID: calendarID, UID: uid}

	recID, isOccurrence := store.RecurrenceID(comp)
	if !isOccurrence {
		if ser, ok := s.events[uid]; ok {
			ser.master = comp
			ser.calendarID = calendarID
		} else {
			s.events[uid] = &series{calendarID: calendarID, master: comp, overrides: map[int64]*ical.Component{}}
		}
		return note, nil
	}

	ser, ok := s.events[uid]
	if !ok {
		return store.Notification{}, fmt.Errorf("series %q: %w", uid, store.ErrNotFound)
	}
	if span == store.SpanThisEvent {
		ser.overrides[recID.Unix()] = comp
		return note, nil
	}

	newUID := uuid.New().String()
	next, err := recurrence.SplitSeries(ser.master, comp, recID, newUID)
	if err != nil {
		return store.Notification{}, err
	}
	if err := s.truncate(uid, ser, recID); err != nil {
		return store.Notification{}, err
	}
	s.events[newUID] = &series{calendarID: calendarID, master: next, overrides: map[int64]*ical.Component{}}
	note.UID = newUID
	return note, nil
}

func (s *Store) removeEvent(comp *ical.Component, span store.Span) (store.Notification, error) {
	uid, _ := comp.Props.Text(ical.PropUID)
	ser, ok := s.events[uid]
	if !ok {
		return store.Notification{}, fmt.Errorf("event %q: %w", uid, store.ErrNotFound)
	}
	note := store.Notification{Kind: store.KindEvent, Change: store.ChangeRemoved, CalendarID: ser.calendarID, UID: uid}

	recID, isOccurrence := store.RecurrenceID(comp)
	if !isOccurrence {
		delete(s.events, uid)
		return note, nil
	}

	if span == store.SpanThisEvent {
		delete(ser.overrides, recID.Unix())
		recurrence.ExcludeOccurrence(ser.master, recID)
		return note, nil
	}
	return note, s.truncate(uid, ser, recID)
}

// truncate ends ser right before occurrence, dropping the series when nothing is left
func (s *Store) truncate(uid string, ser *series, occurrence time.Time) error {
	remaining, err := recurrence.TruncateBefore(ser.master, occurrence)
	if err != nil {
		return err
	}
	if !remaining {
		delete(s.events, uid)
		return nil
	}
	for key := range ser.overrides {
		if !time.Unix(key, 0).Before(occurrence) {
			delete(ser.overrides, key)
		}
	}
	return nil
}

// checkCalendar must be called with mu held
func (s *Store) checkCalendar(calendarID string, kind store.EntityKind) error {
	cal, ok := s.calendars[calendarID]
	if !ok || cal.Kind != kind {
		return fmt.Errorf("%s calendar %q: %w", kind, calendarID, store.ErrCalendarNotFound)
	}
	return nil
}

func matchReminder(r *store.Reminder, p store.Predicate) bool {
	if !p.Completion.Match(r.Completed()) {
		return false
	}
	if p.Start == nil && p.End == nil {
		return true
	}
	due, ok := r.Due()
	if !ok {
		return false
	}
	if p.Start != nil && due.Before(*p.Start) {
		return false
	}
	if p.End != nil && !due.Before(*p.End) {
		return false
	}
	return true
}
