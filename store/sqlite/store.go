// Package sqlite implements store.Store on an SQLite database. Entities are
// kept as iCalendar text next to the columns needed to query them.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/calgate/internal/ics"
	"github.com/cyp0633/calgate/recurrence"
	"github.com/cyp0633/calgate/store"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const timeFormat = "2006-01-02T15:04:05Z"

// Store implements store.Store using SQLite.
type Store struct {
	store.Broadcaster

	db *sql.DB

	mu     sync.Mutex
	staged []write

	prompter store.Prompter
	engine   *recurrence.Engine
	logger   *slog.Logger
}

// write is a mutation run inside a transaction; it returns the notification to publish
type write func(tx *sql.Tx) (store.Notification, error)

// Option configures a Store
type Option func(*Store)

// WithPrompter sets the permission prompt used by RequestAccess.
func WithPrompter(p store.Prompter) Option {
	return func(s *Store) { s.prompter = p }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithEngine replaces the recurrence engine used for event queries.
func WithEngine(e *recurrence.Engine) Option {
	return func(s *Store) { s.engine = e }
}

// Open opens the database at dsn and applies the schema.
// PRE: dsn is a modernc.org/sqlite data source name, e.g. "file:cal.db" or ":memory:"
// POST: store is ready for use
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := initDB(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:       db,
		prompter: store.AutoGrant,
		engine:   recurrence.NewEngine(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Authorization

// AuthorizationStatus reads the recorded status. A database failure reports
// StatusRestricted so nothing is accessed.
func (s *Store) AuthorizationStatus(kind store.EntityKind) store.AuthorizationStatus {
	var raw string
	err := s.db.QueryRow(`SELECT status FROM access_grant WHERE kind = ?`, int(kind)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.StatusNotDetermined
	}
	if err != nil {
		s.logger.Error("failed to read authorization", "kind", kind, "error", err)
		return store.StatusRestricted
	}
	status, err := store.ParseAuthorizationStatus(raw)
	if err != nil {
		s.logger.Error("corrupt authorization row", "kind", kind, "error", err)
		return store.StatusRestricted
	}
	return status
}

// SetAuthorizationStatus records status for kind.
func (s *Store) SetAuthorizationStatus(kind store.EntityKind, status store.AuthorizationStatus) error {
	_, err := s.db.Exec(
		`INSERT INTO access_grant (kind, status) VALUES (?, ?)
		 ON CONFLICT(kind) DO UPDATE SET status=excluded.status`,
		int(kind), status.String())
	if err != nil {
		return fmt.Errorf("failed to save authorization: %w", err)
	}
	s.Publish(store.Notification{Kind: kind, Change: store.ChangeAuthorization})
	return nil
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
		if err := s.SetAuthorizationStatus(kind, status); err != nil {
			s.logger.Error("failed to record access answer", "kind", kind, "error", err)
			done(granted, err)
			return
		}
		s.logger.Info("access prompt answered", "kind", kind, "status", status)
		done(granted, nil)
	}()
}

// Calendar operations

// AddCalendar creates or updates a calendar. A missing ID is generated.
func (s *Store) AddCalendar(cal store.Calendar) (store.Calendar, error) {
	if err := store.ValidateCalendar(cal); err != nil {
		return store.Calendar{}, err
	}
	if cal.ID == "" {
		cal.ID = uuid.New().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO calendar (id, title, color, kind) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title=excluded.title, color=excluded.color, kind=excluded.kind`,
		cal.ID, cal.Title, cal.Color, int(cal.Kind))
	if err != nil {
		return store.Calendar{}, fmt.Errorf("failed to save calendar: %w", err)
	}
	return cal, nil
}

// Calendars lists calendars of kind. Failures are logged and yield nil.
func (s *Store) Calendars(kind store.EntityKind) []store.Calendar {
	rows, err := s.db.Query(`SELECT id, title, color, kind FROM calendar WHERE kind = ? ORDER BY id`, int(kind))
	if err != nil {
		s.logger.Error("failed to list calendars", "kind", kind, "error", err)
		return nil
	}
	defer rows.Close()

	var calendars []store.Calendar
	for rows.Next() {
		var cal store.Calendar
		var k int
		if err := rows.Scan(&cal.ID, &cal.Title, &cal.Color, &k); err != nil {
			s.logger.Error("failed to scan calendar", "error", err)
			return nil
		}
		cal.Kind = store.EntityKind(k)
		calendars = append(calendars, cal)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("failed to list calendars", "kind", kind, "error", err)
		return nil
	}
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

// entityRow is a stored component. Overrides carry the RECURRENCE-ID they replace.
type entityRow struct {
	uid          string
	override     bool
	recurrenceID int64
	calendarID   string
	comp         *ical.Component
}

// Events returns series masters with an occurrence in range and overrides
// falling in range, ordered by start.
func (s *Store) Events(p store.Predicate) ([]*store.Event, error) {
	if p.Kind != store.KindEvent || p.Start == nil || p.End == nil {
		return nil, fmt.Errorf("%w: event predicate needs a closed time range", store.ErrInvalidInput)
	}
	if p.CalendarIDs != nil && len(p.CalendarIDs) == 0 {
		return []*store.Event{}, nil
	}

	// Recurring masters and overrides are matched in Go; single events by column.
	// Overlap is half-open; an instant counts when it falls in [from, until).
	from, until := p.Start.UTC().Format(timeFormat), p.End.UTC().Format(timeFormat)
	query := `SELECT uid, override, recurrence_id, calendar_id, ics FROM entity
		WHERE kind = ? AND (recurring = 1 OR override = 1 OR
			(start_at < ? AND (end_at > ? OR (end_at = start_at AND start_at >= ?))))`
	args := []any{int(store.KindEvent), until, from, from}
	query, args = inCalendars(query, args, p.CalendarIDs)

	rows, err := s.queryEntities(query, args...)
	if err != nil {
		return nil, err
	}

	masters := make(map[string]entityRow)
	overrides := make(map[string][]entityRow)
	for _, r := range rows {
		if !r.override {
			masters[r.uid] = r
		} else {
			overrides[r.uid] = append(overrides[r.uid], r)
		}
	}

	var events []*store.Event
	for uid, m := range masters {
		start, end, ok := recurrence.ExtractTimeInfo(m.comp)
		if !ok {
			continue
		}
		info := recurrence.ExtractRecurrenceInfo(m.comp)
		for _, o := range overrides[uid] {
			info.EXDATE = append(info.EXDATE, time.Unix(o.recurrenceID, 0).UTC())
		}
		match, err := s.engine.HasOccurrenceInRange(start, end, info, *p.Start, *p.End)
		if err != nil {
			return nil, err
		}
		if match {
			events = append(events, &store.Event{CalendarID: m.calendarID, Component: m.comp})
		}
	}
	for _, list := range overrides {
		for _, o := range list {
			start, end, _ := recurrence.ExtractTimeInfo(o.comp)
			match, err := s.engine.HasOccurrenceInRange(start, end, recurrence.RecurrenceInfo{}, *p.Start, *p.End)
			if err != nil {
				return nil, err
			}
			if match {
				events = append(events, &store.Event{CalendarID: o.calendarID, Component: o.comp})
			}
		}
	}

	store.SortEvents(events)
	s.logger.Debug("event query", "calendars", p.CalendarIDs, "matched", len(events))
	return events, nil
}

// FetchReminders queries on its own goroutine. Nothing matching is reported as nil.
func (s *Store) FetchReminders(p store.Predicate, done func([]*store.Reminder, error)) {
	go func() {
		done(s.reminders(p))
	}()
}

func (s *Store) reminders(p store.Predicate) ([]*store.Reminder, error) {
	if p.CalendarIDs != nil && len(p.CalendarIDs) == 0 {
		return nil, nil
	}

	query := `SELECT uid, override, recurrence_id, calendar_id, ics FROM entity WHERE kind = ?`
	args := []any{int(store.KindReminder)}
	switch p.Completion {
	case store.CompletionCompleted:
		query += ` AND completed = 1`
	case store.CompletionIncomplete:
		query += ` AND completed = 0`
	}
	if p.Start != nil || p.End != nil {
		query += ` AND start_at != ''`
	}
	if p.Start != nil {
		query += ` AND start_at >= ?`
		args = append(args, p.Start.UTC().Format(timeFormat))
	}
	if p.End != nil {
		query += ` AND start_at < ?`
		args = append(args, p.End.UTC().Format(timeFormat))
	}
	query, args = inCalendars(query, args, p.CalendarIDs)
	query += ` ORDER BY start_at, uid`

	rows, err := s.queryEntities(query, args...)
	if err != nil {
		return nil, err
	}
	var out []*store.Reminder
	for _, r := range rows {
		out = append(out, &store.Reminder{CalendarID: r.calendarID, Component: r.comp})
	}
	s.logger.Debug("reminder query", "calendars", p.CalendarIDs, "matched", len(out))
	return out, nil
}

func (s *Store) queryEntities(query string, args ...any) ([]entityRow, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var out []entityRow
	for rows.Next() {
		var r entityRow
		var text string
		if err := rows.Scan(&r.uid, &r.override, &r.recurrenceID, &r.calendarID, &text); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		if r.comp, err = ics.DecodeComponent(text); err != nil {
			return nil, fmt.Errorf("entity %q: %w", r.uid, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	return out, nil
}

func inCalendars(query string, args []any, ids []string) (string, []any) {
	if ids == nil {
		return query, args
	}
	query += ` AND calendar_id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
	for _, id := range ids {
		args = append(args, id)
	}
	return query, args
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
	return s.apply(commit, func(tx *sql.Tx) (store.Notification, error) {
		return saveEvent(tx, calendarID, comp, span)
	})
}

func (s *Store) RemoveEvent(ev *store.Event, span store.Span, commit bool) error {
	if ev == nil || ev.Component == nil {
		return fmt.Errorf("%w: nil event", store.ErrInvalidInput)
	}
	comp := recurrence.Clone(ev.Component)
	return s.apply(commit, func(tx *sql.Tx) (store.Notification, error) {
		return removeEvent(tx, comp, span)
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
	comp := recurrence.Clone(r.Component)
	calendarID := r.CalendarID
	return s.apply(commit, func(tx *sql.Tx) (store.Notification, error) {
		if err := checkCalendar(tx, calendarID, store.KindReminder); err != nil {
			return store.Notification{}, err
		}
		uid, _ := comp.Props.Text(ical.PropUID)
		if err := upsert(tx, entityRow{uid: uid, calendarID: calendarID, comp: comp}, store.KindReminder); err != nil {
			return store.Notification{}, err
		}
		return store.Notification{Kind: store.KindReminder, Change: store.ChangeSaved, CalendarID: calendarID, UID: uid}, nil
	})
}

func (s *Store) RemoveReminder(r *store.Reminder, commit bool) error {
	if r == nil || r.Component == nil {
		return fmt.Errorf("%w: nil reminder", store.ErrInvalidInput)
	}
	uid := r.UID()
	return s.apply(commit, func(tx *sql.Tx) (store.Notification, error) {
		var calendarID string
		err := tx.QueryRow(`SELECT calendar_id FROM entity WHERE uid = ? AND kind = ?`, uid, int(store.KindReminder)).Scan(&calendarID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.Notification{}, fmt.Errorf("reminder %q: %w", uid, store.ErrNotFound)
		}
		if err != nil {
			return store.Notification{}, fmt.Errorf("failed to load reminder: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM entity WHERE uid = ? AND kind = ?`, uid, int(store.KindReminder)); err != nil {
			return store.Notification{}, fmt.Errorf("failed to delete reminder: %w", err)
		}
		return store.Notification{Kind: store.KindReminder, Change: store.ChangeRemoved, CalendarID: calendarID, UID: uid}, nil
	})
}

// Commit applies staged writes in one transaction; a failing write rolls back all of them.
func (s *Store) Commit() error {
	s.mu.Lock()
	staged := s.staged
	s.staged = nil
	s.mu.Unlock()

	if len(staged) == 0 {
		return nil
	}
	return s.run(staged...)
}

// Pending returns the number of staged writes.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

func (s *Store) apply(commit bool, w write) error {
	if !commit {
		s.mu.Lock()
		s.staged = append(s.staged, w)
		s.mu.Unlock()
		return nil
	}
	return s.run(w)
}

func (s *Store) run(writes ...write) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
	}

	notes := make([]store.Notification, 0, len(writes))
	for _, w := range writes {
		n, err := w(tx)
		if err != nil {
			tx.Rollback()
			s.logger.Debug("write rejected", "error", err)
			return err
		}
		notes = append(notes, n)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	for _, n := range notes {
		s.logger.Debug("write applied", "kind", n.Kind, "change", n.Change, "uid", n.UID)
		s.Publish(n)
	}
	return nil
}

func saveEvent(tx *sql.Tx, calendarID string, comp *ical.Component, span store.Span) (store.Notification, error) {
	if err := checkCalendar(tx, calendarID, store.KindEvent); err != nil {
		return store.Notification{}, err
	}
	uid, _ := comp.Props.Text(ical.PropUID)
	note := store.Notification{Kind: store.KindEvent, Change: store.ChangeSaved, CalendarID: calendarID, UID: uid}

	recID, isOccurrence := store.RecurrenceID(comp)
	if !isOccurrence {
		return note, upsert(tx, entityRow{uid: uid, calendarID: calendarID, comp: comp}, store.KindEvent)
	}

	master, err := loadMaster(tx, uid)
	if err != nil {
		return store.Notification{}, err
	}
	if span == store.SpanThisEvent {
		override := entityRow{uid: uid, override: true, recurrenceID: recID.Unix(), calendarID: calendarID, comp: comp}
		return note, upsert(tx, override, store.KindEvent)
	}

	newUID := uuid.New().String()
	next, err := recurrence.SplitSeries(master.comp, comp, recID, newUID)
	if err != nil {
		return store.Notification{}, err
	}
	if err := truncate(tx, master, recID); err != nil {
		return store.Notification{}, err
	}
	note.UID = newUID
	return note, upsert(tx, entityRow{uid: newUID, calendarID: calendarID, comp: next}, store.KindEvent)
}

func removeEvent(tx *sql.Tx, comp *ical.Component, span store.Span) (store.Notification, error) {
	uid, _ := comp.Props.Text(ical.PropUID)
	master, err := loadMaster(tx, uid)
	if err != nil {
		return store.Notification{}, err
	}
	note := store.Notification{Kind: store.KindEvent, Change: store.ChangeRemoved, CalendarID: master.calendarID, UID: uid}

	recID, isOccurrence := store.RecurrenceID(comp)
	if !isOccurrence {
		if _, err := tx.Exec(`DELETE FROM entity WHERE uid = ? AND kind = ?`, uid, int(store.KindEvent)); err != nil {
			return store.Notification{}, fmt.Errorf("failed to delete event: %w", err)
		}
		return note, nil
	}

	if span == store.SpanThisEvent {
		if _, err := tx.Exec(`DELETE FROM entity WHERE uid = ? AND kind = ? AND override = 1 AND recurrence_id = ?`,
			uid, int(store.KindEvent), recID.Unix()); err != nil {
			return store.Notification{}, fmt.Errorf("failed to delete occurrence: %w", err)
		}
		recurrence.ExcludeOccurrence(master.comp, recID)
		return note, upsert(tx, master, store.KindEvent)
	}
	return note, truncate(tx, master, recID)
}

// truncate ends the series right before occurrence, dropping it when nothing is left
func truncate(tx *sql.Tx, master entityRow, occurrence time.Time) error {
	remaining, err := recurrence.TruncateBefore(master.comp, occurrence)
	if err != nil {
		return err
	}
	if !remaining {
		if _, err := tx.Exec(`DELETE FROM entity WHERE uid = ? AND kind = ?`, master.uid, int(store.KindEvent)); err != nil {
			return fmt.Errorf("failed to delete series: %w", err)
		}
		return nil
	}
	if _, err := tx.Exec(`DELETE FROM entity WHERE uid = ? AND kind = ? AND override = 1 AND recurrence_id >= ?`,
		master.uid, int(store.KindEvent), occurrence.Unix()); err != nil {
		return fmt.Errorf("failed to delete overrides: %w", err)
	}
	return upsert(tx, master, store.KindEvent)
}

func loadMaster(tx *sql.Tx, uid string) (entityRow, error) {
	r := entityRow{uid: uid}
	var text string
	err := tx.QueryRow(`SELECT calendar_id, ics FROM entity WHERE uid = ? AND kind = ? AND override = 0`,
		uid, int(store.KindEvent)).Scan(&r.calendarID, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("event %q: %w", uid, store.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("failed to load event: %w", err)
	}
	if r.comp, err = ics.DecodeComponent(text); err != nil {
		return r, fmt.Errorf("event %q: %w", uid, err)
	}
	return r, nil
}

// upsert writes row as an entity of kind, replacing the same UID, kind and occurrence.
func upsert(tx *sql.Tx, row entityRow, kind store.EntityKind) error {
	comp := row.comp
	start, end, hasTime := recurrence.ExtractTimeInfo(comp)
	completed := false
	if kind == store.KindReminder {
		// Reminders are ranged by due date alone
		r := &store.Reminder{Component: comp}
		start, hasTime = r.Due()
		end = start
		completed = r.Completed()
	}
	var startAt, endAt string
	if hasTime {
		startAt, endAt = start.UTC().Format(timeFormat), end.UTC().Format(timeFormat)
	}
	recurring := !row.override && recurrence.IsRecurring(comp)

	text, err := ics.EncodeComponent(comp)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO entity (uid, kind, override, recurrence_id, calendar_id, start_at, end_at, recurring, completed, ics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uid, kind, override, recurrence_id) DO UPDATE SET
		   calendar_id=excluded.calendar_id, start_at=excluded.start_at, end_at=excluded.end_at,
		   recurring=excluded.recurring, completed=excluded.completed, ics=excluded.ics`,
		row.uid, int(kind), row.override, row.recurrenceID, row.calendarID, startAt, endAt, recurring, completed, text)
	if err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

func checkCalendar(tx *sql.Tx, calendarID string, kind store.EntityKind) error {
	var k int
	err := tx.QueryRow(`SELECT kind FROM calendar WHERE id = ?`, calendarID).Scan(&k)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && store.EntityKind(k) != kind) {
		return fmt.Errorf("%s calendar %q: %w", kind, calendarID, store.ErrCalendarNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load calendar: %w", err)
	}
	return nil
}
