package gateway

import (
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/calgate/store"
	"github.com/samber/mo"
)

// Gateway gates every store operation on the current authorization status.
type Gateway struct {
	store    store.Store
	observer Observer
	sub      *Subscription
	logger   *slog.Logger
}

// Option configures a Gateway
type Option func(*Gateway)

// WithObserver relays store change notifications to obs.
func WithObserver(obs Observer) Option {
	return func(g *Gateway) { g.observer = obs }
}

// WithLogger sets the logger used for Debug records of each decision.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a Gateway over st.
func New(st store.Store, opts ...Option) (*Gateway, error) {
	if st == nil {
		return nil, ErrNilStore
	}

	g := &Gateway{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if g.observer != nil {
		g.sub = subscribe(g, g.observer)
	}
	return g, nil
}

// Subscription returns the change relay, or nil when no observer was set.
func (g *Gateway) Subscription() *Subscription {
	return g.sub
}

// Close releases the change relay. Safe to call more than once.
func (g *Gateway) Close() {
	g.sub.Close()
}

// AuthorizationStatus reports the store's status for kind.
func (g *Gateway) AuthorizationStatus(kind store.EntityKind) store.AuthorizationStatus {
	return g.store.AuthorizationStatus(kind)
}

// RequestAuthorization asks the store for access when the status is not yet
// determined and passes its answer through. For any other status, including
// Denied, completion gets (true, nil) right away and the store is not asked.
func (g *Gateway) RequestAuthorization(kind store.EntityKind, completion func(granted bool, err error)) {
	if completion == nil {
		completion = func(bool, error) {}
	}

	status := g.store.AuthorizationStatus(kind)
	if status != store.StatusNotDetermined {
		g.logger.Debug("authorization already determined", "kind", kind, "status", status)
		completion(true, nil)
		return
	}

	g.logger.Debug("requesting authorization", "kind", kind)
	g.store.RequestAccess(kind, completion)
}

// Calendars lists the store's calendars of kind. It is not gated.
func (g *Gateway) Calendars(kind store.EntityKind) []store.Calendar {
	return g.store.Calendars(kind)
}

// SearchEvents finds events in [from, until) within calendars; nil calendars means all.
func (g *Gateway) SearchEvents(from, until time.Time, calendars []store.Calendar, completion func(mo.Result[[]*store.Event])) {
	dispatch(g, "search_events", store.KindEvent, func(done func([]*store.Event, error)) {
		p := g.store.EventPredicate(from, until, calendars)
		events, err := g.store.Events(p)
		if err == nil && events == nil {
			events = []*store.Event{}
		}
		done(events, err)
	}, completion)
}

// SaveEvent saves ev and commits. With recurrently set the change applies to
// this and all future occurrences.
func (g *Gateway) SaveEvent(ev *store.Event, recurrently bool, completion func(mo.Result[struct{}])) {
	dispatch(g, "save_event", store.KindEvent, func(done func(struct{}, error)) {
		done(struct{}{}, g.store.SaveEvent(ev, spanFor(recurrently), true))
	}, completion)
}

// DeleteEvent removes ev and commits. recurrently works as in SaveEvent.
func (g *Gateway) DeleteEvent(ev *store.Event, recurrently bool, completion func(mo.Result[struct{}])) {
	dispatch(g, "delete_event", store.KindEvent, func(done func(struct{}, error)) {
		done(struct{}{}, g.store.RemoveEvent(ev, spanFor(recurrently), true))
	}, completion)
}

// SearchReminders finds reminders due in [from, until). A nil bound is open.
func (g *Gateway) SearchReminders(from, until *time.Time, calendars []store.Calendar, completion func(mo.Result[[]*store.Reminder])) {
	dispatch(g, "search_reminders", store.KindReminder, func(done func([]*store.Reminder, error)) {
		p := g.store.ReminderPredicate(from, until, calendars)
		g.store.FetchReminders(p, func(reminders []*store.Reminder, err error) {
			if err == nil && reminders == nil {
				reminders = []*store.Reminder{}
			}
			done(reminders, err)
		})
	}, completion)
}

// SaveReminder saves r and commits.
func (g *Gateway) SaveReminder(r *store.Reminder, completion func(mo.Result[struct{}])) {
	dispatch(g, "save_reminder", store.KindReminder, func(done func(struct{}, error)) {
		done(struct{}{}, g.store.SaveReminder(r, true))
	}, completion)
}

// DeleteReminder removes r and commits.
func (g *Gateway) DeleteReminder(r *store.Reminder, completion func(mo.Result[struct{}])) {
	dispatch(g, "delete_reminder", store.KindReminder, func(done func(struct{}, error)) {
		done(struct{}{}, g.store.RemoveReminder(r, true))
	}, completion)
}

func spanFor(recurrently bool) store.Span {
	if recurrently {
		return store.SpanFutureEvents
	}
	return store.SpanThisEvent
}
