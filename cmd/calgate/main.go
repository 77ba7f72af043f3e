// Command calgate loads events and reminders into a store through the
// authorization gateway and prints what falls in the search window as ICS.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cyp0633/calgate/config"
	"github.com/cyp0633/calgate/gateway"
	"github.com/cyp0633/calgate/internal/ics"
	"github.com/cyp0633/calgate/store"
	"github.com/cyp0633/calgate/store/memory"
	"github.com/cyp0633/calgate/store/sqlite"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

const (
	eventCalendarID    = "personal"
	reminderCalendarID = "tasks"
	callTimeout        = 10 * time.Second
)

// backend is a store the binary can also create calendars in
type backend struct {
	store.Store
	addCalendar func(store.Calendar) (store.Calendar, error)
	close       func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level, _ := cfg.Logger.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(cfg, logger, os.Stdout); err != nil {
		logger.Error("calgate failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	calendars := []store.Calendar{
		{ID: eventCalendarID, Title: "Personal", Color: "#0A84FF", Kind: store.KindEvent},
		{ID: reminderCalendarID, Title: "Tasks", Color: "#FF9500", Kind: store.KindReminder},
	}
	for _, cal := range calendars {
		if _, err := b.addCalendar(cal); err != nil {
			return fmt.Errorf("failed to create calendar %q: %w", cal.ID, err)
		}
	}

	gw, err := gateway.New(b, gateway.WithLogger(logger), gateway.WithObserver(
		gateway.ObserverFunc(func(_ *gateway.Gateway, n store.Notification) {
			logger.Info("store changed", "kind", n.Kind, "change", n.Change, "calendar", n.CalendarID, "uid", n.UID)
		})))
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	for _, kind := range []store.EntityKind{store.KindEvent, store.KindReminder} {
		granted, err := gateway.AwaitAuthorization(ctx, gw, kind)
		if err != nil {
			return fmt.Errorf("authorization request for %s failed: %w", kind, err)
		}
		logger.Info("authorization", "kind", kind, "granted", granted, "status", gw.AuthorizationStatus(kind))
	}

	if err := seed(ctx, gw, cfg.Seed.Path, logger); err != nil {
		return err
	}

	from := time.Now()
	until := from.Add(cfg.Search.Window)

	var comps []*ical.Component
	events, err := gateway.Await(ctx, func(done func(mo.Result[[]*store.Event])) {
		gw.SearchEvents(from, until, nil, done)
	}).Get()
	if err := report(logger, "event search", err); err != nil {
		return err
	}
	for _, ev := range events {
		comps = append(comps, ev.Component)
	}

	// Overdue reminders are included, so only the upper bound is set
	reminders, err := gateway.Await(ctx, func(done func(mo.Result[[]*store.Reminder])) {
		gw.SearchReminders(nil, &until, nil, done)
	}).Get()
	if err := report(logger, "reminder search", err); err != nil {
		return err
	}
	for _, r := range reminders {
		comps = append(comps, r.Component)
	}

	logger.Info("search finished", "events", len(events), "reminders", len(reminders), "window", cfg.Search.Window)
	if len(comps) == 0 {
		return nil
	}
	return ics.Encode(out, comps...)
}

func openBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	prompter := store.AutoDeny
	if cfg.Store.AutoGrant {
		prompter = store.AutoGrant
	}

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		st, err := sqlite.Open(cfg.Store.DSN,
			sqlite.WithPrompter(prompter), sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &backend{Store: st, addCalendar: st.AddCalendar, close: st.Close}, nil
	default:
		st := memory.New(memory.WithPrompter(prompter), memory.WithLogger(logger))
		return &backend{
			Store:       st,
			addCalendar: st.AddCalendar,
			close:       func() error { return nil },
		}, nil
	}
}

// seed imports the ICS file at path, or a small sample when path is empty.
func seed(ctx context.Context, gw *gateway.Gateway, path string, logger *slog.Logger) error {
	var comps []*ical.Component
	if path == "" {
		comps = sampleData(time.Now())
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()
		if comps, err = ics.Decode(f); err != nil {
			return fmt.Errorf("failed to read seed file %s: %w", path, err)
		}
	}

	for _, comp := range comps {
		var res mo.Result[struct{}]
		switch comp.Name {
		case ical.CompEvent:
			ev := &store.Event{CalendarID: eventCalendarID, Component: comp}
			res = gateway.Await(ctx, func(done func(mo.Result[struct{}])) {
				gw.SaveEvent(ev, false, done)
			})
		case ical.CompToDo:
			r := &store.Reminder{CalendarID: reminderCalendarID, Component: comp}
			res = gateway.Await(ctx, func(done func(mo.Result[struct{}])) {
				gw.SaveReminder(r, done)
			})
		default:
			continue
		}
		if err := report(logger, "import "+comp.Name, res.Error()); err != nil {
			return err
		}
	}
	logger.Info("seed imported", "components", len(comps), "path", path)
	return nil
}

// report logs authorization failures and passes anything else back.
func report(logger *slog.Logger, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrAuthorizationPending), errors.Is(err, gateway.ErrNotAuthorized):
		logger.Warn(what+" skipped", "reason", err)
		return nil
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func sampleData(now time.Time) []*ical.Component {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	standup := store.NewEvent(eventCalendarID, "Team standup", day.Add(33*time.Hour), day.Add(33*time.Hour+15*time.Minute))
	standup.Component.Props.SetText(ical.PropRecurrenceRule, "FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=12")

	dinner := store.NewEvent(eventCalendarID, "Dinner with Sam", day.Add(3*24*time.Hour+19*time.Hour), day.Add(3*24*time.Hour+21*time.Hour))
	rent := store.NewReminder(reminderCalendarID, "Pay rent", day.AddDate(0, 0, 5).Add(9*time.Hour))
	plants := store.NewReminder(reminderCalendarID, "Water plants", day.Add(18*time.Hour))

	return []*ical.Component{standup.Component, dinner.Component, rent.Component, plants.Component}
}
