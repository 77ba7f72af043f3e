package store

import (
	"fmt"
	"sort"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// ValidateEntity checks that comp is a component of kind placed in a calendar.
func ValidateEntity(calendarID string, comp *ical.Component, kind EntityKind) error {
	if comp == nil || comp.Name != kind.Component() {
		return fmt.Errorf("%w: expected a %s component", ErrInvalidInput, kind.Component())
	}
	if calendarID == "" {
		return fmt.Errorf("%w: missing calendar", ErrInvalidInput)
	}
	return nil
}

// EnsureUID gives comp a fresh UID if it has none.
func EnsureUID(comp *ical.Component) {
	if uid, _ := comp.Props.Text(ical.PropUID); uid == "" {
		comp.Props.SetText(ical.PropUID, uuid.New().String())
	}
}

// SortEvents orders events by start, then UID.
func SortEvents(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		si, _ := events[i].Start()
		sj, _ := events[j].Start()
		if si.Equal(sj) {
			return events[i].UID() < events[j].UID()
		}
		return si.Before(sj)
	})
}

// SortReminders orders reminders by due date, then UID. Undated reminders come first.
func SortReminders(rs []*Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		di, _ := rs[i].Due()
		dj, _ := rs[j].Due()
		if di.Equal(dj) {
			return rs[i].UID() < rs[j].UID()
		}
		return di.Before(dj)
	})
}
