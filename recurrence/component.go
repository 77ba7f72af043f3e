package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

const icalUTC = "20060102T150405Z"

// ExtractRecurrenceInfo extracts recurrence information from an iCal component
func ExtractRecurrenceInfo(comp *ical.Component) RecurrenceInfo {
	info := RecurrenceInfo{}

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		info.RRULE = rruleProp.Value
	}
	for _, prop := range comp.Props[ical.PropRecurrenceDates] {
		info.RDATE = append(info.RDATE, parseDateList(prop.Value, prop.Params)...)
	}
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		info.EXDATE = append(info.EXDATE, parseDateList(prop.Value, prop.Params)...)
	}
	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil && prop.Value != "" {
		if dates := parseDateList(prop.Value, prop.Params); len(dates) == 1 {
			info.RecurrenceID = &dates[0]
		}
	}

	return info
}

// ExtractTimeInfo extracts start and end times from a VEVENT or VTODO.
// For VTODO, DUE stands in for the start when DTSTART is absent.
func ExtractTimeInfo(comp *ical.Component) (start, end time.Time, hasTime bool) {
	if startProp := comp.Props.Get(ical.PropDateTimeStart); startProp != nil {
		allDay := isDateValue(startProp)
		dtstart, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		start = dtstart
		hasTime = true

		if comp.Props.Get(ical.PropDateTimeEnd) != nil {
			dtend, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.UTC)
			if err != nil {
				return time.Time{}, time.Time{}, false
			}
			end = dtend
			// An all-day event ending on its start date lasts the whole day
			if allDay && sameDate(start, end) {
				end = start.AddDate(0, 0, 1)
			}
		} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
			duration, err := durationProp.Duration()
			if err != nil {
				return time.Time{}, time.Time{}, false
			}
			end = start.Add(duration)
		} else if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start
		}
	}

	if comp.Name == ical.CompToDo && comp.Props.Get(ical.PropDue) != nil {
		if due, err := comp.Props.DateTime(ical.PropDue, time.UTC); err == nil {
			if !hasTime {
				start, end, hasTime = due, due, true
			} else if due.After(end) {
				end = due
			}
		}
	}

	return start, end, hasTime
}

// IsRecurring reports whether comp is the master of a recurring series.
func IsRecurring(comp *ical.Component) bool {
	return ExtractRecurrenceInfo(comp).IsRecurring()
}

// ExcludeOccurrence adds an EXDATE for the occurrence starting at occurrence.
func ExcludeOccurrence(master *ical.Component, occurrence time.Time) {
	prop := ical.NewProp(ical.PropExceptionDates)
	prop.Value = occurrence.UTC().Format(icalUTC)
	master.Props.Add(prop)
}

// TruncateBefore ends the series of master right before occurrence. It reports
// false when no occurrence remains, in which case the caller should drop the
// whole series.
func TruncateBefore(master *ical.Component, occurrence time.Time) (bool, error) {
	start, _, ok := ExtractTimeInfo(master)
	if !ok {
		return false, fmt.Errorf("recurring component has no start time")
	}
	if !occurrence.After(start) {
		return false, nil
	}

	info := ExtractRecurrenceInfo(master)
	if info.RRULE != "" {
		opt, err := rrule.StrToROption(info.RRULE)
		if err != nil {
			return false, fmt.Errorf("failed to parse RRULE '%s': %w", info.RRULE, err)
		}
		opt.Count = 0
		opt.Until = occurrence.Add(-time.Second).UTC()
		master.Props.SetText(ical.PropRecurrenceRule, opt.RRuleString())
	}

	if len(info.RDATE) > 0 {
		master.Props.Del(ical.PropRecurrenceDates)
		for _, rdate := range info.RDATE {
			if rdate.Before(occurrence) {
				prop := ical.NewProp(ical.PropRecurrenceDates)
				prop.Value = rdate.UTC().Format(icalUTC)
				master.Props.Add(prop)
			}
		}
	}
	return true, nil
}

// SplitSeries builds the master of a new series starting at the edited
// occurrence. It keeps the rule of the old master; a COUNT is reduced by the
// occurrences that stay with the old series.
func SplitSeries(master, edited *ical.Component, occurrence time.Time, uid string) (*ical.Component, error) {
	series := Clone(edited)
	series.Props.Del(ical.PropRecurrenceID)
	series.Props.Del(ical.PropExceptionDates)
	series.Props.Del(ical.PropRecurrenceDates)
	series.Props.SetText(ical.PropUID, uid)

	info := ExtractRecurrenceInfo(master)
	if info.RRULE == "" {
		series.Props.Del(ical.PropRecurrenceRule)
		return series, nil
	}

	opt, err := rrule.StrToROption(info.RRULE)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", info.RRULE, err)
	}
	if opt.Count > 0 {
		masterStart, _, _ := ExtractTimeInfo(master)
		before, err := Expand(masterStart, info.RRULE, masterStart, occurrence.Add(-time.Second))
		if err != nil {
			return nil, err
		}
		opt.Count -= len(before)
		if opt.Count <= 0 {
			opt.Count = 1
		}
	}
	series.Props.SetText(ical.PropRecurrenceRule, opt.RRuleString())
	return series, nil
}

// Clone deep-copies comp.
func Clone(comp *ical.Component) *ical.Component {
	out := ical.NewComponent(comp.Name)
	for name, props := range comp.Props {
		copied := make([]ical.Prop, len(props))
		for i, p := range props {
			copied[i] = p
			copied[i].Params = make(ical.Params, len(p.Params))
			for k, v := range p.Params {
				copied[i].Params[k] = append([]string(nil), v...)
			}
		}
		out.Props[name] = copied
	}
	for _, child := range comp.Children {
		out.Children = append(out.Children, Clone(child))
	}
	return out
}

// parseDateList parses a comma-separated RDATE/EXDATE/RECURRENCE-ID value.
// Date-only values become midnight UTC.
func parseDateList(value string, params ical.Params) []time.Time {
	if value == "" {
		return nil
	}

	isDateOnly := strings.EqualFold(params.Get(ical.ParamValue), "DATE")
	loc := time.UTC
	if tzid := params.Get(ical.ParamTimezoneID); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}

	var dates []time.Time
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		var t time.Time
		var err error
		switch {
		case isDateOnly || len(s) == len("20060102"):
			t, err = time.Parse("20060102", s)
			if err == nil {
				t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			}
		case strings.HasSuffix(s, "Z"):
			t, err = time.Parse(icalUTC, s)
		default:
			t, err = time.ParseInLocation("20060102T150405", s, loc)
			t = t.UTC()
		}
		if err == nil {
			dates = append(dates, t)
		}
	}
	return dates
}

// isDateValue reports whether prop holds a DATE rather than a DATE-TIME
func isDateValue(prop *ical.Prop) bool {
	return strings.EqualFold(prop.Params.Get(ical.ParamValue), "DATE") || len(prop.Value) == len("20060102")
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
