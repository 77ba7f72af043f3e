// Package ics encodes and decodes events and reminders as iCalendar text.
package ics

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const productID = "-//calgate//NONSGML v1.0//EN"

// NewCalendar returns an empty VCALENDAR with VERSION and PRODID set.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

// Encode writes components as a single VCALENDAR. DTSTAMP is filled in where missing.
func Encode(w io.Writer, comps ...*ical.Component) error {
	cal := NewCalendar()
	now := time.Now().UTC()
	for _, comp := range comps {
		if comp == nil {
			continue
		}
		if comp.Props.Get(ical.PropDateTimeStamp) == nil {
			comp.Props.SetDateTime(ical.PropDateTimeStamp, now)
		}
		cal.Children = append(cal.Children, comp)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// Decode reads every VCALENDAR in r and returns their VEVENT and VTODO children.
func Decode(r io.Reader) ([]*ical.Component, error) {
	dec := ical.NewDecoder(r)

	var comps []*ical.Component
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		for _, child := range cal.Children {
			if child.Name == ical.CompEvent || child.Name == ical.CompToDo {
				comps = append(comps, child)
			}
		}
	}
	return comps, nil
}

// EncodeComponent encodes a single component to ICS text.
func EncodeComponent(comp *ical.Component) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, comp); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DecodeComponent is the inverse of EncodeComponent. The text must hold
// exactly one VEVENT or VTODO.
func DecodeComponent(text string) (*ical.Component, error) {
	comps, err := Decode(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("no events or todos found in calendar")
	}
	if len(comps) > 1 {
		return nil, fmt.Errorf("multiple components found in calendar")
	}
	return comps[0], nil
}
