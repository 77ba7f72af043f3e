package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Engine answers "does this (possibly recurring) item occur in a range" for the stores.
type Engine struct {
	cache  *Cache
	config EngineConfig
}

// NewEngine creates a recurrence engine with DefaultEngineConfig
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	e := &Engine{config: config}
	if config.CacheEnabled && config.CacheSize > 0 {
		e.cache = NewCache(config.CacheSize, config.CacheTTL)
	}
	return e
}

// Cache returns the result cache, or nil when caching is disabled.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// HasOccurrenceInRange checks if an item has any occurrence overlapping [rangeStart, rangeEnd).
func (e *Engine) HasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	if e.cache == nil {
		return e.hasOccurrenceInRange(masterStart, masterEnd, recurrence, rangeStart, rangeEnd)
	}

	key := cacheKey(masterStart, masterEnd, recurrence, rangeStart, rangeEnd)
	if v, ok := e.cache.get(key); ok {
		return v, nil
	}
	v, err := e.hasOccurrenceInRange(masterStart, masterEnd, recurrence, rangeStart, rangeEnd)
	if err != nil {
		return false, err
	}
	e.cache.set(key, v)
	return v, nil
}

func (e *Engine) hasOccurrenceInRange(
	masterStart, masterEnd time.Time,
	recurrence RecurrenceInfo,
	rangeStart, rangeEnd time.Time,
) (bool, error) {
	if overlaps(masterStart, masterEnd, rangeStart, rangeEnd) {
		if !isExcluded(masterStart, recurrence.EXDATE) {
			return true, nil
		}
	}

	duration := masterEnd.Sub(masterStart)

	if recurrence.RRULE != "" {
		found, err := e.hasRRuleOccurrenceInRange(
			masterStart, duration, recurrence.RRULE, recurrence.EXDATE, rangeStart, rangeEnd)
		if err != nil {
			return false, fmt.Errorf("failed to check RRULE occurrences: %w", err)
		}
		if found {
			return true, nil
		}
	}

	for _, rdate := range recurrence.RDATE {
		if overlaps(rdate, rdate.Add(duration), rangeStart, rangeEnd) && !isExcluded(rdate, recurrence.EXDATE) {
			return true, nil
		}
	}

	return false, nil
}

func (e *Engine) hasRRuleOccurrenceInRange(
	masterStart time.Time, duration time.Duration, rruleStr string, exdates []time.Time,
	rangeStart, rangeEnd time.Time) (bool, error) {

	match := func(occurrence time.Time) bool {
		return overlaps(occurrence, occurrence.Add(duration), rangeStart, rangeEnd) && !isExcluded(occurrence, exdates)
	}

	// Widen the lower bound so occurrences starting before the range but
	// still running into it are found.
	lowerBound := rangeStart.Add(-duration)
	limitedRangeEnd := rangeEnd
	if e.config.LargeRangeLimit > 0 && rangeEnd.Sub(lowerBound) > e.config.LargeRangeLimit {
		limitedRangeEnd = lowerBound.Add(e.config.LargeRangeLimit)
	}

	occurrences, err := Expand(masterStart, rruleStr, lowerBound, limitedRangeEnd)
	if err != nil {
		return false, err
	}
	for _, occurrence := range occurrences {
		if match(occurrence) {
			return true, nil
		}
	}

	if limitedRangeEnd.Before(rangeEnd) {
		fullOccurrences, err := Expand(masterStart, rruleStr, limitedRangeEnd, rangeEnd)
		if err != nil {
			return false, err
		}
		limit := len(fullOccurrences)
		if e.config.MaxExpansionOccurrences > 0 && limit > e.config.MaxExpansionOccurrences {
			limit = e.config.MaxExpansionOccurrences
		}
		for i := 0; i < limit; i++ {
			if match(fullOccurrences[i]) {
				return true, nil
			}
		}
	}

	return false, nil
}

// overlaps reports whether [start, end) meets [rangeStart, rangeEnd). An item
// with no duration counts as an instant.
func overlaps(start, end, rangeStart, rangeEnd time.Time) bool {
	if !end.After(start) {
		return !start.Before(rangeStart) && start.Before(rangeEnd)
	}
	return start.Before(rangeEnd) && end.After(rangeStart)
}

// Expand returns the start times of rruleStr occurrences in [rangeStart, rangeEnd].
func Expand(masterStart time.Time, rruleStr string, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	dtstart := masterStart.UTC().Format("20060102T150405Z")
	fullRRule := fmt.Sprintf("DTSTART:%s\nRRULE:%s", dtstart, rruleStr)

	ruleSet, err := rrule.StrToRRuleSet(fullRRule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", rruleStr, err)
	}
	return ruleSet.Between(rangeStart, rangeEnd, true), nil
}

// isExcluded checks if a given time is in the EXDATE list
func isExcluded(t time.Time, exdates []time.Time) bool {
	for _, exdate := range exdates {
		if t.Equal(exdate) {
			return true
		}

		// Date-only exceptions are stored as midnight UTC and exclude the whole day
		if exdate.Hour() == 0 && exdate.Minute() == 0 && exdate.Second() == 0 && exdate.Location() == time.UTC {
			occurrenceAtMidnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if occurrenceAtMidnight.Equal(exdate) {
				return true
			}
		}
	}
	return false
}
