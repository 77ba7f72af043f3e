package recurrence

import (
	"time"
)

// RecurrenceInfo contains all recurrence-related information for an event
type RecurrenceInfo struct {
	RRULE        string      // The RRULE string (without "RRULE:" prefix)
	RDATE        []time.Time // Additional recurrence dates
	EXDATE       []time.Time // Exception dates (excluded occurrences)
	RecurrenceID *time.Time  // For exception instances - which occurrence this overrides
}

// IsRecurring reports whether the info describes more than one occurrence.
func (r RecurrenceInfo) IsRecurring() bool {
	return r.RRULE != "" || len(r.RDATE) > 0
}

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	CacheEnabled bool
	CacheSize    int           // Maximum number of cached results
	CacheTTL     time.Duration // How long a cached result stays valid

	// Ranges longer than LargeRangeLimit are first checked over LargeRangeLimit only
	LargeRangeLimit time.Duration
	// Maximum occurrences checked when the limited pass finds nothing
	MaxExpansionOccurrences int
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheSize:    1000,
	CacheTTL:     15 * time.Minute,

	LargeRangeLimit:         90 * 24 * time.Hour,
	MaxExpansionOccurrences: 100,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,

	LargeRangeLimit:         365 * 24 * time.Hour,
	MaxExpansionOccurrences: 1000,
}
