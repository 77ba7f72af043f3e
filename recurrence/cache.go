package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache memoizes HasOccurrenceInRange results. Entries expire after the
// configured TTL and the least recently used entry is evicted when full.
type Cache struct {
	lru *expirable.LRU[string, bool]
}

// NewCache creates a cache holding at most size entries for ttl.
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, bool](size, nil, ttl)}
}

// cacheKey hashes every input that influences the result
func cacheKey(masterStart, masterEnd time.Time, info RecurrenceInfo, rangeStart, rangeEnd time.Time) string {
	h := sha256.New()
	for _, t := range []time.Time{masterStart, masterEnd, rangeStart, rangeEnd} {
		h.Write([]byte(t.Format(time.RFC3339Nano)))
	}
	h.Write([]byte(info.RRULE))
	for _, t := range info.RDATE {
		h.Write([]byte("R" + t.Format(time.RFC3339Nano)))
	}
	for _, t := range info.EXDATE {
		h.Write([]byte("X" + t.Format(time.RFC3339Nano)))
	}
	if info.RecurrenceID != nil {
		h.Write([]byte("I" + info.RecurrenceID.Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) get(key string) (bool, bool) {
	return c.lru.Get(key)
}

func (c *Cache) set(key string, v bool) {
	c.lru.Add(key, v)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}
