package dataset

import (
	"context"
	"slices"
	"sync"
	"time"
)

// metadataCache holds the facts fetched by the first metadata round trip.
// A failed fetch leaves the cell empty.
type metadataCache struct {
	mu           sync.Mutex
	materialized bool
	dates        []time.Time
}

func seededCache(dates []time.Time) *metadataCache {
	return &metadataCache{materialized: true, dates: slices.Clone(dates)}
}

// get returns the cached dates, calling fetch while the cell is empty.
func (c *metadataCache) get(ctx context.Context, fetch func(context.Context) ([]time.Time, error)) ([]time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.materialized {
		dates, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.dates = dates
		c.materialized = true
	}
	return slices.Clone(c.dates), nil
}

// peek returns the cached dates without fetching.
func (c *metadataCache) peek() ([]time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.dates), c.materialized
}

// mergeDates merges two ascending lists. Equal timestamps keep a before b.
func mergeDates(a, b []time.Time) []time.Time {
	out := make([]time.Time, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].Before(a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
