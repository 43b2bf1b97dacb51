// Package cache holds resolved high-rating counts between runs. Repeat runs
// over the same search keep hitting the same articles, and the rating lookup
// is the most expensive step of the pipeline (one or two fetches per
// article), so even a short-lived in-memory cache cuts most of it.
package cache

import (
	"sync"
	"time"
)

// entry holds a cached rating with its creation timestamp.
type entry struct {
	rating    int
	createdAt time.Time
}

// Ratings is an in-memory rating cache keyed by article identifier.
// It is safe for concurrent use.
type Ratings struct {
	mu         sync.RWMutex
	store      map[string]*entry
	ttl        time.Duration
	maxEntries int
}

// NewRatings creates a Ratings cache holding at most maxEntries values for at
// most ttl each. A background goroutine evicts expired entries every 5
// minutes.
func NewRatings(maxEntries int, ttl time.Duration) *Ratings {
	c := &Ratings{
		store:      make(map[string]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}

	go c.cleanupLoop()
	return c
}

// Get retrieves a cached rating if it exists and has not expired.
func (c *Ratings) Get(key string) (int, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.ttl {
		return 0, false
	}
	return e.rating, true
}

// Set stores a rating. If the cache is at capacity, a random entry is evicted
// to make room (map iteration order is random in Go).
func (c *Ratings) Set(key string, rating int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{rating: rating, createdAt: time.Now()}
}

// Len returns the number of entries, expired ones included.
func (c *Ratings) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// cleanupLoop evicts expired entries every 5 minutes.
func (c *Ratings) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-c.ttl)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
