package utils

import (
	"sync"
	"time"
)

// Deduplicator drops keys seen again within a time window. Scanners tend to
// fire the same barcode twice on one trigger pull.
type Deduplicator struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeduplicator creates a deduplicator. A zero window disables it.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window: window,
		max:    10000,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// IsDuplicate checks if the key has been seen within the window.
// Returns true if the key is a duplicate and should be ignored.
func (d *Deduplicator) IsDuplicate(key string) bool {
	if key == "" || d.window <= 0 {
		return false
	}

	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if ts, ok := d.seen[key]; ok && now.Sub(ts) < d.window {
		return true
	}
	d.seen[key] = now

	// Cleanup old entries if map gets too big
	if len(d.seen) > d.max {
		for k, v := range d.seen {
			if now.Sub(v) >= d.window {
				delete(d.seen, k)
			}
		}
	}
	return false
}

// Forget removes a key so the next occurrence is accepted.
func (d *Deduplicator) Forget(key string) {
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
}
