// Package live keeps an in-memory mirror of a record collection current by
// folding change-feed events over an initial snapshot. Consumers read the
// mirror instead of re-querying the store on every request.
package live

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"fintrack/internal/store"
)

// Record is the identity contract a mirrored record must satisfy.
type Record interface {
	Key() string
	OccurredAt() time.Time
}

// FetchFunc loads the snapshot the mirror is seeded from.
type FetchFunc[R Record] func(ctx context.Context) ([]R, error)

// Collection mirrors one record kind. It subscribes to the change feed before
// fetching the snapshot so no event published during the fetch is lost; the
// upsert fold makes replaying an event for an already-snapshotted record
// harmless.
type Collection[R Record] struct {
	name  string
	fetch FetchFunc[R]
	feed  *store.Broker[R]

	mu      sync.RWMutex
	records map[string]R
	loading bool
	err     error

	changed chan struct{}
}

// NewCollection prepares a mirror of the given feed. The mirror is empty and
// marked loading until Run seeds it.
func NewCollection[R Record](name string, fetch FetchFunc[R], feed *store.Broker[R]) *Collection[R] {
	return &Collection[R]{
		name:    name,
		fetch:   fetch,
		feed:    feed,
		records: make(map[string]R),
		loading: true,
		changed: make(chan struct{}, 1),
	}
}

// Run seeds the mirror and then applies feed events until ctx is cancelled or
// the feed closes. It blocks; callers run it in its own goroutine.
func (c *Collection[R]) Run(ctx context.Context) {
	sub := c.feed.Subscribe()
	defer sub.Close()

	records, err := c.fetch(ctx)

	c.mu.Lock()
	for _, r := range records {
		c.records[r.Key()] = r
	}
	c.loading = false
	c.err = err
	c.mu.Unlock()
	c.notify()

	if err != nil {
		slog.ErrorContext(ctx, "Live mirror snapshot failed", "collection", c.name, "error", err)
	} else {
		slog.InfoContext(ctx, "Live mirror ready", "collection", c.name, "records", len(records))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			c.apply(ev)
			c.notify()
		}
	}
}

// apply folds one event into the mirror. Inserts and updates upsert by record
// key; deletes remove, and are no-ops for unknown keys.
func (c *Collection[R]) apply(ev store.Event[R]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case store.EventInsert, store.EventUpdate:
		if ev.New != nil {
			c.records[(*ev.New).Key()] = *ev.New
		}
	case store.EventDelete:
		if ev.Old != nil {
			delete(c.records, (*ev.Old).Key())
		}
	}
}

func (c *Collection[R]) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Changed signals after the mirror content moves. Notifications coalesce: one
// receive may cover several applied events, so consumers re-read Snapshot
// rather than counting signals.
func (c *Collection[R]) Changed() <-chan struct{} { return c.changed }

// Loading reports whether the initial snapshot is still being fetched.
func (c *Collection[R]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err returns the snapshot fetch error, if any.
func (c *Collection[R]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Snapshot returns the mirror content ordered by occurrence time, record key
// breaking ties.
func (c *Collection[R]) Snapshot() []R {
	c.mu.RLock()
	out := make([]R, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].OccurredAt(), out[j].OccurredAt()
		if ti.Equal(tj) {
			return out[i].Key() < out[j].Key()
		}
		return ti.Before(tj)
	})
	return out
}
