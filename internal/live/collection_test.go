package live

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func expense(id string, cents int64, at time.Time) core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:        id,
		UserID:    "u1",
		Title:     "item " + id,
		Amount:    core.Money{Cents: cents},
		CreatedAt: at,
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached before deadline")
}

func TestCollectionSeedsFromSnapshot(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	feed := store.NewBroker[core.ExpenseRecord](8)
	defer feed.Close()

	fetch := func(ctx context.Context) ([]core.ExpenseRecord, error) {
		return []core.ExpenseRecord{
			expense("b", 200, base.AddDate(0, 0, 1)),
			expense("a", 100, base),
		}, nil
	}
	c := NewCollection("expenses", fetch, feed)
	if !c.Loading() {
		t.Fatalf("mirror must report loading before Run seeds it")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	waitUntil(t, func() bool { return !c.Loading() })
	if err := c.Err(); err != nil {
		t.Fatalf("unexpected snapshot error: %v", err)
	}
	got := c.Snapshot()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("snapshot not in occurrence order: %+v", got)
	}
}

func TestCollectionRecordsSnapshotError(t *testing.T) {
	feed := store.NewBroker[core.ExpenseRecord](8)
	defer feed.Close()

	boom := errors.New("store down")
	c := NewCollection("expenses", func(ctx context.Context) ([]core.ExpenseRecord, error) {
		return nil, boom
	}, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	waitUntil(t, func() bool { return !c.Loading() })
	if !errors.Is(c.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", c.Err(), boom)
	}
	if len(c.Snapshot()) != 0 {
		t.Fatalf("failed snapshot must leave the mirror empty")
	}
}

func TestCollectionAppliesFeedEvents(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	feed := store.NewBroker[core.ExpenseRecord](8)
	defer feed.Close()

	c := NewCollection("expenses", func(ctx context.Context) ([]core.ExpenseRecord, error) {
		return []core.ExpenseRecord{expense("a", 100, base)}, nil
	}, feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	waitUntil(t, func() bool { return !c.Loading() })

	added := expense("b", 200, base.AddDate(0, 0, 1))
	feed.Publish(store.Event[core.ExpenseRecord]{Type: store.EventInsert, New: &added})
	waitUntil(t, func() bool { return len(c.Snapshot()) == 2 })

	replaced := expense("a", 150, base)
	feed.Publish(store.Event[core.ExpenseRecord]{Type: store.EventUpdate, New: &replaced})
	waitUntil(t, func() bool { return c.Snapshot()[0].Amount.Cents == 150 })

	feed.Publish(store.Event[core.ExpenseRecord]{Type: store.EventDelete, Old: &added})
	waitUntil(t, func() bool { return len(c.Snapshot()) == 1 })

	got := c.Snapshot()
	if got[0].ID != "a" || got[0].Amount.Cents != 150 {
		t.Fatalf("unexpected final state: %+v", got)
	}
}

func TestCollectionDeleteUnknownIsNoOp(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	feed := store.NewBroker[core.ExpenseRecord](8)
	defer feed.Close()

	c := NewCollection("expenses", func(ctx context.Context) ([]core.ExpenseRecord, error) {
		return []core.ExpenseRecord{expense("a", 100, base)}, nil
	}, feed)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	waitUntil(t, func() bool { return !c.Loading() })

	ghost := expense("ghost", 1, base)
	feed.Publish(store.Event[core.ExpenseRecord]{Type: store.EventDelete, Old: &ghost})

	// Insert afterwards so we can observe the delete was processed too.
	added := expense("b", 200, base)
	feed.Publish(store.Event[core.ExpenseRecord]{Type: store.EventInsert, New: &added})
	waitUntil(t, func() bool { return len(c.Snapshot()) == 2 })
}

func TestCollectionReplayMatchesReferenceTable(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	feed := store.NewBroker[core.ExpenseRecord](1)
	defer feed.Close()
	c := NewCollection("expenses", nil, feed)

	reference := make(map[string]core.ExpenseRecord)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("e%d", i%17)
		rec := expense(id, int64(i+1), base.Add(time.Duration(i%17)*time.Hour))
		var ev store.Event[core.ExpenseRecord]
		switch i % 5 {
		case 0, 1:
			ev = store.Event[core.ExpenseRecord]{Type: store.EventInsert, New: &rec}
			reference[id] = rec
		case 2, 3:
			ev = store.Event[core.ExpenseRecord]{Type: store.EventUpdate, New: &rec}
			reference[id] = rec
		default:
			ev = store.Event[core.ExpenseRecord]{Type: store.EventDelete, Old: &rec}
			delete(reference, id)
		}
		c.apply(ev)
	}

	got := c.Snapshot()
	if len(got) != len(reference) {
		t.Fatalf("replay diverged: %d records, reference has %d", len(got), len(reference))
	}
	for _, r := range got {
		want, ok := reference[r.ID]
		if !ok {
			t.Fatalf("record %s not in reference table", r.ID)
		}
		if r.Amount.Cents != want.Amount.Cents {
			t.Fatalf("record %s = %d cents, reference %d", r.ID, r.Amount.Cents, want.Amount.Cents)
		}
	}
}

func TestCollectionChangedCoalesces(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	feed := store.NewBroker[core.ExpenseRecord](8)
	defer feed.Close()

	c := NewCollection("expenses", func(ctx context.Context) ([]core.ExpenseRecord, error) {
		return nil, nil
	}, feed)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	waitUntil(t, func() bool { return !c.Loading() })

	for i := 0; i < 10; i++ {
		rec := expense(fmt.Sprintf("e%d", i), int64(i+1), base)
		feed.Publish(store.Event[core.ExpenseRecord]{Type: store.EventInsert, New: &rec})
	}
	waitUntil(t, func() bool { return len(c.Snapshot()) == 10 })

	select {
	case <-c.Changed():
	default:
		t.Fatalf("changed signal missing after applied events")
	}
	// A second immediate receive may or may not fire; what matters is the
	// consumer re-reads Snapshot rather than counting signals.
}

func TestCollectionStopsOnCancel(t *testing.T) {
	feed := store.NewBroker[core.ExpenseRecord](8)
	defer feed.Close()
	c := NewCollection("expenses", func(ctx context.Context) ([]core.ExpenseRecord, error) {
		return nil, nil
	}, feed)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	waitUntil(t, func() bool { return !c.Loading() })
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}
